package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/entity"
)

// Level classifies a notification for display.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a toast style message.
type Notification struct {
	Level   Level       `json:"level"`
	Entity  entity.Type `json:"entity,omitempty"`
	Title   string      `json:"title,omitempty"`
	Message string      `json:"message"`
}

// Notifier is the notification collaborator. Delivery is fire-and-forget, so
// callers never depend on the outcome.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Success builds a success notification.
func Success(t entity.Type, message string) Notification {
	return Notification{Level: LevelSuccess, Entity: t, Message: message}
}

// Failure builds an error notification.
func Failure(t entity.Type, message string) Notification {
	return Notification{Level: LevelError, Entity: t, Message: message}
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) {
	if f != nil {
		f(ctx, n)
	}
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

type discard struct{}

func (discard) Notify(context.Context, Notification) {}

// Discard drops every notification.
var Discard Notifier = discard{}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a notifier logging through logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	if l == nil {
		return
	}
	fields := []zap.Field{
		zap.String("level", string(n.Level)),
		zap.String("entity", string(n.Entity)),
	}
	if n.Title != "" {
		fields = append(fields, zap.String("title", n.Title))
	}
	if n.Level == LevelError {
		l.logger.Warn(n.Message, fields...)
		return
	}
	l.logger.Info(n.Message, fields...)
}
