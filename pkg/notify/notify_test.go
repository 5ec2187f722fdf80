package notify

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-formflow/pkg/entity"
)

func TestMultiFansOutInOrder(t *testing.T) {
	var got []string
	record := func(name string) Notifier {
		return Func(func(_ context.Context, n Notification) {
			got = append(got, name+":"+n.Message)
		})
	}

	Multi{record("a"), nil, Discard, record("b")}.Notify(context.Background(), Success(entity.Category, "saved"))

	if len(got) != 2 || got[0] != "a:saved" || got[1] != "b:saved" {
		t.Fatalf("unexpected fan out %v", got)
	}
}

func TestLogNotifierLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLogNotifier(zap.New(core))

	n.Notify(context.Background(), Success(entity.Service, "Service created"))
	n.Notify(context.Background(), Failure(entity.Service, "Could not save service"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected two log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].Message != "Service created" {
		t.Fatalf("unexpected success entry %+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for failures, got %v", entries[1].Level)
	}
	if entries[1].ContextMap()["entity"] != "service" {
		t.Fatalf("expected entity field, got %v", entries[1].ContextMap())
	}
}
