package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Mutation records one call to RecordingMutator.
type Mutation struct {
	Op      string
	Type    entity.Type
	ID      string
	Payload entity.Payload
}

// RecordingMutator records mutations and answers them with a scripted error
// or an echo of the payload.
type RecordingMutator struct {
	mu    sync.Mutex
	calls []Mutation
	err   error
}

var _ store.Mutator = (*RecordingMutator)(nil)

// SetError makes every following call return err. Nil restores success.
func (m *RecordingMutator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of the recorded mutations.
func (m *RecordingMutator) Calls() []Mutation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mutation(nil), m.calls...)
}

func (m *RecordingMutator) record(op string, t entity.Type, id string, payload entity.Payload) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Mutation{Op: op, Type: t, ID: id, Payload: payload.Clone()})
	return len(m.calls), m.err
}

func (m *RecordingMutator) Create(_ context.Context, t entity.Type, payload entity.Payload) (entity.Record, error) {
	n, err := m.record("create", t, "", payload)
	if err != nil {
		return entity.Record{}, err
	}
	return entity.ApplyPayload(entity.Record{Type: t, ID: fmt.Sprintf("rec-%d", n)}, payload), nil
}

func (m *RecordingMutator) Update(_ context.Context, t entity.Type, id string, payload entity.Payload) (entity.Record, error) {
	if _, err := m.record("update", t, id, payload); err != nil {
		return entity.Record{}, err
	}
	return entity.ApplyPayload(entity.Record{Type: t, ID: id}, payload), nil
}

func (m *RecordingMutator) Delete(_ context.Context, t entity.Type, id string) error {
	_, err := m.record("delete", t, id, nil)
	return err
}

// RecordingNotifier keeps every notification it receives.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

var _ notify.Notifier = (*RecordingNotifier)(nil)

func (n *RecordingNotifier) Notify(_ context.Context, note notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

// Sent returns a copy of the received notifications.
func (n *RecordingNotifier) Sent() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.sent...)
}
