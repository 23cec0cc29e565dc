package invitation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/pkg/logger"
	"github.com/jwalitptl/patient-api/pkg/metrics"
)

type fakeDeliverer struct {
	mu    sync.Mutex
	calls []Invitation
	ctxs  []context.Context
	err   error
}

func (f *fakeDeliverer) Dispatch(ctx context.Context, inv Invitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inv)
	f.ctxs = append(f.ctxs, ctx)
	return f.err
}

type emitted struct {
	eventType string
	payload   interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
	err    error
}

func (f *fakeEmitter) Emit(_ context.Context, eventType string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{eventType: eventType, payload: payload})
	return f.err
}

func TestAsyncNotifierSuccess(t *testing.T) {
	deliverer := &fakeDeliverer{}
	events := &fakeEmitter{}
	m := metrics.New("test")
	n := NewAsyncNotifier(deliverer, events, m, logger.NewNop())

	n.Notify(context.Background(), Invitation{PatientID: uuid.New(), Email: "a@b.co", Token: "t"})
	n.Wait()

	assert.Len(t, deliverer.calls, 1)
	assert.Empty(t, events.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("initial", "sent")))
}

func TestAsyncNotifierFailureEmitsEvent(t *testing.T) {
	deliverer := &fakeDeliverer{err: errors.New("smtp down")}
	events := &fakeEmitter{}
	m := metrics.New("test")
	n := NewAsyncNotifier(deliverer, events, m, logger.NewNop())
	inv := Invitation{PatientID: uuid.New(), DoctorID: uuid.New(), Email: "a@b.co", Token: "t"}

	n.Notify(context.Background(), inv)
	n.Wait()

	require.Len(t, deliverer.calls, 1, "exactly one attempt, no retry")
	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventInvitationDispatchFailed, events.events[0].eventType)
	failed := events.events[0].payload.(model.DispatchFailedEvent)
	assert.Equal(t, inv.PatientID, failed.PatientID)
	assert.Equal(t, inv.DoctorID, failed.DoctorID)
	assert.Equal(t, "smtp down", failed.Error)
	assert.False(t, failed.Reminder)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("initial", "failed")))

	body, err := json.Marshal(failed)
	require.NoError(t, err)
	assert.NotContains(t, string(body), inv.Email, "published events must not carry the address")
}

type panickingDeliverer struct{}

func (panickingDeliverer) Dispatch(context.Context, Invitation) error {
	panic("template exploded")
}

func TestAsyncNotifierRecoversSenderPanic(t *testing.T) {
	events := &fakeEmitter{}
	m := metrics.New("test")
	n := NewAsyncNotifier(panickingDeliverer{}, events, m, logger.NewNop())
	inv := Invitation{PatientID: uuid.New(), DoctorID: uuid.New(), Email: "a@b.co", Token: "t", Reminder: true}

	require.NotPanics(t, func() {
		n.Notify(context.Background(), inv)
		n.Wait()
	})

	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventInvitationDispatchFailed, events.events[0].eventType)
	failed := events.events[0].payload.(model.DispatchFailedEvent)
	assert.Equal(t, inv.PatientID, failed.PatientID)
	assert.Contains(t, failed.Error, "template exploded")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("reminder", "failed")))
}

func TestAsyncNotifierSurvivesEmitFailure(t *testing.T) {
	deliverer := &fakeDeliverer{err: errors.New("smtp down")}
	events := &fakeEmitter{err: errors.New("db down")}
	n := NewAsyncNotifier(deliverer, events, metrics.New("test"), logger.NewNop())

	n.Notify(context.Background(), Invitation{Email: "a@b.co", Token: "t"})
	n.Wait()

	assert.Len(t, events.events, 1)
}

func TestAsyncNotifierOutlivesRequestContext(t *testing.T) {
	deliverer := &fakeDeliverer{}
	n := NewAsyncNotifier(deliverer, &fakeEmitter{}, metrics.New("test"), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, Invitation{Email: "a@b.co", Token: "t"})
	n.Wait()

	require.Len(t, deliverer.ctxs, 1)
	assert.NoError(t, deliverer.ctxs[0].Err())
}

func TestAsyncNotifierConcurrentNotify(t *testing.T) {
	deliverer := &fakeDeliverer{}
	n := NewAsyncNotifier(deliverer, &fakeEmitter{}, metrics.New("test"), logger.NewNop())

	for i := 0; i < 20; i++ {
		n.Notify(context.Background(), Invitation{PatientID: uuid.New(), Email: "a@b.co", Token: "t"})
	}
	n.Wait()

	assert.Len(t, deliverer.calls, 20)
}
