package invitation

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/service/event"
	"github.com/jwalitptl/patient-api/pkg/logger"
	"github.com/jwalitptl/patient-api/pkg/metrics"
)

// Deliverer performs one synchronous delivery attempt.
type Deliverer interface {
	Dispatch(ctx context.Context, inv Invitation) error
}

// Notifier is the fire-and-forget phase that follows a persisted invitation.
// Implementations report failures through their own channel, never to the caller.
type Notifier interface {
	Notify(ctx context.Context, inv Invitation)
}

// AsyncNotifier dispatches each invitation on its own goroutine with a
// single attempt. Failures are logged, counted and recorded as
// INVITATION_DISPATCH_FAILED outbox events.
type AsyncNotifier struct {
	sender  Deliverer
	events  event.Emitter
	metrics *metrics.Metrics
	log     *logger.Logger

	wg sync.WaitGroup
}

func NewAsyncNotifier(sender Deliverer, events event.Emitter, m *metrics.Metrics, log *logger.Logger) *AsyncNotifier {
	return &AsyncNotifier{
		sender:  sender,
		events:  events,
		metrics: m,
		log:     log,
	}
}

func (n *AsyncNotifier) Notify(ctx context.Context, inv Invitation) {
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer n.recoverDispatch(ctx, inv)
		n.dispatch(ctx, inv)
	}()
}

// Wait blocks until every in-flight dispatch has returned.
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}

// recoverDispatch turns a panicking sender into a failed dispatch. Request
// recovery middleware does not cover this goroutine.
func (n *AsyncNotifier) recoverDispatch(ctx context.Context, inv Invitation) {
	r := recover()
	if r == nil {
		return
	}
	n.log.ZL.Error().
		Interface("panic", r).
		Str("stack", string(debug.Stack())).
		Str("patient_id", inv.PatientID.String()).
		Msg("invitation dispatch panicked")
	n.fail(ctx, inv, fmt.Errorf("dispatch panicked: %v", r))
}

func (n *AsyncNotifier) dispatch(ctx context.Context, inv Invitation) {
	err := n.sender.Dispatch(ctx, inv)
	if err == nil {
		n.metrics.Dispatches.WithLabelValues(kind(inv), "sent").Inc()
		n.log.Info("invitation sent",
			"patient_id", inv.PatientID.String(),
			"doctor_id", inv.DoctorID.String(),
			"email", logger.MaskEmail(inv.Email),
		)
		return
	}

	n.log.Error(err, "invitation dispatch failed",
		"patient_id", inv.PatientID.String(),
		"doctor_id", inv.DoctorID.String(),
		"email", logger.MaskEmail(inv.Email),
	)
	n.fail(ctx, inv, err)
}

// fail counts the failure and records it for a later retry.
func (n *AsyncNotifier) fail(ctx context.Context, inv Invitation, err error) {
	n.metrics.Dispatches.WithLabelValues(kind(inv), "failed").Inc()

	failed := model.DispatchFailedEvent{
		PatientID: inv.PatientID,
		DoctorID:  inv.DoctorID,
		Reminder:  inv.Reminder,
		Error:     err.Error(),
		FailedAt:  time.Now().UTC(),
	}
	if emitErr := n.events.Emit(ctx, model.EventInvitationDispatchFailed, failed); emitErr != nil {
		n.log.Error(emitErr, "failed to record dispatch failure",
			"patient_id", inv.PatientID.String(),
		)
	}
}

func kind(inv Invitation) string {
	if inv.Reminder {
		return "reminder"
	}
	return "initial"
}
