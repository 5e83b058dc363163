package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const defaultTimeout = 5 * time.Second

type outcomeRecorder interface {
	IncNotification(event string, ok bool)
}

// Dispatcher sends events in the background so callers never wait on, or
// fail because of, notification delivery.
type Dispatcher struct {
	notifier Notifier
	logg     *logger.Logger
	timeout  time.Duration
	metrics  outcomeRecorder
	now      func() time.Time

	wg sync.WaitGroup
}

// NewDispatcher wraps notifier. A non-positive timeout falls back to five seconds.
func NewDispatcher(notifier Notifier, logg *logger.Logger, timeout time.Duration, metrics outcomeRecorder) (*Dispatcher, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		notifier: notifier,
		logg:     logg,
		timeout:  timeout,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

// Dispatch fires event on a context detached from ctx's cancellation. Errors
// and panics from the notifier are logged and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now().UTC()
	}

	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()

		err := d.send(ctx, event)
		if d.metrics != nil {
			d.metrics.IncNotification(string(event.Type), err == nil)
		}
		if err != nil {
			logCtx := d.logg.WithFields(ctx, map[string]any{
				"event_type": event.Type,
				"event_id":   event.ID.String(),
			})
			logCtx = d.logg.WithOrderID(logCtx, event.OrderID.String())
			d.logg.Error(logCtx, "order notification failed", err)
		}
	}()
}

func (d *Dispatcher) send(ctx context.Context, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return d.notifier.Notify(ctx, event)
}

// Wait blocks until in-flight dispatches finish or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
