// Package notify sends order emails. Delivery is best effort: it runs off the
// request path, and failures are logged and never reach the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/snuzng/storefront/internal/domain"
	"go.uber.org/zap"
)

const sendTimeout = 15 * time.Second

type Dispatcher struct {
	mailer     Mailer
	operatorTo string
	workers    int
	queue      chan domain.PaidOrder
	log        *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher returns a dispatcher that sends through mailer. A nil mailer
// means email is not configured and orders are only logged.
func NewDispatcher(mailer Mailer, operatorTo string, workers, queueSize int, log *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		mailer:     mailer,
		operatorTo: operatorTo,
		workers:    workers,
		queue:      make(chan domain.PaidOrder, queueSize),
		log:        log,
	}
}

// Enqueue hands an order to the workers without blocking. It reports whether
// the order was accepted; a full or closed queue drops it.
func (d *Dispatcher) Enqueue(order domain.PaidOrder) bool {
	if d.mailer == nil {
		d.log.Info("Webhook received but email is not configured. Set SENDGRID_API_KEY, ORDER_NOTIFY_FROM, ORDER_NOTIFY_TO.",
			zap.String("reference", order.Reference))
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("notification dropped, dispatcher closed", zap.String("reference", order.Reference))
		return false
	}
	select {
	case d.queue <- order:
		return true
	default:
		d.log.Warn("notification dropped, queue full", zap.String("reference", order.Reference))
		return false
	}
}

// Run starts the workers and blocks until Close has been called and the queue is drained.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for order := range d.queue {
				d.process(ctx, order)
			}
		}()
	}
	wg.Wait()
}

// Close stops accepting orders. Queued orders are still sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

func (d *Dispatcher) process(ctx context.Context, order domain.PaidOrder) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := d.Deliver(ctx, order); err != nil {
		d.log.Error("order notification failed",
			zap.String("reference", order.Reference),
			zap.Error(err),
		)
	}
}

// Deliver sends the operator email, then the customer receipt when the order
// has an email address. It stops at the first failure.
func (d *Dispatcher) Deliver(ctx context.Context, order domain.PaidOrder) error {
	if err := d.mailer.Send(ctx, OperatorMessage(d.operatorTo, order)); err != nil {
		return err
	}
	if order.CustomerEmail == "" {
		return nil
	}
	return d.mailer.Send(ctx, CustomerMessage(order))
}
