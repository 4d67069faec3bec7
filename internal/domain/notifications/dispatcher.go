package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"perfeval/internal/domain/evaluation"
)

const (
	deliveryTimeout = 30 * time.Second
	dropTimeout     = 5 * time.Second
)

const (
	dropQueueFull = "dropped: notification queue full"
	dropClosed    = "dropped: dispatcher closed"
)

type Deliverer interface {
	Deliver(ctx context.Context, userID string, msg Message) DeliveryReport
	RecordDropped(ctx context.Context, userID string, msg Message, reason string)
}

// Dispatcher consumes transition events on a bounded queue so delivery never
// runs inside the request that committed the transition.
type Dispatcher struct {
	deliverer Deliverer
	queue     chan evaluation.TransitionEvent
	workers   int

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

var _ evaluation.Publisher = (*Dispatcher)(nil)

func NewDispatcher(deliverer Deliverer, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		deliverer: deliverer,
		queue:     make(chan evaluation.TransitionEvent, queueSize),
		workers:   workers,
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Publish enqueues evt without waiting for a worker. When the queue is full
// or the dispatcher is closed, each recipient gets a failed delivery row
// instead.
func (d *Dispatcher) Publish(evt evaluation.TransitionEvent) {
	d.mu.RLock()
	reason := dropClosed
	if !d.closed {
		select {
		case d.queue <- evt:
			d.mu.RUnlock()
			return
		default:
			reason = dropQueueFull
		}
	}
	d.mu.RUnlock()
	d.drop(evt, reason)
}

func (d *Dispatcher) drop(evt evaluation.TransitionEvent, reason string) {
	slog.Warn("notification event dropped", "evaluation_id", evt.EvaluationID, "status", evt.To, "reason", reason)
	for _, target := range messagesFor(evt) {
		if target.UserID == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), dropTimeout)
		d.deliverer.RecordDropped(ctx, target.UserID, target.Message, reason)
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for evt := range d.queue {
			d.handle(evt)
		}
		return
	}
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for evt := range d.queue {
		d.handle(evt)
	}
}

func (d *Dispatcher) handle(evt evaluation.TransitionEvent) {
	for _, target := range messagesFor(evt) {
		if target.UserID == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		report := d.deliverer.Deliver(ctx, target.UserID, target.Message)
		cancel()
		if report.Failed > 0 {
			slog.Warn("notification partially delivered",
				"evaluation_id", evt.EvaluationID,
				"user_id", target.UserID,
				"type", target.Message.Type,
				"failed", report.Failed,
			)
		}
	}
}
