package events

import (
	"context"
	"sync"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/utils"
)

type DispatcherOptions struct {
	BufferSize     int
	MaxAttempts    int
	InitialBackoff time.Duration
	PublishTimeout time.Duration
}

// Dispatcher queues events in memory and publishes them from one background
// goroutine. Emit never blocks: when the queue is full the event is dropped
// and logged.
type Dispatcher struct {
	pub   Publisher
	opts  DispatcherOptions
	queue chan domain.RentalEvent

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(pub Publisher, opts DispatcherOptions) *Dispatcher {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	d := &Dispatcher{
		pub:   pub,
		opts:  opts,
		queue: make(chan domain.RentalEvent, opts.BufferSize),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Emit(ev domain.RentalEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.Warn("Event dropped after dispatcher shutdown", "event_id", ev.ID, "type", ev.Type, "rental_id", ev.RentalID)
		return
	}
	select {
	case d.queue <- ev:
	default:
		logger.Warn("Event queue full, dropping event", "event_id", ev.ID, "type", ev.Type, "rental_id", ev.RentalID)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	log := logger.WithComponent("dispatcher")
	for ev := range d.queue {
		err := utils.Retry(context.Background(), d.opts.MaxAttempts, d.opts.InitialBackoff, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, d.opts.PublishTimeout)
			defer cancel()
			return d.pub.Publish(ctx, ev)
		})
		if err != nil {
			log.Error("Failed to publish event", "event_id", ev.ID, "type", ev.Type, "rental_id", ev.RentalID, "error", err)
			continue
		}
		log.Debug("Event published", "event_id", ev.ID, "type", ev.Type, "rental_id", ev.RentalID)
	}
}

// Close stops accepting events, drains the queue until ctx expires, then
// closes the publisher.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		logger.Warn("Event dispatcher shutdown timed out", "pending", len(d.queue))
	}
	return d.pub.Close()
}
