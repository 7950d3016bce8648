package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MailDispatcher delivers messages from a bounded queue with a fixed number
// of workers. Delivery failures are logged and dropped.
type MailDispatcher struct {
	mailer  Mailer
	jobs    chan Message
	workers int
	timeout time.Duration
	logger  *slog.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewMailDispatcher creates a dispatcher. Call Start before enqueueing.
func NewMailDispatcher(mailer Mailer, workers, queueSize int, logger *slog.Logger) *MailDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &MailDispatcher{
		mailer:  mailer,
		jobs:    make(chan Message, queueSize),
		workers: workers,
		timeout: 30 * time.Second,
		logger:  logger.With("component", "mail_dispatcher"),
	}
}

// Start launches the workers
func (d *MailDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
}

func (d *MailDispatcher) work(id int) {
	defer d.wg.Done()
	for msg := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.mailer.Send(ctx, msg); err != nil {
			d.logger.Error("email delivery failed",
				"worker", id,
				"to", msg.To,
				"subject", msg.Subject,
				"error", err)
		} else {
			d.logger.Debug("email delivered", "worker", id, "to", msg.To)
		}
		cancel()
	}
}

// Enqueue queues a message without blocking. It reports false when the queue
// is full or the dispatcher is shutting down.
func (d *MailDispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("email dropped, dispatcher closed", "to", msg.To)
		return false
	}

	select {
	case d.jobs <- msg:
		return true
	default:
		d.logger.Warn("email dropped, queue full", "to", msg.To, "subject", msg.Subject)
		return false
	}
}

// Shutdown stops accepting messages and waits for queued ones to be
// delivered, or for ctx to end.
func (d *MailDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

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
