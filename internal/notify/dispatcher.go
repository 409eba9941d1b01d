package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrQueueFull is returned by Enqueue when no buffer slot is free.
	ErrQueueFull = errors.New("notify: queue full")
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("notify: dispatcher closed")
)

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
}

// DefaultDispatcherConfig returns the defaults used when nothing is configured.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{Workers: 2, QueueSize: 100}
}

// Dispatcher hands messages to a Mailer from a bounded queue drained by a
// fixed set of worker goroutines.
type Dispatcher struct {
	mailer Mailer
	logger *slog.Logger
	queue  chan Message

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts cfg.Workers goroutines sending through mailer.
func NewDispatcher(mailer Mailer, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		mailer: mailer,
		logger: logger.With("component", "notify.Dispatcher"),
		queue:  make(chan Message, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("mail dispatcher started", "workers", cfg.Workers, "queue_size", cfg.QueueSize)
	return d
}

// Enqueue schedules msg without blocking.
func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		d.logger.Warn("mail queue full, dropping message", "to", msg.To, "subject", msg.Subject)
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be sent or
// for ctx to expire, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("mail dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("mail dispatcher stopped before draining", "pending", len(d.queue))
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	logger := d.logger.With("worker_id", id)

	for msg := range d.queue {
		if err := d.mailer.Send(context.Background(), msg); err != nil {
			logger.Error("email delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
			continue
		}
		logger.Debug("email delivered", "to", msg.To, "subject", msg.Subject)
	}
}
