package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/session"
)

// TurnWriterOptions configures a TurnWriter.
type TurnWriterOptions struct {
	// QueueSize bounds pending writes. When full, new turns are dropped.
	QueueSize int
	// WriteTimeout bounds each AppendTurn call.
	WriteTimeout time.Duration
	Logger       logging.Logger
}

// TurnWriter persists conversation turns on its own goroutine. Callers
// never wait for the store.
type TurnWriter struct {
	store session.Store
	opts  TurnWriterOptions

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
	queue  chan session.Turn
	errs   chan error
	done   chan struct{}

	failed  atomic.Int64
	dropped atomic.Int64
}

// NewTurnWriter starts a writer over store.
func NewTurnWriter(store session.Store, optFns ...func(o *TurnWriterOptions)) *TurnWriter {
	opts := TurnWriterOptions{QueueSize: 256, WriteTimeout: 5 * time.Second, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	w := &TurnWriter{
		store: store,
		opts:  opts,
		queue: make(chan session.Turn, opts.QueueSize),
		errs:  make(chan error, opts.QueueSize),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// Write enqueues turns in order. It never blocks.
func (w *TurnWriter) Write(turns ...session.Turn) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, t := range turns {
		if w.closed {
			w.drop(t, "closed")
			continue
		}
		select {
		case w.queue <- t:
		default:
			w.drop(t, "queue full")
		}
	}
}

// Errors publishes write failures. The channel is buffered; errors that do
// not fit are only logged and counted. It is closed by Close.
func (w *TurnWriter) Errors() <-chan error { return w.errs }

// Failed returns the number of failed writes.
func (w *TurnWriter) Failed() int64 { return w.failed.Load() }

// Dropped returns the number of turns discarded without a write attempt.
func (w *TurnWriter) Dropped() int64 { return w.dropped.Load() }

// Close stops accepting turns and waits until the queue is drained.
func (w *TurnWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return nil
}

func (w *TurnWriter) run() {
	defer close(w.done)
	defer close(w.errs)
	for t := range w.queue {
		if err := w.write(t); err != nil {
			w.failed.Add(1)
			w.opts.Logger.Warn("engine.turn.write.failed", "user_id", t.UserID, "turn_id", t.ID, "error", err)
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *TurnWriter) write(t session.Turn) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.WriteTimeout)
	defer cancel()
	if err := w.store.AppendTurn(ctx, t); err != nil {
		return fmt.Errorf("append turn %s: %w", t.ID, err)
	}
	return nil
}

func (w *TurnWriter) drop(t session.Turn, reason string) {
	w.dropped.Add(1)
	w.opts.Logger.Warn("engine.turn.dropped", "user_id", t.UserID, "turn_id", t.ID, "reason", reason)
}
