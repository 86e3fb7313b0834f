package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hupe1980/taskmesh/logging"
)

// RetryOptions configures RetryModel.
type RetryOptions struct {
	// MaxAttempts bounds the total number of calls (first try included).
	MaxAttempts int
	// Timeout bounds every single attempt; zero disables it.
	Timeout time.Duration
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps the backoff delay.
	MaxInterval time.Duration
	// Retryable classifies attempt errors; nil uses IsTransient.
	Retryable func(error) bool
	Logger    logging.Logger
}

// RetryModel wraps a Model with a per attempt timeout and exponential
// backoff. It collects the inner generation and emits a single final
// response, so streaming chunks are not forwarded.
type RetryModel struct {
	inner Model
	opts  RetryOptions
}

// NewRetryModel wraps inner.
func NewRetryModel(inner Model, optFns ...func(o *RetryOptions)) *RetryModel {
	opts := RetryOptions{
		MaxAttempts:     3,
		Timeout:         60 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Retryable == nil {
		opts.Retryable = IsTransient
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &RetryModel{inner: inner, opts: opts}
}

// IsTransient reports whether err is worth retrying: anything except
// cancellation of the caller and ErrInvalidRequest.
func IsTransient(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, ErrInvalidRequest)
}

// Generate implements Model.
func (m *RetryModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		b := backoff.NewExponentialBackOff()
		b.InitialInterval = m.opts.InitialInterval
		b.MaxInterval = m.opts.MaxInterval
		b.MaxElapsedTime = 0
		policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(m.opts.MaxAttempts-1)), ctx)

		attempt := 0
		resp, err := backoff.RetryNotifyWithData(func() (Response, error) {
			attempt++
			r, err := m.attempt(ctx, req)
			if err == nil {
				return r, nil
			}
			if ctx.Err() != nil || !m.opts.Retryable(err) {
				return Response{}, backoff.Permanent(err)
			}
			return Response{}, err
		}, policy, func(err error, wait time.Duration) {
			m.opts.Logger.Warn("model.retry", "provider", m.inner.Info().Provider, "attempt", attempt, "wait", wait, "error", err)
		})
		if err != nil {
			errCh <- fmt.Errorf("model call failed after %d attempt(s): %w", attempt, err)
			return
		}
		out <- resp
	}()
	return out, errCh
}

func (m *RetryModel) attempt(ctx context.Context, req Request) (Response, error) {
	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}
	return Collect(ctx, m.inner, req)
}

// Info implements Model.
func (m *RetryModel) Info() Info { return m.inner.Info() }
