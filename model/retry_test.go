package model

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func fastRetry(o *RetryOptions) {
	o.InitialInterval = time.Millisecond
	o.MaxInterval = 2 * time.Millisecond
}

func TestRetryModel_RecoversFromTransientErrors(t *testing.T) {
	inner := NewScriptedModel("flaky").
		ThenError(errors.New("503")).
		ThenError(errors.New("503")).
		ThenText("ok")
	m := NewRetryModel(inner, fastRetry)

	resp, err := Collect(context.Background(), m, Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content.Text())
	assert.Len(t, inner.Requests(), 3)
}

func TestRetryModel_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := NewScriptedModel("down").Otherwise(func(Request) (Response, error) {
		return Response{}, errors.New("unavailable")
	})
	m := NewRetryModel(inner, fastRetry, func(o *RetryOptions) { o.MaxAttempts = 2 })

	_, err := Collect(context.Background(), m, Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempt(s)")
	assert.Len(t, inner.Requests(), 2)
}

func TestRetryModel_StopsOnPermanentError(t *testing.T) {
	inner := NewScriptedModel("strict").
		ThenError(fmt.Errorf("%w: bad schema", ErrInvalidRequest)).
		ThenText("unreachable")
	m := NewRetryModel(inner, fastRetry)

	_, err := Collect(context.Background(), m, Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Len(t, inner.Requests(), 1)
}

func TestRetryModel_PerAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	inner := NewScriptedModel("slow").Otherwise(func(Request) (Response, error) {
		if calls.Add(1) == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		return Response{Content: core.NewTextContent(core.RoleAssistant, "late")}, nil
	})
	m := NewRetryModel(inner, fastRetry, func(o *RetryOptions) { o.Timeout = 10 * time.Millisecond })

	resp, err := Collect(context.Background(), m, Request{})
	require.NoError(t, err)
	assert.Equal(t, "late", resp.Content.Text())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("x")))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(fmt.Errorf("wrap: %w", ErrInvalidRequest)))
}
