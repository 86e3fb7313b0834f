package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/internal/testutil"
	"github.com/hupe1980/taskmesh/task"
)

// Interface compliance (compile-time assertions)
var _ task.Store = (*TaskStore)(nil)

func TestTaskStore_Contract(t *testing.T) {
	testutil.RunTaskStoreSuite(t, func(*testing.T) task.Store { return NewTaskStore() })
}

func TestTaskStore_CopyIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()
	created, err := s.Create(ctx, testutil.NewTaskBuilder("u1", "a").Tags("x").Build())
	require.NoError(t, err)

	created.Tags[0] = "mutated"
	got, err := s.Get(ctx, "u1", created.ID)
	require.NoError(t, err)
	if got.Tags[0] != "x" {
		t.Fatalf("expected copy isolation, got %#v", got.Tags)
	}
}

func TestTaskStore_Clock(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewTaskStore(func(o *Options) { o.Now = func() time.Time { return at } })
	created, err := s.Create(context.Background(), testutil.NewTaskBuilder("u1", "a").Build())
	require.NoError(t, err)
	assert.Equal(t, at, created.CreatedAt)
	assert.Equal(t, at, created.UpdatedAt)
}

func TestTaskStore_FailInjection(t *testing.T) {
	boom := errors.New("boom")
	s := NewTaskStore(func(o *Options) {
		o.Fail = func(op, _ string, id int64) error {
			if op == "update" && id == 2 {
				return boom
			}
			return nil
		}
	})
	ctx := context.Background()
	for _, title := range []string{"a", "b"} {
		_, err := s.Create(ctx, testutil.NewTaskBuilder("u1", title).Build())
		require.NoError(t, err)
	}
	second, err := s.Get(ctx, "u1", 2)
	require.NoError(t, err)
	_, err = s.Update(ctx, second)
	assert.ErrorIs(t, err, boom)

	first, err := s.Get(ctx, "u1", 1)
	require.NoError(t, err)
	_, err = s.Update(ctx, first)
	assert.NoError(t, err)
}

func TestTaskStore_Concurrency(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Create(ctx, testutil.NewTaskBuilder("u1", "t").Build())
			_, _ = s.List(ctx, "u1", task.Filter{})
		}()
	}
	wg.Wait()
	all, err := s.List(ctx, "u1", task.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
