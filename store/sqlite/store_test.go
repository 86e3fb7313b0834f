package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/internal/testutil"
	"github.com/hupe1980/taskmesh/session"
	"github.com/hupe1980/taskmesh/task"
)

// Interface compliance (compile-time assertions)
var (
	_ task.Store        = (*Store)(nil)
	_ session.Store     = (*Store)(nil)
	_ session.Directory = (*Store)(nil)
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_TaskContract(t *testing.T) {
	testutil.RunTaskStoreSuite(t, func(t *testing.T) task.Store { return openTemp(t) })
}

func TestStore_MigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	v, err := SchemaVersion(ctx, s.DB())
	require.NoError(t, err)
	assert.Equal(t, len(migrations)-1, v)
	_, err = s.Create(ctx, testutil.NewTaskBuilder("u1", "persisted").Build())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.List(ctx, "u1", task.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", got[0].Content)
}

func TestStore_Turns(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		turn := session.Turn{ID: text, UserID: "u1", Role: "user", Content: text, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, s.AppendTurn(ctx, turn))
	}
	require.NoError(t, s.AppendTurn(ctx, session.NewTurn("u2", "user", "other")))
	assert.Error(t, s.AppendTurn(ctx, session.Turn{Content: "orphan"}))

	last2, err := s.RecentTurns(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, last2, 2)
	assert.Equal(t, "two", last2[0].Content)
	assert.Equal(t, "three", last2[1].Content)
	assert.True(t, last2[1].CreatedAt.Equal(base.Add(2*time.Second)))

	all, err := s.RecentTurns(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_Directory(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	p, err := s.Profile(ctx, "anyone")
	require.NoError(t, err, "open directory while no users are registered")
	assert.Equal(t, "anyone", p.UserID)
	assert.False(t, p.Registered)

	_, err = s.Profile(ctx, "")
	assert.ErrorIs(t, err, session.ErrInvalidUser)

	require.NoError(t, s.PutProfile(ctx, session.Profile{UserID: "u1", DisplayName: "Ada", Timezone: "Europe/Berlin"}))
	p, err = s.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.DisplayName)
	assert.Equal(t, "Europe/Berlin", p.Timezone)
	assert.True(t, p.Registered)

	_, err = s.Profile(ctx, "anyone")
	assert.ErrorIs(t, err, session.ErrInvalidUser)
}

func TestParseTime(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 5, time.FixedZone("x", 3600))
	assert.True(t, parseTimeOrZero(formatTime(at)).Equal(at))
	assert.True(t, parseTimeOrZero("2026-10-19T09:00:00Z").Equal(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)))
	assert.True(t, parseTimeOrZero("garbage").IsZero())
}
