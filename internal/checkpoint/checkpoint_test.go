// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/insight-engine/pkg/types"
)

func sample(runID, ideaID string) *Checkpoint {
	return &Checkpoint{
		RunID:        runID,
		IdeaID:       ideaID,
		OwnerID:      "user-1",
		Selector:     types.CategoryRisk,
		Cursor:       1,
		Insights:     []types.Insight{{ID: "a", Category: types.CategoryRisk, Content: "x", Score: 6}},
		TotalSources: 7,
		UpdatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// exerciseStore runs the shared contract against any Store.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	cp := sample("run-1", "idea-1")
	require.NoError(t, s.Save(ctx, cp))
	require.NoError(t, s.Save(ctx, sample("run-2", "idea-1")))
	require.NoError(t, s.Save(ctx, sample("run-3", "idea-2")))

	got, err := s.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, cp, got)

	// Mutating the loaded copy does not change the stored one.
	got.Insights[0].Content = "changed"
	again, err := s.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "x", again.Insights[0].Content)

	runs, err := s.Runs(ctx, "idea-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"run-1", "run-2"}, runs)

	assert.Error(t, s.Save(ctx, &Checkpoint{}))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory(0))
}

func TestMemoryExpiry(t *testing.T) {
	s := NewMemory(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(context.Background(), sample("r", "i")))
	now = now.Add(2 * time.Minute)

	_, err := s.Load(context.Background(), "r")
	assert.ErrorIs(t, err, ErrNotFound)
	runs, _ := s.Runs(context.Background(), "i")
	assert.Empty(t, runs)
}

func TestMemorySavePrunesExpired(t *testing.T) {
	s := NewMemory(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample("old-1", "i")))
	require.NoError(t, s.Save(ctx, sample("old-2", "j")))
	now = now.Add(2 * time.Minute)
	require.NoError(t, s.Save(ctx, sample("new", "i")))

	assert.Len(t, s.m, 1)
	assert.Contains(t, s.m, "new")
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s := NewRedis(RedisOptions{Addr: mr.Addr(), Prefix: "test:", TTL: time.Hour})
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))

	exerciseStore(t, s)

	assert.True(t, mr.Exists("test:run:run-2"))
	assert.Equal(t, time.Hour, mr.TTL("test:run:run-2"))
	assert.Equal(t, time.Hour, mr.TTL("test:idea:idea-1:runs"))
}

func TestRedisExpiredRunsArePruned(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s := NewRedis(RedisOptions{Addr: mr.Addr(), TTL: time.Minute})
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample("old", "idea")))
	mr.Del("insight-engine:run:old")
	require.NoError(t, s.Save(ctx, sample("new", "idea")))

	runs, err := s.Runs(ctx, "idea")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, runs)

	members, err := mr.SMembers("insight-engine:idea:idea:runs")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, members)
}

func TestNewSelectsBackend(t *testing.T) {
	assert.IsType(t, &Memory{}, New(types.CheckpointConfig{}))
	assert.IsType(t, &Redis{}, New(types.CheckpointConfig{Backend: "redis", Addr: "localhost:6379"}))
}
