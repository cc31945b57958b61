// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "insight-engine:"
	TTL      time.Duration // default DefaultTTL
}

// Redis stores checkpoints as JSON strings under "<prefix>run:<id>" and
// indexes run IDs per idea under "<prefix>idea:<id>:runs".
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects lazily to the server in opts.
func NewRedis(opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "insight-engine:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (s *Redis) runKey(id string) string {
	return fmt.Sprintf("%srun:%s", s.prefix, id)
}

func (s *Redis) ideaKey(id string) string {
	return fmt.Sprintf("%sidea:%s:runs", s.prefix, id)
}

// Save writes cp and refreshes the TTL of the run and its idea index.
func (s *Redis) Save(ctx context.Context, cp *Checkpoint) error {
	if cp.RunID == "" {
		return errors.New("checkpoint has no run ID")
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.runKey(cp.RunID), data, s.ttl)
	if cp.IdeaID != "" {
		k := s.ideaKey(cp.IdeaID)
		pipe.SAdd(ctx, k, cp.RunID)
		pipe.Expire(ctx, k, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving checkpoint to redis: %w", err)
	}
	return nil
}

// Load returns the checkpoint for runID or ErrNotFound.
func (s *Redis) Load(ctx context.Context, runID string) (*Checkpoint, error) {
	data, err := s.client.Get(ctx, s.runKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading checkpoint from redis: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshaling checkpoint: %w", err)
	}
	return &cp, nil
}

// Runs lists the resumable run IDs recorded for an idea. Expired runs are
// pruned from the index.
func (s *Redis) Runs(ctx context.Context, ideaID string) ([]string, error) {
	k := s.ideaKey(ideaID)
	ids, err := s.client.SMembers(ctx, k).Result()
	if err != nil {
		return nil, fmt.Errorf("listing runs for idea %s: %w", ideaID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.runKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching runs: %w", err)
	}

	var live, stale []string
	for i, v := range vals {
		if v == nil {
			stale = append(stale, ids[i])
			continue
		}
		live = append(live, ids[i])
	}
	if len(stale) > 0 {
		members := make([]any, len(stale))
		for i, id := range stale {
			members[i] = id
		}
		s.client.SRem(ctx, k, members...)
	}
	return live, nil
}

// Ping checks connectivity.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *Redis) Close() error {
	return s.client.Close()
}
