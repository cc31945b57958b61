// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists the progress of research runs so that a client
// holding a resume token can continue an interrupted run.
package checkpoint

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// ErrNotFound is returned when no checkpoint exists for a run ID.
var ErrNotFound = errors.New("checkpoint not found")

// DefaultTTL bounds how long an interrupted run stays resumable.
const DefaultTTL = 24 * time.Hour

// Checkpoint is the state of a run after its last completed category.
type Checkpoint struct {
	RunID   string `json:"runId"`
	IdeaID  string `json:"ideaId"`
	OwnerID string `json:"ownerId"`

	// Selector is the single requested category, or "" for a full run.
	Selector types.CategoryID `json:"selector,omitempty"`

	// Cursor counts the categories already completed.
	Cursor int `json:"cursor"`

	// Insights are every insight emitted so far, in emission order.
	Insights     []types.Insight `json:"insights"`
	TotalSources int             `json:"totalSources"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// Store saves and loads checkpoints by run ID.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Load(ctx context.Context, runID string) (*Checkpoint, error)

	// Runs lists the unexpired run IDs recorded for an idea.
	Runs(ctx context.Context, ideaID string) ([]string, error)
}

// Memory is an in-process Store. Entries expire after the TTL.
type Memory struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]memoryEntry
}

type memoryEntry struct {
	cp      Checkpoint
	expires time.Time
}

// NewMemory returns an empty Memory store. A non-positive ttl uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now, m: make(map[string]memoryEntry)}
}

// Save stores a copy of cp and drops every expired entry.
func (s *Memory) Save(_ context.Context, cp *Checkpoint) error {
	if cp.RunID == "" {
		return errors.New("checkpoint has no run ID")
	}
	c := *cp
	c.Insights = append([]types.Insight(nil), cp.Insights...)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.m {
		if now.After(e.expires) {
			delete(s.m, id)
		}
	}
	s.m[cp.RunID] = memoryEntry{cp: c, expires: now.Add(s.ttl)}
	return nil
}

// Load returns a copy of the stored checkpoint.
func (s *Memory) Load(_ context.Context, runID string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[runID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(e.expires) {
		delete(s.m, runID)
		return nil, ErrNotFound
	}
	c := e.cp
	c.Insights = append([]types.Insight(nil), e.cp.Insights...)
	return &c, nil
}

// Runs returns the unexpired runs of an idea, sorted.
func (s *Memory) Runs(_ context.Context, ideaID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var ids []string
	for id, e := range s.m {
		if e.cp.IdeaID == ideaID && !now.After(e.expires) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// New builds the Store selected by cfg.Backend.
func New(cfg types.CheckpointConfig) Store {
	if cfg.Backend == "redis" {
		return NewRedis(RedisOptions{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Prefix:   cfg.Prefix,
			TTL:      cfg.TTL,
		})
	}
	return NewMemory(cfg.TTL)
}
