// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists idea profiles and the per-category result and card
// records written by validation completion. Records are keyed by
// (idea ID, category) and every write is an idempotent upsert.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// ErrNotFound is returned when an idea or card does not exist.
var ErrNotFound = errors.New("not found")

// Store is implemented by the SQLite and Postgres backends.
type Store interface {
	PutIdea(ctx context.Context, idea types.IdeaProfile) error
	Idea(ctx context.Context, id string) (types.IdeaProfile, error)

	UpsertResult(ctx context.Context, r types.ResultRecord) error
	UpsertCard(ctx context.Context, c types.CardRecord) error

	// SetCardArtifact records the outcome of artifact generation for a card.
	SetCardArtifact(ctx context.Context, ideaID string, category types.CategoryID, ref string, status types.ArtifactStatus) error

	// Results and Cards return records in category processing order.
	Results(ctx context.Context, ideaID string) ([]types.ResultRecord, error)
	Cards(ctx context.Context, ideaID string) ([]types.CardRecord, error)

	Close() error
}

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg types.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case types.DriverSQLite, "":
		return NewSQLite(cfg.DataDir)
	case types.DriverPostgres:
		return NewPostgres(ctx, cfg.DSN)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// OwnedIdea loads an idea and checks that ownerID owns it. A foreign idea is
// reported as ErrNotFound.
func OwnedIdea(ctx context.Context, s Store, id, ownerID string) (types.IdeaProfile, error) {
	idea, err := s.Idea(ctx, id)
	if err != nil {
		return types.IdeaProfile{}, err
	}
	if idea.OwnerID != ownerID {
		return types.IdeaProfile{}, ErrNotFound
	}
	return idea, nil
}

func sortResults(rs []types.ResultRecord) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Category.Position() < rs[j].Category.Position()
	})
}

func sortCards(cs []types.CardRecord) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Category.Position() < cs[j].Category.Position()
	})
}
