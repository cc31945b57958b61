// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// DBPool is the subset of *pgxpool.Pool the Postgres store uses.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres stores records in the ie_ideas, ie_results and ie_cards tables.
type Postgres struct {
	pool DBPool
	now  func() time.Time
}

// NewPostgres connects to dsn and creates the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	s := NewPostgresWithPool(pool)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool DBPool) *Postgres {
	return &Postgres{pool: pool, now: time.Now}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ie_ideas (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	profile JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS ie_results (
	idea_id TEXT NOT NULL,
	category TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	insights JSONB NOT NULL,
	resonance_count INTEGER NOT NULL,
	resonance_rate DOUBLE PRECISION NOT NULL,
	average_score DOUBLE PRECISION NOT NULL,
	rarity TEXT NOT NULL,
	verdict TEXT NOT NULL DEFAULT '',
	evaluation JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (idea_id, category)
);
CREATE TABLE IF NOT EXISTS ie_cards (
	idea_id TEXT NOT NULL,
	category TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL,
	summary TEXT NOT NULL,
	rarity TEXT NOT NULL,
	artifact_ref TEXT NOT NULL DEFAULT '',
	artifact_status TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (idea_id, category)
);`

// InitSchema creates the tables if they do not exist.
func (s *Postgres) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// PutIdea inserts or replaces an idea profile.
func (s *Postgres) PutIdea(ctx context.Context, idea types.IdeaProfile) error {
	profile, err := json.Marshal(idea)
	if err != nil {
		return fmt.Errorf("marshaling idea: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ie_ideas (id, owner_id, profile, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			profile = EXCLUDED.profile,
			updated_at = EXCLUDED.updated_at`,
		idea.ID, idea.OwnerID, profile, s.now().UTC())
	if err != nil {
		return fmt.Errorf("upserting idea %s: %w", idea.ID, err)
	}
	return nil
}

// Idea returns the stored profile or ErrNotFound.
func (s *Postgres) Idea(ctx context.Context, id string) (types.IdeaProfile, error) {
	var profile []byte
	err := s.pool.QueryRow(ctx, `SELECT profile FROM ie_ideas WHERE id = $1`, id).Scan(&profile)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.IdeaProfile{}, ErrNotFound
	}
	if err != nil {
		return types.IdeaProfile{}, fmt.Errorf("querying idea %s: %w", id, err)
	}
	var idea types.IdeaProfile
	if err := json.Unmarshal(profile, &idea); err != nil {
		return types.IdeaProfile{}, fmt.Errorf("decoding idea %s: %w", id, err)
	}
	return idea, nil
}

// UpsertResult writes the result for (IdeaID, Category).
func (s *Postgres) UpsertResult(ctx context.Context, r types.ResultRecord) error {
	insights, err := json.Marshal(r.Insights)
	if err != nil {
		return fmt.Errorf("marshaling insights: %w", err)
	}
	eval, err := json.Marshal(r.Evaluation)
	if err != nil {
		return fmt.Errorf("marshaling evaluation: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO ie_results (idea_id, category, owner_id, insights, resonance_count,
			resonance_rate, average_score, rarity, verdict, evaluation, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (idea_id, category) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			insights = EXCLUDED.insights,
			resonance_count = EXCLUDED.resonance_count,
			resonance_rate = EXCLUDED.resonance_rate,
			average_score = EXCLUDED.average_score,
			rarity = EXCLUDED.rarity,
			verdict = EXCLUDED.verdict,
			evaluation = EXCLUDED.evaluation,
			updated_at = EXCLUDED.updated_at`,
		r.IdeaID, string(r.Category), r.OwnerID, insights, r.ResonanceCount,
		r.ResonanceRate, r.AverageScore, string(r.Rarity), string(r.Verdict), eval,
		s.stamp(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting result %s/%s: %w", r.IdeaID, r.Category, err)
	}
	return nil
}

// UpsertCard writes the card for (IdeaID, Category).
func (s *Postgres) UpsertCard(ctx context.Context, c types.CardRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ie_cards (idea_id, category, owner_id, title, summary, rarity,
			artifact_ref, artifact_status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idea_id, category) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			rarity = EXCLUDED.rarity,
			artifact_ref = EXCLUDED.artifact_ref,
			artifact_status = EXCLUDED.artifact_status,
			updated_at = EXCLUDED.updated_at`,
		c.IdeaID, string(c.Category), c.OwnerID, c.Title, c.Summary, string(c.Rarity),
		c.ArtifactRef, string(c.ArtifactStatus), s.stamp(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting card %s/%s: %w", c.IdeaID, c.Category, err)
	}
	return nil
}

// SetCardArtifact updates the artifact fields of an existing card.
func (s *Postgres) SetCardArtifact(ctx context.Context, ideaID string, category types.CategoryID, ref string, status types.ArtifactStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE ie_cards SET artifact_ref = $1, artifact_status = $2, updated_at = $3
		WHERE idea_id = $4 AND category = $5`,
		ref, string(status), s.now().UTC(), ideaID, string(category))
	if err != nil {
		return fmt.Errorf("updating card artifact %s/%s: %w", ideaID, category, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Results returns every result of an idea.
func (s *Postgres) Results(ctx context.Context, ideaID string) ([]types.ResultRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT idea_id, category, owner_id, insights, resonance_count, resonance_rate,
			average_score, rarity, verdict, evaluation, updated_at
		FROM ie_results WHERE idea_id = $1`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []types.ResultRecord
	for rows.Next() {
		var (
			r                         types.ResultRecord
			category, rarity, verdict string
			insights, eval            []byte
		)
		if err := rows.Scan(&r.IdeaID, &category, &r.OwnerID, &insights, &r.ResonanceCount,
			&r.ResonanceRate, &r.AverageScore, &rarity, &verdict, &eval, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.Category = types.CategoryID(category)
		r.Rarity = types.Rarity(rarity)
		r.Verdict = types.Verdict(verdict)
		if err := json.Unmarshal(insights, &r.Insights); err != nil {
			return nil, fmt.Errorf("decoding insights of %s: %w", category, err)
		}
		if err := json.Unmarshal(eval, &r.Evaluation); err != nil {
			return nil, fmt.Errorf("decoding evaluation of %s: %w", category, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	sortResults(out)
	return out, nil
}

// Cards returns every card of an idea.
func (s *Postgres) Cards(ctx context.Context, ideaID string) ([]types.CardRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT idea_id, category, owner_id, title, summary, rarity, artifact_ref,
			artifact_status, updated_at
		FROM ie_cards WHERE idea_id = $1`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("querying cards: %w", err)
	}
	defer rows.Close()

	var out []types.CardRecord
	for rows.Next() {
		var (
			c                        types.CardRecord
			category, rarity, status string
		)
		if err := rows.Scan(&c.IdeaID, &category, &c.OwnerID, &c.Title, &c.Summary, &rarity,
			&c.ArtifactRef, &status, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		c.Category = types.CategoryID(category)
		c.Rarity = types.Rarity(rarity)
		c.ArtifactStatus = types.ArtifactStatus(status)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cards: %w", err)
	}
	sortCards(out)
	return out, nil
}

func (s *Postgres) stamp(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return t.UTC()
}
