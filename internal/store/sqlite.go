// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/insight-engine/pkg/types"
)

const dbFile = "insights.db"

// SQLite stores records in DataDir/insights.db.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database under dataDir and creates the
// schema if it does not exist.
func NewSQLite(dataDir string) (*SQLite, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ideas (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			profile TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ideas_owner ON ideas(owner_id)`,
		`CREATE TABLE IF NOT EXISTS results (
			idea_id TEXT NOT NULL,
			category TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			insights TEXT NOT NULL,
			resonance_count INTEGER NOT NULL,
			resonance_rate REAL NOT NULL,
			average_score REAL NOT NULL,
			rarity TEXT NOT NULL,
			verdict TEXT,
			evaluation TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (idea_id, category)
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			idea_id TEXT NOT NULL,
			category TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			summary TEXT NOT NULL,
			rarity TEXT NOT NULL,
			artifact_ref TEXT,
			artifact_status TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (idea_id, category)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// PutIdea inserts or replaces an idea profile.
func (s *SQLite) PutIdea(ctx context.Context, idea types.IdeaProfile) error {
	profile, err := json.Marshal(idea)
	if err != nil {
		return fmt.Errorf("marshaling idea: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ideas (id, owner_id, profile, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			profile = excluded.profile,
			updated_at = excluded.updated_at`,
		idea.ID, idea.OwnerID, string(profile), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upserting idea %s: %w", idea.ID, err)
	}
	return nil
}

// Idea returns the stored profile or ErrNotFound.
func (s *SQLite) Idea(ctx context.Context, id string) (types.IdeaProfile, error) {
	var profile string
	err := s.db.QueryRowContext(ctx, `SELECT profile FROM ideas WHERE id = ?`, id).Scan(&profile)
	if errors.Is(err, sql.ErrNoRows) {
		return types.IdeaProfile{}, ErrNotFound
	}
	if err != nil {
		return types.IdeaProfile{}, fmt.Errorf("querying idea %s: %w", id, err)
	}
	var idea types.IdeaProfile
	if err := json.Unmarshal([]byte(profile), &idea); err != nil {
		return types.IdeaProfile{}, fmt.Errorf("decoding idea %s: %w", id, err)
	}
	return idea, nil
}

// UpsertResult writes the result for (IdeaID, Category), replacing any
// earlier one.
func (s *SQLite) UpsertResult(ctx context.Context, r types.ResultRecord) error {
	insights, err := json.Marshal(r.Insights)
	if err != nil {
		return fmt.Errorf("marshaling insights: %w", err)
	}
	eval, err := json.Marshal(r.Evaluation)
	if err != nil {
		return fmt.Errorf("marshaling evaluation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (idea_id, category, owner_id, insights, resonance_count,
			resonance_rate, average_score, rarity, verdict, evaluation, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idea_id, category) DO UPDATE SET
			owner_id = excluded.owner_id,
			insights = excluded.insights,
			resonance_count = excluded.resonance_count,
			resonance_rate = excluded.resonance_rate,
			average_score = excluded.average_score,
			rarity = excluded.rarity,
			verdict = excluded.verdict,
			evaluation = excluded.evaluation,
			updated_at = excluded.updated_at`,
		r.IdeaID, string(r.Category), r.OwnerID, string(insights), r.ResonanceCount,
		r.ResonanceRate, r.AverageScore, string(r.Rarity), string(r.Verdict), string(eval),
		formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting result %s/%s: %w", r.IdeaID, r.Category, err)
	}
	return nil
}

// UpsertCard writes the card for (IdeaID, Category), replacing any earlier one.
func (s *SQLite) UpsertCard(ctx context.Context, c types.CardRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (idea_id, category, owner_id, title, summary, rarity,
			artifact_ref, artifact_status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(idea_id, category) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			summary = excluded.summary,
			rarity = excluded.rarity,
			artifact_ref = excluded.artifact_ref,
			artifact_status = excluded.artifact_status,
			updated_at = excluded.updated_at`,
		c.IdeaID, string(c.Category), c.OwnerID, c.Title, c.Summary, string(c.Rarity),
		c.ArtifactRef, string(c.ArtifactStatus), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting card %s/%s: %w", c.IdeaID, c.Category, err)
	}
	return nil
}

// SetCardArtifact updates only the artifact fields of an existing card.
func (s *SQLite) SetCardArtifact(ctx context.Context, ideaID string, category types.CategoryID, ref string, status types.ArtifactStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cards SET artifact_ref = ?, artifact_status = ?, updated_at = ?
		WHERE idea_id = ? AND category = ?`,
		ref, string(status), formatTime(time.Now()), ideaID, string(category))
	if err != nil {
		return fmt.Errorf("updating card artifact %s/%s: %w", ideaID, category, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating card artifact %s/%s: %w", ideaID, category, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Results returns every result of an idea.
func (s *SQLite) Results(ctx context.Context, ideaID string) ([]types.ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idea_id, category, owner_id, insights, resonance_count, resonance_rate,
			average_score, rarity, verdict, evaluation, updated_at
		FROM results WHERE idea_id = ?`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []types.ResultRecord
	for rows.Next() {
		var (
			r                         types.ResultRecord
			category, rarity, updated string
			insights, eval            string
			verdict                   sql.NullString
		)
		if err := rows.Scan(&r.IdeaID, &category, &r.OwnerID, &insights, &r.ResonanceCount,
			&r.ResonanceRate, &r.AverageScore, &rarity, &verdict, &eval, &updated); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.Category = types.CategoryID(category)
		r.Rarity = types.Rarity(rarity)
		r.Verdict = types.Verdict(verdict.String)
		if err := json.Unmarshal([]byte(insights), &r.Insights); err != nil {
			return nil, fmt.Errorf("decoding insights of %s: %w", category, err)
		}
		if err := json.Unmarshal([]byte(eval), &r.Evaluation); err != nil {
			return nil, fmt.Errorf("decoding evaluation of %s: %w", category, err)
		}
		r.UpdatedAt = parseTime(updated)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	sortResults(out)
	return out, nil
}

// Cards returns every card of an idea.
func (s *SQLite) Cards(ctx context.Context, ideaID string) ([]types.CardRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idea_id, category, owner_id, title, summary, rarity, artifact_ref,
			artifact_status, updated_at
		FROM cards WHERE idea_id = ?`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("querying cards: %w", err)
	}
	defer rows.Close()

	var out []types.CardRecord
	for rows.Next() {
		var (
			c                                 types.CardRecord
			category, rarity, status, updated string
			ref                               sql.NullString
		)
		if err := rows.Scan(&c.IdeaID, &category, &c.OwnerID, &c.Title, &c.Summary, &rarity,
			&ref, &status, &updated); err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		c.Category = types.CategoryID(category)
		c.Rarity = types.Rarity(rarity)
		c.ArtifactRef = ref.String
		c.ArtifactStatus = types.ArtifactStatus(status)
		c.UpdatedAt = parseTime(updated)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cards: %w", err)
	}
	sortCards(out)
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
