// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact generates illustrative images for category cards. Work
// is dispatched detached from the caller and its outcome is written back to
// the card record; failures never reach the completion response.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/insight-engine/pkg/types"
)

const (
	// DefaultConcurrency bounds simultaneous generation calls per dispatch.
	DefaultConcurrency = 2

	// DefaultTimeout bounds one generation call.
	DefaultTimeout = 2 * time.Minute

	writeBackTimeout = 10 * time.Second
)

// Key addresses one card.
type Key struct {
	IdeaID   string
	OwnerID  string
	Category types.CategoryID
}

// Request describes the card to illustrate.
type Request struct {
	Key
	Title   string
	Summary string
	Rarity  types.Rarity
}

// Image is a generated artifact.
type Image struct {
	Data     []byte
	MIMEType string
}

// Generator produces one image for a card.
type Generator interface {
	Generate(ctx context.Context, r Request) (Image, error)
}

// CardUpdater is the part of the store the write-back needs.
type CardUpdater interface {
	SetCardArtifact(ctx context.Context, ideaID string, category types.CategoryID, ref string, status types.ArtifactStatus) error
}

// WriteBack stores generated images under Dir and records the outcome on the card.
type WriteBack struct {
	Dir   string
	Cards CardUpdater
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Write saves blob and marks the card ready. The returned reference is the
// path relative to Dir.
func (w *WriteBack) Write(ctx context.Context, key Key, blob []byte, mimeType string) (string, error) {
	if len(blob) == 0 {
		return "", errors.New("empty artifact")
	}
	ideaDir := unsafeName.ReplaceAllString(key.IdeaID, "_")
	ref := filepath.Join(ideaDir, string(key.Category)+extension(mimeType))

	if err := os.MkdirAll(filepath.Join(w.Dir, ideaDir), 0o755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Dir, ref), blob, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := w.Cards.SetCardArtifact(ctx, key.IdeaID, key.Category, ref, types.ArtifactReady); err != nil {
		return "", fmt.Errorf("recording artifact for %s/%s: %w", key.IdeaID, key.Category, err)
	}
	return ref, nil
}

// Fail marks the card's artifact as failed.
func (w *WriteBack) Fail(ctx context.Context, key Key) error {
	if err := w.Cards.SetCardArtifact(ctx, key.IdeaID, key.Category, "", types.ArtifactFailed); err != nil {
		return fmt.Errorf("recording artifact failure for %s/%s: %w", key.IdeaID, key.Category, err)
	}
	return nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ".png"
}

// Dispatcher runs generation in the background. The zero value is not
// usable; a nil *Dispatcher ignores every dispatch.
type Dispatcher struct {
	gen     Generator
	wb      *WriteBack
	limit   int
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher. A nil generator disables dispatching.
func NewDispatcher(gen Generator, wb *WriteBack, cfg types.ArtifactConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{gen: gen, wb: wb, limit: limit, timeout: timeout, logger: logger}
}

// Enabled reports whether Dispatch does any work.
func (d *Dispatcher) Enabled() bool { return d != nil && d.gen != nil && d.wb != nil }

// Dispatch starts generation for reqs and returns immediately. The work is
// detached from ctx's cancellation but keeps its values.
func (d *Dispatcher) Dispatch(ctx context.Context, reqs []Request) {
	if !d.Enabled() || len(reqs) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		var g errgroup.Group
		g.SetLimit(d.limit)
		for _, r := range reqs {
			g.Go(func() error {
				d.run(ctx, r)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// Wait blocks until every dispatched generation has been written back.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, r Request) {
	log := d.logger.With(zap.String("idea", r.IdeaID), zap.String("category", string(r.Category)))

	genCtx, cancel := context.WithTimeout(ctx, d.timeout)
	img, err := d.gen.Generate(genCtx, r)
	cancel()

	wbCtx, cancel := context.WithTimeout(ctx, writeBackTimeout)
	defer cancel()

	if err == nil {
		var ref string
		if ref, err = d.wb.Write(wbCtx, r.Key, img.Data, img.MIMEType); err == nil {
			log.Info("artifact ready", zap.String("ref", ref))
			return
		}
	}
	log.Warn("artifact generation failed", zap.Error(err))
	if ferr := d.wb.Fail(wbCtx, r.Key); ferr != nil {
		log.Warn("artifact write-back failed", zap.Error(ferr))
	}
}
