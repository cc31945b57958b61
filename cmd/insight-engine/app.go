// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/insight-engine/internal/artifact"
	"github.com/pdiddy/insight-engine/internal/catalog"
	"github.com/pdiddy/insight-engine/internal/checkpoint"
	"github.com/pdiddy/insight-engine/internal/llm"
	"github.com/pdiddy/insight-engine/internal/logging"
	"github.com/pdiddy/insight-engine/internal/research"
	"github.com/pdiddy/insight-engine/internal/search"
	"github.com/pdiddy/insight-engine/internal/store"
	"github.com/pdiddy/insight-engine/internal/synth"
	"github.com/pdiddy/insight-engine/internal/validation"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg          types.Config
	logger       *zap.Logger
	store        store.Store
	checkpoints  checkpoint.Store
	orchestrator *research.Orchestrator
	validation   *validation.Service
	artifacts    *artifact.Dispatcher
}

// newApp builds every component from the loaded configuration. Missing
// credentials degrade the component that needs them instead of failing.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		checkpoints: checkpoint.New(cfg.Checkpoint),
	}
	if p, ok := a.checkpoints.(interface{ Ping(context.Context) error }); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := p.Ping(pingCtx)
		cancel()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to checkpoint store: %w", err)
		}
	}

	gen, err := llm.New(ctx, cfg.AI, &http.Client{})
	switch {
	case errors.Is(err, llm.ErrNoCredential):
		logger.Warn("no ai credential configured: categories will yield no insights and evaluations fall back",
			zap.String("provider", string(cfg.AI.Provider)))
		gen = nil
	case err != nil:
		a.Close()
		return nil, err
	}

	cat := catalog.Default()
	gateway := search.NewGateway(cfg.Search, &http.Client{Timeout: cfg.Search.Timeout}, logger.Named("search"))
	a.orchestrator = research.New(research.Options{
		Catalog:         cat,
		Search:          gateway,
		Synth:           synth.New(gen, cfg.Research.SnippetChars, logger.Named("synth")),
		Checkpoints:     a.checkpoints,
		CategoryTimeout: cfg.Research.CategoryTimeout,
		Logger:          logger.Named("research"),
	})

	if cfg.Artifact.Enabled {
		images, err := artifact.NewGenAIImages(ctx, cfg.Artifact, &http.Client{})
		if err != nil {
			logger.Warn("artifact generation disabled", zap.Error(err))
		} else {
			wb := &artifact.WriteBack{Dir: cfg.Artifact.OutputDir, Cards: st}
			a.artifacts = artifact.NewDispatcher(images, wb, cfg.Artifact, logger.Named("artifact"))
		}
	}

	opts := validation.Options{
		Catalog:   cat,
		Store:     st,
		Evaluator: gen,
		Logger:    logger.Named("validation"),
	}
	if a.artifacts != nil {
		opts.Artifacts = a.artifacts
	}
	a.validation = validation.New(opts)
	return a, nil
}

// Close waits for dispatched artifacts, then releases the store and
// checkpoint connections.
func (a *app) Close() {
	a.artifacts.Wait()
	if c, ok := a.checkpoints.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("closing checkpoints", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
