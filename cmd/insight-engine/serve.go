// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/insight-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research, completion and results API over HTTP",
	Long: `Serve exposes:

  POST /api/research               stream a research run (text/event-stream)
  POST /api/ideas/{id}/complete    complete validation for an idea
  GET  /api/ideas/{id}/results     read back results, cards and resumable runs

Requests authenticate with a bearer token listed under server.tokens.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	if len(a.cfg.Server.Tokens) == 0 {
		a.logger.Warn("no server.tokens configured: every API request will be rejected")
	}

	srv, err := server.New(server.Options{
		Store:       a.store,
		Research:    a.orchestrator,
		Validation:  a.validation,
		Checkpoints: a.checkpoints,
		Tokens:      a.cfg.Server.Tokens,
		Logger:      a.logger.Named("server"),
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, addr)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")

	rootCmd.AddCommand(serveCmd)
}
