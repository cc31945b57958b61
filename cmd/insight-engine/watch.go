// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/insight-engine/internal/stream"
)

var watchCmd = &cobra.Command{
	Use:   "watch <idea-id>",
	Short: "Start a research run on a remote server and render its stream",
	Long: `Watch posts a research request to a running insight-engine server and
renders the event stream as it arrives. Malformed or unknown event lines
are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	baseURL, _ := cmd.Flags().GetString("url")
	token, _ := cmd.Flags().GetString("token")
	category, _ := cmd.Flags().GetString("category")
	language, _ := cmd.Flags().GetString("language")
	resume, _ := cmd.Flags().GetString("resume")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	body, err := json.Marshal(map[string]string{
		"ideaId":      args[0],
		"language":    language,
		"category":    category,
		"resumeToken": resume,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/research", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("starting research: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	r := newEventRenderer(os.Stdout, jsonOutput)
	dec := stream.NewDecoder(resp.Body)
	var runID string
	for {
		ev, err := dec.Next()
		switch {
		case errors.Is(err, stream.ErrDone):
			return nil
		case errors.Is(err, io.EOF):
			return errors.New("stream ended before the run finished")
		case ctx.Err() != nil:
			if runID != "" {
				fmt.Fprintf(os.Stderr, "\nInterrupted. Resume with --resume %s\n", runID)
			}
			return nil
		case err != nil:
			return fmt.Errorf("reading stream: %w", err)
		}
		if ev.RunID != "" {
			runID = ev.RunID
		}
		if err := r.Encode(ev); err != nil {
			return err
		}
	}
}

func init() {
	watchCmd.Flags().String("url", "http://localhost:8080", "server base URL")
	watchCmd.Flags().String("token", os.Getenv("INSIGHT_ENGINE_TOKEN"), "bearer token (default: $INSIGHT_ENGINE_TOKEN)")
	watchCmd.Flags().String("category", "", "run only this category")
	watchCmd.Flags().String("language", "", "response language tag")
	watchCmd.Flags().String("resume", "", "run ID of an interrupted run to continue")
	watchCmd.Flags().Bool("json", false, "print raw stream events instead of formatted output")

	rootCmd.AddCommand(watchCmd)
}
