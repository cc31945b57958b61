// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/insight-engine/internal/research"
	"github.com/pdiddy/insight-engine/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <idea-id>",
	Short: "Run research for an imported idea and stream the insights",
	Long: `Research runs every research category for an idea in order (market,
competitors, user insight, risk, opportunity), or only the one named by
--category. Insights print as soon as each category finishes.

Interrupt with Ctrl-C and pass the printed run ID to --resume to continue
from the last completed category.`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	idea, err := a.store.Idea(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading idea %s: %w", args[0], err)
	}

	category, _ := cmd.Flags().GetString("category")
	language, _ := cmd.Flags().GetString("language")
	resume, _ := cmd.Flags().GetString("resume")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	sum, err := a.orchestrator.Run(ctx, research.Request{
		Idea:        idea,
		Language:    language,
		Category:    types.CategoryID(category),
		ResumeToken: resume,
	}, newEventRenderer(os.Stdout, jsonOutput))
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "\nInterrupted. Resume with: insight-engine research %s --resume %s\n", idea.ID, sum.RunID)
		return nil
	}
	return err
}

func init() {
	researchCmd.Flags().String("category", "", "run only this category: market, competitors, user_insight, risk, opportunity")
	researchCmd.Flags().String("language", "", "response language tag (e.g. en, de)")
	researchCmd.Flags().String("resume", "", "run ID of an interrupted run to continue")
	researchCmd.Flags().Bool("json", false, "print raw stream events instead of formatted output")

	rootCmd.AddCommand(researchCmd)
}
