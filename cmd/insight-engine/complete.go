// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/insight-engine/internal/validation"
)

var completeCmd = &cobra.Command{
	Use:   "complete <idea-id> <decisions.yaml>",
	Short: "Persist reviewed insights as per-category results and cards",
	Long: `Complete reads a YAML file of resonance decisions, one per reviewed insight,
aggregates them per category, and upserts the category results and cards.
The opportunity category also yields an overall verdict.

Artifact generation, when enabled, runs in the background; the command
waits for it before exiting.

Decision file format:

  language: en
  decisions:
    - resonated: true
      insight:
        id: 3f2a9c1d0b7e
        category: market
        content: ...
        score: 7.5`,
	Args: cobra.ExactArgs(2),
	RunE: runComplete,
}

type decisionFile struct {
	Language  string                `yaml:"language"`
	Decisions []validation.Decision `yaml:"decisions"`
}

func runComplete(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading decisions: %w", err)
	}
	var df decisionFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return fmt.Errorf("parsing decisions %s: %w", args[1], err)
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	idea, err := a.store.Idea(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading idea %s: %w", args[0], err)
	}

	sum, err := a.validation.Complete(ctx, validation.Request{
		IdeaID:    idea.ID,
		OwnerID:   idea.OwnerID,
		Idea:      idea,
		Language:  df.Language,
		Decisions: df.Decisions,
	})
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return printJSON(os.Stdout, sum)
	}
	for _, r := range sum.Results {
		fmt.Printf("%-14s %s  %d/%d kept  avg %.1f\n",
			r.Category, rarityTag(r.Rarity), r.ResonanceCount, len(r.Insights), r.AverageScore)
	}
	if sum.Verdict != "" {
		fmt.Println(doneStyle.Render("Verdict: " + string(sum.Verdict)))
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d categories failed to persist", sum.Failed)
	}
	if a.artifacts.Enabled() {
		fmt.Fprintln(os.Stderr, "Waiting for artifact generation...")
	}
	return nil
}

func init() {
	completeCmd.Flags().Bool("json", false, "output the summary as JSON")

	rootCmd.AddCommand(completeCmd)
}
