// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/insight-engine/pkg/types"
)

var resultsCmd = &cobra.Command{
	Use:   "results <idea-id>",
	Short: "Show persisted results and cards for an idea",
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.store.Results(ctx, args[0])
	if err != nil {
		return err
	}
	cards, err := a.store.Cards(ctx, args[0])
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return printJSON(os.Stdout, struct {
			Results []types.ResultRecord `json:"results"`
			Cards   []types.CardRecord   `json:"cards"`
		}{results, cards})
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	status := make(map[types.CategoryID]types.CardRecord, len(cards))
	for _, c := range cards {
		status[c.Category] = c
	}

	fmt.Fprintf(os.Stdout, "%-14s  %-12s  %-6s  %-6s  %-15s  %s\n",
		"Category", "Rarity", "Kept", "Avg", "Verdict", "Artifact")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 70))
	for _, r := range results {
		verdict := string(r.Verdict)
		if verdict == "" {
			verdict = "-"
		}
		fmt.Fprintf(os.Stdout, "%-14s  %-12s  %-6s  %-6.1f  %-15s  %s\n",
			r.Category, r.Rarity, fmt.Sprintf("%d/%d", r.ResonanceCount, len(r.Insights)),
			r.AverageScore, verdict, status[r.Category].ArtifactStatus)
	}
	for _, c := range cards {
		fmt.Printf("\n%s %s\n  %s\n", rarityTag(c.Rarity), headerStyle.Render(c.Title), c.Summary)
		if c.ArtifactRef != "" {
			fmt.Println(dimStyle.Render("  " + c.ArtifactRef))
		}
	}
	return nil
}

func init() {
	resultsCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(resultsCmd)
}
