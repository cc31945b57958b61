// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/insight-engine/pkg/types"
)

var ideaCmd = &cobra.Command{
	Use:   "idea",
	Short: "Manage idea profiles in the store",
}

var ideaImportCmd = &cobra.Command{
	Use:   "import <idea.yaml>",
	Short: "Import or replace an idea profile from YAML",
	Long: `Import reads an idea profile (id, owner_id, name, description,
target_audience, problem, solution, competitors, why_now, analogy, category
and per-field scores) and upserts it into the store.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdeaImport,
}

func runIdeaImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading idea: %w", err)
	}
	var idea types.IdeaProfile
	if err := yaml.Unmarshal(data, &idea); err != nil {
		return fmt.Errorf("parsing idea %s: %w", args[0], err)
	}
	if owner, _ := cmd.Flags().GetString("owner"); owner != "" {
		idea.OwnerID = owner
	}
	if idea.ID == "" || idea.OwnerID == "" {
		return errors.New("idea requires id and owner_id")
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.PutIdea(ctx, idea); err != nil {
		return err
	}
	fmt.Printf("Imported idea %s (%s) for %s\n", idea.ID, idea.Name, idea.OwnerID)
	return nil
}

func init() {
	ideaImportCmd.Flags().String("owner", "", "override the owner_id in the file")

	ideaCmd.AddCommand(ideaImportCmd)
	rootCmd.AddCommand(ideaCmd)
}
