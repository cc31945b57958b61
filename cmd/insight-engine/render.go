// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/insight-engine/internal/catalog"
	"github.com/pdiddy/insight-engine/internal/stream"
	"github.com/pdiddy/insight-engine/pkg/types"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Light gray

	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")) // Yellow

	doneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82")) // Green

	rarityStyles = map[types.Rarity]lipgloss.Style{
		types.RarityCommon:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		types.RarityUncommon:  lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
		types.RarityRare:      lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		types.RarityEpic:      lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true),
		types.RarityLegendary: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	}
)

func rarityTag(r types.Rarity) string {
	style, ok := rarityStyles[r]
	if !ok {
		style = dimStyle
	}
	return style.Render(fmt.Sprintf("[%s]", strings.ToUpper(string(r))))
}

// eventRenderer prints stream events for a terminal, or as raw event lines
// when jsonOutput is set.
type eventRenderer struct {
	w        io.Writer
	json     *stream.Encoder
	category types.CategoryID
}

func newEventRenderer(w io.Writer, jsonOutput bool) *eventRenderer {
	r := &eventRenderer{w: w}
	if jsonOutput {
		r.json = stream.NewEncoder(w)
	}
	return r
}

// Encode implements research.Sink.
func (r *eventRenderer) Encode(ev stream.Event) error {
	if r.json != nil {
		return r.json.Encode(ev)
	}
	switch ev.Type {
	case stream.TypeInsight:
		ins := ev.Insight
		if ins == nil {
			return nil
		}
		if ins.Category != r.category {
			r.category = ins.Category
			title := string(ins.Category)
			if cat, ok := catalog.Default().Get(ins.Category); ok {
				title = cat.Title
			}
			fmt.Fprintf(r.w, "\n%s\n", headerStyle.Render(title))
		}
		fmt.Fprintf(r.w, "%s %s %.1f  %s\n", rarityTag(ins.Rarity), dimStyle.Render(ins.Presenter), ins.Score, ins.Content)
		source := ins.Source
		if u := ins.URL(); u != "" {
			source += " <" + u + ">"
		} else if !ins.Verified && ins.Source != "" {
			source += " (unverified)"
		}
		fmt.Fprintf(r.w, "    %s\n", dimStyle.Render(source))
	case stream.TypeProgress:
		fmt.Fprintln(r.w, progressStyle.Render(fmt.Sprintf("  %d/%d categories, %d insights, %d sources",
			ev.Completed, ev.Total, ev.InsightsCount, ev.TotalSources)))
	case stream.TypeDone:
		fmt.Fprintf(r.w, "\n%s\n", doneStyle.Render(fmt.Sprintf("Done: %d insights from %d sources", ev.TotalInsights, ev.TotalSources)))
		if ev.RunID != "" {
			fmt.Fprintln(r.w, dimStyle.Render("run "+ev.RunID))
		}
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
