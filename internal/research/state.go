// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"github.com/pdiddy/insight-engine/internal/checkpoint"
	"github.com/pdiddy/insight-engine/internal/stream"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// Phase is the position of a run in its per-category state machine.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseSearching    Phase = "searching"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseEmitting     Phase = "emitting"
	PhaseDone         Phase = "done"
)

// RunState is the transient state of one run. It is bound to a single idea
// and discarded after the done event.
type RunState struct {
	RunID        string
	Phase        Phase
	Cursor       int
	TotalSources int

	// Seq is the last emission index; the first insight carries 1.
	Seq int

	emitted []types.Insight
	resumed bool
}

func restore(cp *checkpoint.Checkpoint) *RunState {
	return &RunState{
		RunID:        cp.RunID,
		Phase:        PhaseIdle,
		Cursor:       cp.Cursor,
		TotalSources: cp.TotalSources,
		emitted:      append([]types.Insight(nil), cp.Insights...),
		resumed:      true,
	}
}

// replay re-sends the insights of completed categories followed by one
// progress event, so a resuming client can rebuild its view.
func (st *RunState) replay(sink Sink, total int) error {
	if !st.resumed {
		return nil
	}
	for _, ins := range st.emitted {
		st.Seq++
		if err := sink.Encode(stream.InsightEvent(ins, st.TotalSources, st.Seq)); err != nil {
			return err
		}
	}
	if st.Cursor == 0 {
		return nil
	}
	return sink.Encode(stream.ProgressEvent(st.Cursor, total, len(st.emitted), st.TotalSources, st.RunID))
}

func (st *RunState) summary() Summary {
	return Summary{
		RunID:         st.RunID,
		TotalInsights: len(st.emitted),
		TotalSources:  st.TotalSources,
		Resumed:       st.resumed,
	}
}
