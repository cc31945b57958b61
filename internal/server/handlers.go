// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/insight-engine/internal/research"
	"github.com/pdiddy/insight-engine/internal/stream"
	"github.com/pdiddy/insight-engine/internal/validation"
	"github.com/pdiddy/insight-engine/pkg/types"
)

const maxBodyBytes = 4 << 20

type researchBody struct {
	IdeaID      string           `json:"ideaId"`
	Language    string           `json:"language"`
	Category    types.CategoryID `json:"category,omitempty"`
	ResumeToken string           `json:"resumeToken,omitempty"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var body researchBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req := research.Request{
		Idea:        types.IdeaProfile{ID: body.IdeaID},
		Language:    body.Language,
		Category:    body.Category,
		ResumeToken: body.ResumeToken,
	}
	if _, err := s.research.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	idea, ok := s.ownedIdea(w, r, body.IdeaID)
	if !ok {
		return
	}
	req.Idea = idea

	sink := &sseSink{w: w}
	_, err := s.research.Run(r.Context(), req, sink)
	if err == nil || sink.started {
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("research stream ended early", zap.String("idea", idea.ID), zap.Error(err))
		}
		return
	}
	switch {
	case errors.Is(err, research.ErrResumeMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, research.ErrMissingIdea), errors.Is(err, research.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Error("research run failed", zap.String("idea", idea.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// sseSink commits the event-stream headers on the first event so that a
// run rejected before emitting can still answer with a JSON error.
type sseSink struct {
	w       http.ResponseWriter
	enc     *stream.Encoder
	started bool
}

func (s *sseSink) Encode(ev stream.Event) error {
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.enc = stream.NewEncoder(s.w)
		s.started = true
	}
	return s.enc.Encode(ev)
}

type completeBody struct {
	Language  string                `json:"language"`
	Decisions []validation.Decision `json:"decisions"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var body completeBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	idea, ok := s.ownedIdea(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	sum, err := s.validation.Complete(r.Context(), validation.Request{
		IdeaID:    idea.ID,
		OwnerID:   idea.OwnerID,
		Idea:      idea,
		Language:  body.Language,
		Decisions: body.Decisions,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type resultsBody struct {
	IdeaID        string               `json:"ideaId"`
	Results       []types.ResultRecord `json:"results"`
	Cards         []types.CardRecord   `json:"cards"`
	ResumableRuns []string             `json:"resumableRuns,omitempty"`
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	idea, ok := s.ownedIdea(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	ctx := r.Context()
	out := resultsBody{IdeaID: idea.ID, Results: []types.ResultRecord{}, Cards: []types.CardRecord{}}

	results, err := s.store.Results(ctx, idea.ID)
	if err != nil {
		s.logger.Error("loading results", zap.String("idea", idea.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	cards, err := s.store.Cards(ctx, idea.ID)
	if err != nil {
		s.logger.Error("loading cards", zap.String("idea", idea.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out.Results = append(out.Results, results...)
	out.Cards = append(out.Cards, cards...)

	if s.checkpoints != nil {
		runs, err := s.checkpoints.Runs(ctx, idea.ID)
		if err != nil {
			s.logger.Warn("listing resumable runs", zap.String("idea", idea.ID), zap.Error(err))
		}
		out.ResumableRuns = runs
	}
	writeJSON(w, http.StatusOK, out)
}
