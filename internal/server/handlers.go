package server

import (
	"net/http"

	"github.com/hyperjump/sommelier/internal/models"
	"go.uber.org/zap"
)

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.logger.Debug("recommendation request", zap.String("query", req.Query))
	res, err := s.recommender.Recommend(r.Context(), req.Query)
	if err != nil {
		s.respondErr(w, "recommendation", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req models.CompletionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	res, err := s.tasting.Complete(r.Context(), req.Prompt)
	if err != nil {
		s.respondErr(w, "completion", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleReimagine(w http.ResponseWriter, r *http.Request) {
	var req models.ReimagineRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	res, err := s.tasting.Reimagine(r.Context(), req.TastingNotes)
	if err != nil {
		s.respondErr(w, "reimagine", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	res, err := s.tasting.Chat(r.Context(), req.Notes, req.Wine, r.Header.Get("X-User-ID"))
	if err != nil {
		s.respondErr(w, "chat", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req models.EditRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	res, err := s.tasting.Edit(r.Context(), req.Input, req.Instruction)
	if err != nil {
		s.respondErr(w, "edit", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sizer interface {
	SizeBytes() (int64, error)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wineCount, err := s.storage.CountWines(ctx)
	if err != nil {
		s.respondErr(w, "status: count wines", err)
		return
	}
	noteCount, err := s.storage.CountTastingNotes(ctx)
	if err != nil {
		s.respondErr(w, "status: count tasting notes", err)
		return
	}
	resp := map[string]interface{}{
		"wines":         wineCount,
		"tasting_notes": noteCount,
		"recommender":   s.recommender.Status(),
	}
	if sz, ok := s.storage.(sizer); ok {
		if n, err := sz.SizeBytes(); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}
