package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/sommelier/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func (s *Server) handleListWines(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	wines, err := s.wines.ListWines(r.Context(), chi.URLParam(r, "userID"), offset, limit)
	if err != nil {
		s.respondErr(w, "list wines", err)
		return
	}
	s.respondJSON(w, http.StatusOK, wines)
}

func (s *Server) handleCreateWine(w http.ResponseWriter, r *http.Request) {
	var in models.WineInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	wine, err := s.wines.CreateWine(r.Context(), chi.URLParam(r, "userID"), &in)
	if err != nil {
		s.respondErr(w, "create wine", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, wine)
}

func (s *Server) handleGetWine(w http.ResponseWriter, r *http.Request) {
	wine, err := s.wines.GetWine(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "sk"))
	if err != nil {
		s.respondErr(w, "get wine", err)
		return
	}
	s.respondJSON(w, http.StatusOK, wine)
}

func (s *Server) handleUpdateWine(w http.ResponseWriter, r *http.Request) {
	var in models.WineInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	wine, err := s.wines.UpdateWine(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "sk"), &in)
	if err != nil {
		s.respondErr(w, "update wine", err)
		return
	}
	s.respondJSON(w, http.StatusOK, wine)
}

func (s *Server) handleDeleteWine(w http.ResponseWriter, r *http.Request) {
	sk := chi.URLParam(r, "sk")
	if err := s.wines.DeleteWine(r.Context(), chi.URLParam(r, "userID"), sk); err != nil {
		s.respondErr(w, "delete wine", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"sk": sk, "status": "deleted"})
}

func (s *Server) handleListTastingNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.wines.ListTastingNotes(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "sk"))
	if err != nil {
		s.respondErr(w, "list tasting notes", err)
		return
	}
	s.respondJSON(w, http.StatusOK, notes)
}

func (s *Server) handleAddTastingNote(w http.ResponseWriter, r *http.Request) {
	var in models.TastingNoteInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	note, err := s.wines.AddTastingNote(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "sk"), &in)
	if err != nil {
		s.respondErr(w, "add tasting note", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, note)
}

func (s *Server) handleSelectTastingNote(w http.ResponseWriter, r *http.Request) {
	var in models.SelectTastingNoteInput
	if !s.decodeBody(w, r, &in) {
		return
	}
	wine, err := s.wines.SelectTastingNote(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "sk"), &in)
	if err != nil {
		s.respondErr(w, "select tasting note", err)
		return
	}
	s.respondJSON(w, http.StatusOK, wine)
}

// pagination reads offset and limit query parameters, clamping bad values.
func pagination(r *http.Request) (offset, limit int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return offset, limit
}
