package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/hyperjump/sommelier/internal/corpus"
	"github.com/hyperjump/sommelier/internal/embedding"
	"github.com/hyperjump/sommelier/internal/models"
	"github.com/hyperjump/sommelier/internal/openai"
	"github.com/hyperjump/sommelier/internal/recommend"
	"github.com/hyperjump/sommelier/internal/storage"
	"github.com/hyperjump/sommelier/internal/tasting"
	"github.com/hyperjump/sommelier/internal/validation"
	"github.com/hyperjump/sommelier/internal/vector"
	"go.uber.org/zap"
)

// Error codes returned in the "error" field of failed responses.
const (
	CodeInvalidBody         = "INVALID_REQUEST_BODY"
	CodeMissingQuery        = "MISSING_QUERY"
	CodeMissingPrompt       = "MISSING_PROMPT"
	CodeMissingTastingNotes = "MISSING_TASTING_NOTES"
	CodeMissingNotes        = "MISSING_NOTES"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeDataRequest         = "DATA_REQUEST_ERROR"
	CodeCorpusParse         = "CORPUS_PARSE_ERROR"
	CodeDimensionMismatch   = "DIMENSION_MISMATCH"
	CodeInsufficientResults = "FAILED_TO_RETRIEVE_N_RESULTS"
	CodeAIRequest           = "AI_REQUEST_ERROR"
	CodeRequestError        = "REQUEST_ERROR"
	CodeTimeout             = "REQUEST_TIMEOUT"
	CodeRequestFailure      = "REQUEST_FAILURE"
)

// classify maps a service error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, recommend.ErrMissingQuery):
		return http.StatusBadRequest, CodeMissingQuery
	case errors.Is(err, tasting.ErrMissingPrompt):
		return http.StatusBadRequest, CodeMissingPrompt
	case errors.Is(err, tasting.ErrMissingTastingNotes):
		return http.StatusBadRequest, CodeMissingTastingNotes
	case errors.Is(err, tasting.ErrMissingNotes):
		return http.StatusBadRequest, CodeMissingNotes
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, corpus.ErrDataUnavailable):
		return http.StatusInternalServerError, CodeDataRequest
	case errors.Is(err, corpus.ErrCorpusParse):
		return http.StatusInternalServerError, CodeCorpusParse
	case errors.Is(err, vector.ErrDimensionMismatch):
		return http.StatusInternalServerError, CodeDimensionMismatch
	case errors.Is(err, recommend.ErrInsufficientResults), errors.Is(err, recommend.ErrEmptyCorpus):
		return http.StatusInternalServerError, CodeInsufficientResults
	case errors.Is(err, embedding.ErrUpstream):
		return http.StatusBadGateway, CodeAIRequest
	case errors.Is(err, openai.ErrRequest):
		return http.StatusInternalServerError, CodeRequestError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeRequestFailure
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, code string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: code})
}

// respondErr writes the response for a failed service call. Server-side failures are logged.
func (s *Server) respondErr(w http.ResponseWriter, op string, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		s.respondJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   CodeValidation,
			Message: verr.Error(),
			Details: verr.Fields,
		})
		return
	}
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.String("code", code), zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.String("code", code), zap.Error(err))
	}
	s.respondError(w, status, code)
}

// decodeBody decodes a JSON body into v, writing the error response on failure. An empty
// body leaves v at its zero value so the missing fields are reported by the service.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, CodeInvalidBody)
		return false
	}
	return true
}
