// Package winelist manages a user's wines and the tasting notes attached to them.
package winelist

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/sommelier/internal/embedding"
	"github.com/hyperjump/sommelier/internal/models"
	"github.com/hyperjump/sommelier/internal/storage"
	"github.com/hyperjump/sommelier/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service validates wine-list requests and persists them.
type Service struct {
	store           storage.Storage
	embedder        embedding.Embedder
	similarityModel string
	searchModel     string
	logger          *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithModels overrides the embedding models applied to new tasting notes.
func WithModels(similarity, search string) Option {
	return func(s *Service) {
		if similarity != "" {
			s.similarityModel = similarity
		}
		if search != "" {
			s.searchModel = search
		}
	}
}

// NewService creates a wine-list service.
func NewService(store storage.Storage, embedder embedding.Embedder, opts ...Option) *Service {
	s := &Service{
		store:           store,
		embedder:        embedder,
		similarityModel: embedding.ModelSimilarity,
		searchModel:     embedding.ModelSearch,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWine validates in and stores it as a new wine for userID.
func (s *Service) CreateWine(ctx context.Context, userID string, in *models.WineInput) (*models.Wine, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	wine := &models.Wine{UserID: userID}
	in.Apply(wine)
	if err := s.store.CreateWine(ctx, wine); err != nil {
		return nil, fmt.Errorf("create wine: %w", err)
	}
	s.logger.Info("wine created", zap.String("user_id", userID), zap.String("sk", wine.SK))
	return wine, nil
}

// GetWine returns one wine.
func (s *Service) GetWine(ctx context.Context, userID, sk string) (*models.Wine, error) {
	return s.store.GetWine(ctx, userID, sk)
}

// ListWines returns a page of the user's wines.
func (s *Service) ListWines(ctx context.Context, userID string, offset, limit int) ([]*models.Wine, error) {
	return s.store.ListWines(ctx, userID, offset, limit)
}

// UpdateWine replaces the editable fields of an existing wine.
func (s *Service) UpdateWine(ctx context.Context, userID, sk string, in *models.WineInput) (*models.Wine, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	wine, err := s.store.GetWine(ctx, userID, sk)
	if err != nil {
		return nil, err
	}
	in.Apply(wine)
	if err := s.store.UpdateWine(ctx, wine); err != nil {
		return nil, fmt.Errorf("update wine: %w", err)
	}
	return wine, nil
}

// DeleteWine removes a wine and its notes.
func (s *Service) DeleteWine(ctx context.Context, userID, sk string) error {
	if err := s.store.DeleteWine(ctx, userID, sk); err != nil {
		return err
	}
	s.logger.Info("wine deleted", zap.String("user_id", userID), zap.String("sk", sk))
	return nil
}

// AddTastingNote embeds the note text under both models and stores it against the wine.
func (s *Service) AddTastingNote(ctx context.Context, userID, wineSK string, in *models.TastingNoteInput) (*models.TastingNote, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetWine(ctx, userID, wineSK); err != nil {
		return nil, err
	}

	note := &models.TastingNote{UserID: userID, WineSK: wineSK, Text: in.Text}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := embedding.Require(gctx, s.embedder, in.Text, s.similarityModel)
		note.SimilarityEmbedding = v
		return err
	})
	g.Go(func() error {
		v, err := embedding.Require(gctx, s.embedder, in.Text, s.searchModel)
		note.SearchEmbedding = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.store.CreateTastingNote(ctx, note); err != nil {
		return nil, fmt.Errorf("create tasting note: %w", err)
	}
	s.logger.Info("tasting note added",
		zap.String("user_id", userID),
		zap.String("sk", note.SK),
		zap.Int("similarity_dims", len(note.SimilarityEmbedding)),
		zap.Int("search_dims", len(note.SearchEmbedding)),
	)
	return note, nil
}

// ListTastingNotes returns the notes of an existing wine.
func (s *Service) ListTastingNotes(ctx context.Context, userID, wineSK string) ([]*models.TastingNote, error) {
	if _, err := s.store.GetWine(ctx, userID, wineSK); err != nil {
		return nil, err
	}
	return s.store.ListTastingNotes(ctx, userID, wineSK)
}

// SelectTastingNote sets the wine's current tasting note and returns the updated wine.
func (s *Service) SelectTastingNote(ctx context.Context, userID, wineSK string, in *models.SelectTastingNoteInput) (*models.Wine, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.store.SelectTastingNote(ctx, userID, wineSK, in.TastingNoteSK); err != nil {
		return nil, err
	}
	return s.store.GetWine(ctx, userID, wineSK)
}
