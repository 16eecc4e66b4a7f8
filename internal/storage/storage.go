// Package storage defines the persistence interface for wines and their tasting notes.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/sommelier/internal/models"
)

// ErrNotFound is returned when a wine or tasting note does not exist for the user.
var ErrNotFound = errors.New("not found")

// Storage defines wine-list persistence operations. Every record is scoped by user id.
type Storage interface {
	// Wine operations
	CreateWine(ctx context.Context, wine *models.Wine) error
	GetWine(ctx context.Context, userID, sk string) (*models.Wine, error)
	UpdateWine(ctx context.Context, wine *models.Wine) error
	DeleteWine(ctx context.Context, userID, sk string) error
	ListWines(ctx context.Context, userID string, offset, limit int) ([]*models.Wine, error)

	// Tasting note operations
	CreateTastingNote(ctx context.Context, note *models.TastingNote) error
	ListTastingNotes(ctx context.Context, userID, wineSK string) ([]*models.TastingNote, error)
	SelectTastingNote(ctx context.Context, userID, wineSK, noteSK string) error

	// Stats
	CountWines(ctx context.Context) (int64, error)
	CountTastingNotes(ctx context.Context) (int64, error)

	Close() error
}
