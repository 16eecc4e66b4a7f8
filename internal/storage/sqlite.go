package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/sommelier/internal/models"
)

// NoteSKSeparator joins a wine sort key and a note id into the note's sort key.
const NoteSKSeparator = "_NOTE#"

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS wines (
		user_id TEXT NOT NULL,
		sk TEXT NOT NULL,
		name TEXT NOT NULL,
		style TEXT NOT NULL,
		country TEXT NOT NULL,
		region TEXT NOT NULL,
		vineyard TEXT NOT NULL,
		vintage INTEGER NOT NULL,
		score REAL NOT NULL,
		flavour_profile TEXT NOT NULL,
		detail_prompt TEXT,
		starter_text TEXT,
		tasting_note TEXT,
		tasting_note_sk TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, sk)
	);

	CREATE INDEX IF NOT EXISTS idx_wines_user_created ON wines(user_id, created_at);

	CREATE TABLE IF NOT EXISTS tasting_notes (
		user_id TEXT NOT NULL,
		sk TEXT NOT NULL,
		wine_sk TEXT NOT NULL,
		text TEXT NOT NULL,
		similarity_embedding TEXT NOT NULL,
		search_embedding TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, sk)
	);

	CREATE INDEX IF NOT EXISTS idx_notes_wine ON tasting_notes(user_id, wine_sk, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const wineColumns = `user_id, sk, name, style, country, region, vineyard, vintage, score,
	flavour_profile, detail_prompt, starter_text, tasting_note, tasting_note_sk, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWine(row rowScanner) (*models.Wine, error) {
	var w models.Wine
	var flavours string
	var detailPrompt, starterText, tastingNote, tastingNoteSK sql.NullString
	if err := row.Scan(&w.UserID, &w.SK, &w.Name, &w.Style, &w.Country, &w.Region, &w.Vineyard,
		&w.Vintage, &w.Score, &flavours, &detailPrompt, &starterText, &tastingNote, &tastingNoteSK,
		&w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(flavours), &w.FlavourProfile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flavour profile: %w", err)
	}
	w.DetailPrompt = detailPrompt.String
	w.StarterText = starterText.String
	w.TastingNote = tastingNote.String
	w.TastingNoteSK = tastingNoteSK.String
	return &w, nil
}

// CreateWine inserts a wine, assigning a new sort key when SK is empty.
func (s *SQLiteStorage) CreateWine(ctx context.Context, wine *models.Wine) error {
	flavours, err := json.Marshal(nonNil(wine.FlavourProfile))
	if err != nil {
		return fmt.Errorf("failed to marshal flavour profile: %w", err)
	}
	if wine.SK == "" {
		wine.SK = uuid.New().String()
	}
	now := time.Now().UTC()
	wine.CreatedAt = now
	wine.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO wines (`+wineColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wine.UserID, wine.SK, wine.Name, wine.Style, wine.Country, wine.Region, wine.Vineyard,
		wine.Vintage, wine.Score, string(flavours), wine.DetailPrompt, wine.StarterText,
		wine.TastingNote, wine.TastingNoteSK, wine.CreatedAt, wine.UpdatedAt,
	)
	return err
}

// GetWine returns a wine by user and sort key.
func (s *SQLiteStorage) GetWine(ctx context.Context, userID, sk string) (*models.Wine, error) {
	w, err := scanWine(s.db.QueryRowContext(ctx,
		`SELECT `+wineColumns+` FROM wines WHERE user_id = ? AND sk = ?`, userID, sk,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wine %s: %w", sk, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// UpdateWine replaces the editable fields of an existing wine. CreatedAt and the selected
// tasting note are kept.
func (s *SQLiteStorage) UpdateWine(ctx context.Context, wine *models.Wine) error {
	flavours, err := json.Marshal(nonNil(wine.FlavourProfile))
	if err != nil {
		return fmt.Errorf("failed to marshal flavour profile: %w", err)
	}

	wine.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE wines SET name = ?, style = ?, country = ?, region = ?, vineyard = ?, vintage = ?,
		 score = ?, flavour_profile = ?, detail_prompt = ?, starter_text = ?, tasting_note = ?,
		 updated_at = ?
		 WHERE user_id = ? AND sk = ?`,
		wine.Name, wine.Style, wine.Country, wine.Region, wine.Vineyard, wine.Vintage,
		wine.Score, string(flavours), wine.DetailPrompt, wine.StarterText, wine.TastingNote,
		wine.UpdatedAt, wine.UserID, wine.SK,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("wine %s: %w", wine.SK, ErrNotFound)
	}
	return nil
}

// DeleteWine removes a wine and its tasting notes.
func (s *SQLiteStorage) DeleteWine(ctx context.Context, userID, sk string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM wines WHERE user_id = ? AND sk = ?`, userID, sk)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("wine %s: %w", sk, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tasting_notes WHERE user_id = ? AND wine_sk = ?`, userID, sk,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ListWines returns a user's wines, newest first, with offset and limit.
func (s *SQLiteStorage) ListWines(ctx context.Context, userID string, offset, limit int) ([]*models.Wine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+wineColumns+` FROM wines WHERE user_id = ?
		 ORDER BY created_at DESC, sk LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wines := []*models.Wine{}
	for rows.Next() {
		w, err := scanWine(rows)
		if err != nil {
			return nil, err
		}
		wines = append(wines, w)
	}
	return wines, rows.Err()
}

// CreateTastingNote stores a note with its embeddings. The wine must exist. The note's sort
// key is derived from the wine's when empty.
func (s *SQLiteStorage) CreateTastingNote(ctx context.Context, note *models.TastingNote) error {
	similarity, err := json.Marshal(nonNilVec(note.SimilarityEmbedding))
	if err != nil {
		return fmt.Errorf("failed to marshal similarity embedding: %w", err)
	}
	search, err := json.Marshal(nonNilVec(note.SearchEmbedding))
	if err != nil {
		return fmt.Errorf("failed to marshal search embedding: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM wines WHERE user_id = ? AND sk = ?`, note.UserID, note.WineSK,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("wine %s: %w", note.WineSK, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if note.SK == "" {
		note.SK = note.WineSK + NoteSKSeparator + uuid.New().String()
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tasting_notes (user_id, sk, wine_sk, text, similarity_embedding, search_embedding, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		note.UserID, note.SK, note.WineSK, note.Text, string(similarity), string(search),
		note.CreatedAt, note.UpdatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ListTastingNotes returns the notes of a wine, oldest first.
func (s *SQLiteStorage) ListTastingNotes(ctx context.Context, userID, wineSK string) ([]*models.TastingNote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, sk, wine_sk, text, similarity_embedding, search_embedding, created_at, updated_at
		 FROM tasting_notes WHERE user_id = ? AND wine_sk = ? ORDER BY created_at, sk`,
		userID, wineSK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []*models.TastingNote{}
	for rows.Next() {
		var n models.TastingNote
		var similarity, search string
		if err := rows.Scan(&n.UserID, &n.SK, &n.WineSK, &n.Text, &similarity, &search, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(similarity), &n.SimilarityEmbedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal similarity embedding: %w", err)
		}
		if err := json.Unmarshal([]byte(search), &n.SearchEmbedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal search embedding: %w", err)
		}
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

// SelectTastingNote marks noteSK as the wine's current tasting note. Both must exist.
func (s *SQLiteStorage) SelectTastingNote(ctx context.Context, userID, wineSK, noteSK string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM tasting_notes WHERE user_id = ? AND wine_sk = ? AND sk = ?`, userID, wineSK, noteSK,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("tasting note %s: %w", noteSK, ErrNotFound)
	}
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE wines SET tasting_note_sk = ?, updated_at = ? WHERE user_id = ? AND sk = ?`,
		noteSK, time.Now().UTC(), userID, wineSK,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("wine %s: %w", wineSK, ErrNotFound)
	}
	return tx.Commit()
}

// CountWines returns the total number of wines.
func (s *SQLiteStorage) CountWines(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wines`).Scan(&count)
	return count, err
}

// CountTastingNotes returns the total number of tasting notes.
func (s *SQLiteStorage) CountTastingNotes(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasting_notes`).Scan(&count)
	return count, err
}

// SizeBytes returns the on-disk size of the database including its WAL files.
// An in-memory database reports 0.
func (s *SQLiteStorage) SizeBytes() (int64, error) {
	if s.path == ":memory:" {
		return 0, nil
	}
	var total int64
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilVec(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
