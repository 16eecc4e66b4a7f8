// Package corpus loads the precomputed wine-note embedding table and caches it for the
// lifetime of the process.
package corpus

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the corpus bytes could not be fetched, or were empty.
	ErrDataUnavailable = errors.New("corpus data unavailable")
	// ErrCorpusParse is matched by every *ParseError.
	ErrCorpusParse = errors.New("corpus parse error")
)

// ParseError reports the first row that could not be decoded. The whole load fails with it.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("corpus parse error at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("corpus parse error at line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCorpusParse) match.
func (e *ParseError) Is(target error) bool { return target == ErrCorpusParse }

// Row is one stored tasting note: its opaque reference and the two embeddings computed at
// ingestion time, one per embedding model.
type Row struct {
	ID         string
	Similarity []float64
	Search     []float64
}

// Corpus is the immutable in-memory embedding table.
type Corpus struct {
	Rows           []Row
	SimilarityDims int
	SearchDims     int
}

// Len returns the number of rows.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Rows)
}

// Columns names the CSV header fields the corpus is read from.
type Columns struct {
	ID         string `yaml:"id"`
	Similarity string `yaml:"similarity"`
	Search     string `yaml:"search"`
}

// DefaultColumns matches the header of the curie embeddings export.
func DefaultColumns() Columns {
	return Columns{
		ID:         "0",
		Similarity: "curie_similarity",
		Search:     "curie_search",
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.ID == "" {
		c.ID = d.ID
	}
	if c.Similarity == "" {
		c.Similarity = d.Similarity
	}
	if c.Search == "" {
		c.Search = d.Search
	}
	return c
}
