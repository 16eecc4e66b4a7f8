package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

// Parse reads a header-first CSV table. The identifier column is kept verbatim; every other
// column must hold a JSON array of numbers. The first bad row aborts the parse, so a
// partial corpus is never returned. Vector lengths must agree across rows per column.
func Parse(r io.Reader, cols Columns) (*Corpus, error) {
	cols = cols.withDefaults()
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Corpus{}, nil
	}
	if err != nil {
		return nil, csvError(err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idCol, simCol, searchCol := -1, -1, -1
	for i, name := range header {
		switch name {
		case cols.ID:
			idCol = i
		case cols.Similarity:
			simCol = i
		case cols.Search:
			searchCol = i
		}
	}
	required := []struct {
		name string
		idx  int
	}{{cols.ID, idCol}, {cols.Similarity, simCol}, {cols.Search, searchCol}}
	for _, col := range required {
		if col.idx < 0 {
			return nil, &ParseError{Line: 1, Column: col.name, Err: errors.New("column missing from header")}
		}
	}

	c := &Corpus{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := cr.FieldPos(0)

		row := Row{ID: record[idCol]}
		for i, field := range record {
			if i == idCol {
				continue
			}
			vec, err := decodeVector(field)
			if err != nil {
				return nil, &ParseError{Line: line, Column: header[i], Err: err}
			}
			switch i {
			case simCol:
				row.Similarity = vec
			case searchCol:
				row.Search = vec
			}
		}

		if len(c.Rows) == 0 {
			c.SimilarityDims = len(row.Similarity)
			c.SearchDims = len(row.Search)
		}
		if len(row.Similarity) != c.SimilarityDims {
			return nil, &ParseError{Line: line, Column: cols.Similarity,
				Err: fmt.Errorf("vector has %d dimensions, corpus has %d", len(row.Similarity), c.SimilarityDims)}
		}
		if len(row.Search) != c.SearchDims {
			return nil, &ParseError{Line: line, Column: cols.Search,
				Err: fmt.Errorf("vector has %d dimensions, corpus has %d", len(row.Search), c.SearchDims)}
		}
		c.Rows = append(c.Rows, row)
	}
	return c, nil
}

func decodeVector(field string) ([]float64, error) {
	var raw []*float64
	if err := json.Unmarshal([]byte(field), &raw); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("empty vector")
	}
	vec := make([]float64, len(raw))
	for i, v := range raw {
		if v == nil {
			return nil, fmt.Errorf("decode vector: element %d is null", i)
		}
		vec[i] = *v
	}
	return vec, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}
