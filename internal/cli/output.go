// Package cli formats command output for the sommelier CLI.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/hyperjump/sommelier/internal/recommend"
	"github.com/hyperjump/sommelier/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteRecommendation writes a recommendation result for query to w.
func WriteRecommendation(w io.Writer, query string, res *recommend.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "\nRecommendations for %q\n\n", utils.Truncate(query, 60))
	writeList(w, "Similar notes", res.Recommend)
	writeList(w, "Search matches", res.Search)
	return nil
}

func writeList(w io.Writer, title string, ids []string) {
	fmt.Fprintf(w, "--- %s ---\n", title)
	for i, id := range ids {
		fmt.Fprintf(w, "%2d. %s\n", i+1, id)
	}
	fmt.Fprintln(w)
}

// WriteStatus writes recommender status to w.
func WriteStatus(w io.Writer, st recommend.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	if !st.CorpusLoaded {
		fmt.Fprintln(w, "Corpus: not loaded")
		fmt.Fprintf(w, "K: %d\n", st.K)
		return nil
	}
	fmt.Fprintf(w, "Corpus rows:     %d\n", st.Rows)
	fmt.Fprintf(w, "Similarity dims: %d\n", st.SimilarityDims)
	fmt.Fprintf(w, "Search dims:     %d\n", st.SearchDims)
	fmt.Fprintf(w, "K:               %d\n", st.K)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
