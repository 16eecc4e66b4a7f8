package corpus

import (
	"errors"
	"strings"
	"testing"
)

const sampleCSV = `0,curie_similarity,curie_search
note-a,"[1, 0]","[0.5, 0.5, 0]"
note-b,"[0, 1]","[0, 1, 0]"
note-c,"[0.9, 0.1]","[1, 0, 0]"
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleCSV), DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if c.SimilarityDims != 2 || c.SearchDims != 3 {
		t.Errorf("dims = %d/%d, want 2/3", c.SimilarityDims, c.SearchDims)
	}
	if c.Rows[2].ID != "note-c" || c.Rows[2].Similarity[0] != 0.9 || c.Rows[2].Search[0] != 1 {
		t.Errorf("row 2 = %+v", c.Rows[2])
	}
}

func TestParse_columnOrderAndExtraColumns(t *testing.T) {
	in := "curie_search,extra,0,curie_similarity\n" +
		`"[1,2]","[3]",id-1,"[4,5,6]"` + "\n"
	c, err := Parse(strings.NewReader(in), Columns{})
	if err != nil {
		t.Fatal(err)
	}
	row := c.Rows[0]
	if row.ID != "id-1" || len(row.Similarity) != 3 || len(row.Search) != 2 {
		t.Errorf("row = %+v", row)
	}
}

func TestParse_customColumns(t *testing.T) {
	in := "ref,sim,search\nx,\"[1]\",\"[2]\"\n"
	c, err := Parse(strings.NewReader(in), Columns{ID: "ref", Similarity: "sim", Search: "search"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Rows[0].ID != "x" {
		t.Errorf("ID = %q", c.Rows[0].ID)
	}
}

func TestParse_byteOrderMark(t *testing.T) {
	in := "\ufeff0,curie_similarity,curie_search\na,\"[1]\",\"[1]\"\n"
	c, err := Parse(strings.NewReader(in), DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	if c.Rows[0].ID != "a" {
		t.Errorf("ID = %q", c.Rows[0].ID)
	}
}

func TestParse_headerOnly(t *testing.T) {
	c, err := Parse(strings.NewReader("0,curie_similarity,curie_search\n"), DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestParse_errors(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantLine   int
		wantColumn string
	}{
		{
			name:       "missing column",
			in:         "0,curie_similarity\na,\"[1]\"\n",
			wantLine:   1,
			wantColumn: "curie_search",
		},
		{
			name:       "malformed json",
			in:         "0,curie_similarity,curie_search\na,\"[1]\",\"[1]\"\nb,\"[1,\",\"[1]\"\n",
			wantLine:   3,
			wantColumn: "curie_similarity",
		},
		{
			name:       "non-numeric array",
			in:         "0,curie_similarity,curie_search\na,\"[\"\"x\"\"]\",\"[1]\"\n",
			wantLine:   2,
			wantColumn: "curie_similarity",
		},
		{
			name:       "extra column must also decode",
			in:         "0,curie_similarity,curie_search,note\na,\"[1]\",\"[1]\",plain text\n",
			wantLine:   2,
			wantColumn: "note",
		},
		{
			name:       "null element",
			in:         "0,curie_similarity,curie_search\na,\"[1,null]\",\"[1,0]\"\n",
			wantLine:   2,
			wantColumn: "curie_similarity",
		},
		{
			name:       "null vector",
			in:         "0,curie_similarity,curie_search\na,\"[1]\",null\n",
			wantLine:   2,
			wantColumn: "curie_search",
		},
		{
			name:       "empty vector",
			in:         "0,curie_similarity,curie_search\na,[],\"[1]\"\n",
			wantLine:   2,
			wantColumn: "curie_similarity",
		},
		{
			name:       "dimension mismatch across rows",
			in:         "0,curie_similarity,curie_search\na,\"[1,0]\",\"[1]\"\nb,\"[1,0]\",\"[1,2]\"\n",
			wantLine:   3,
			wantColumn: "curie_search",
		},
		{
			name:     "wrong field count",
			in:       "0,curie_similarity,curie_search\na,\"[1]\"\n",
			wantLine: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(strings.NewReader(tt.in), DefaultColumns())
			if c != nil {
				t.Errorf("partial corpus returned: %+v", c)
			}
			if !errors.Is(err, ErrCorpusParse) {
				t.Fatalf("expected ErrCorpusParse, got %v", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (%v)", pe.Line, tt.wantLine, err)
			}
			if pe.Column != tt.wantColumn {
				t.Errorf("Column = %q, want %q", pe.Column, tt.wantColumn)
			}
		})
	}
}
