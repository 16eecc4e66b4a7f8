package embedding

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	vec []float64
	err error
}

func (s stubEmbedder) Embed(ctx context.Context, text, model string) ([]float64, error) {
	return s.vec, s.err
}

func TestRequire(t *testing.T) {
	refused := errors.New("connection refused")
	tests := []struct {
		name      string
		stub      stubEmbedder
		wantErr   bool
		wantCause error
	}{
		{"vector", stubEmbedder{vec: []float64{0.6, 0.8}}, false, nil},
		{"transport failure", stubEmbedder{err: refused}, true, refused},
		{"already upstream", stubEmbedder{err: ErrUpstream}, true, nil},
		{"empty vector", stubEmbedder{vec: []float64{}}, true, nil},
		{"nil vector", stubEmbedder{}, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Require(context.Background(), tt.stub, "cassis", ModelSimilarity)
			if !tt.wantErr {
				if err != nil || len(v) != 2 {
					t.Fatalf("got %v, %v", v, err)
				}
				return
			}
			if !errors.Is(err, ErrUpstream) {
				t.Fatalf("err = %v, want ErrUpstream", err)
			}
			if tt.wantCause != nil && !errors.Is(err, tt.wantCause) {
				t.Errorf("err = %v, cause lost", err)
			}
			if v != nil {
				t.Errorf("vector returned with error: %v", v)
			}
		})
	}
}
