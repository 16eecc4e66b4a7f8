package embedding

import (
	"context"
	"errors"
	"testing"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, text, model string) ([]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float64{float64(len(text)), float64(len(model))}, nil
}

func TestCachedEmbedder(t *testing.T) {
	next := &countingEmbedder{}
	c, err := NewCachedEmbedder(next, 2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := c.Embed(ctx, "red", ModelSimilarity); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(ctx, "red", ModelSimilarity); err != nil {
		t.Fatal(err)
	}
	if next.calls != 1 {
		t.Errorf("calls = %d, want 1", next.calls)
	}

	// Same text, other model is a separate entry.
	if _, err := c.Embed(ctx, "red", ModelSearch); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Errorf("calls = %d, want 2", next.calls)
	}

	// Capacity 2: a third key evicts the least recently used one.
	_, _ = c.Embed(ctx, "white", ModelSearch)
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestCachedEmbedder_errorsNotCached(t *testing.T) {
	next := &countingEmbedder{err: errors.New("down")}
	c, _ := NewCachedEmbedder(next, 4)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.Embed(ctx, "q", ModelSearch); err == nil {
			t.Fatal("expected error")
		}
	}
	if next.calls != 2 {
		t.Errorf("calls = %d, want 2", next.calls)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}
