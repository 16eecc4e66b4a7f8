package corpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hyperjump/sommelier/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Source yields the raw corpus table. Implementations live in the blob package.
type Source interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
}

const defaultFetchTimeout = 30 * time.Second

// Loader fetches and parses the corpus once and hands out the cached result afterwards.
// Concurrent first callers share a single fetch. A failed load installs nothing, so the
// next call fetches again. There is no refresh path.
type Loader struct {
	source  Source
	columns Columns
	timeout time.Duration
	logger  *zap.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	corpus *Corpus
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets a logger for load events.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) { ld.logger = l }
}

// WithColumns overrides the CSV header names.
func WithColumns(c Columns) LoaderOption {
	return func(ld *Loader) { ld.columns = c.withDefaults() }
}

// WithFetchTimeout bounds a single fetch-and-parse. The shared fetch does not inherit the
// cancellation of whichever caller started it.
func WithFetchTimeout(d time.Duration) LoaderOption {
	return func(ld *Loader) {
		if d > 0 {
			ld.timeout = d
		}
	}
}

// NewLoader creates a loader reading from source.
func NewLoader(source Source, opts ...LoaderOption) *Loader {
	ld := &Loader{
		source:  source,
		columns: DefaultColumns(),
		timeout: defaultFetchTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Cached returns the installed corpus, or nil before the first successful load.
func (ld *Loader) Cached() *Corpus {
	ld.mu.RLock()
	defer ld.mu.RUnlock()
	return ld.corpus
}

// Load returns the cached corpus, fetching it first if needed.
func (ld *Loader) Load(ctx context.Context) (*Corpus, error) {
	if c := ld.Cached(); c != nil {
		return c, nil
	}
	ch := ld.group.DoChan("corpus", func() (interface{}, error) {
		if c := ld.Cached(); c != nil {
			return c, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ld.timeout)
		defer cancel()
		c, err := ld.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		ld.mu.Lock()
		ld.corpus = c
		ld.mu.Unlock()
		return c, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Corpus), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ld *Loader) fetch(ctx context.Context) (*Corpus, error) {
	start := time.Now()
	defer func() { metrics.CorpusLoadDuration.Observe(time.Since(start).Seconds()) }()

	c, err := ld.fetchAndParse(ctx)
	if err != nil {
		result := "unavailable"
		if errors.Is(err, ErrCorpusParse) {
			result = "parse_error"
		}
		metrics.CorpusLoads.WithLabelValues(result).Inc()
		ld.logger.Error("corpus load failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	metrics.CorpusLoads.WithLabelValues("success").Inc()
	metrics.CorpusRows.Set(float64(c.Len()))
	ld.logger.Info("corpus loaded",
		zap.Int("rows", c.Len()),
		zap.Int("similarity_dims", c.SimilarityDims),
		zap.Int("search_dims", c.SearchDims),
		zap.Duration("elapsed", time.Since(start)),
	)
	return c, nil
}

func (ld *Loader) fetchAndParse(ctx context.Context) (*Corpus, error) {
	body, err := ld.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: empty response body", ErrDataUnavailable)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDataUnavailable, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrDataUnavailable)
	}

	c, err := Parse(bytes.NewReader(data), ld.columns)
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, fmt.Errorf("%w: corpus has no rows", ErrDataUnavailable)
	}
	return c, nil
}
