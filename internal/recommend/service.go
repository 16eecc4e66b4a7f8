package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/sommelier/internal/corpus"
	"github.com/hyperjump/sommelier/internal/embedding"
	"github.com/hyperjump/sommelier/internal/metrics"
	"github.com/hyperjump/sommelier/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrMissingQuery is returned for an empty or blank query.
var ErrMissingQuery = errors.New("query is required")

// CorpusLoader provides the cached corpus.
type CorpusLoader interface {
	Load(ctx context.Context) (*corpus.Corpus, error)
	Cached() *corpus.Corpus
}

// Status describes the recommender for health reporting.
type Status struct {
	CorpusLoaded   bool `json:"corpus_loaded"`
	Rows           int  `json:"rows"`
	SimilarityDims int  `json:"similarity_dims"`
	SearchDims     int  `json:"search_dims"`
	K              int  `json:"k"`
}

// Service embeds a free-text query and ranks the corpus against it.
type Service struct {
	loader          CorpusLoader
	embedder        embedding.Embedder
	k               int
	similarityModel string
	searchModel     string
	logger          *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger for request outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithK sets how many ids are returned per criterion.
func WithK(k int) Option {
	return func(s *Service) { s.k = k }
}

// WithModels overrides the embedding models used for the two criteria.
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

// NewService creates a recommender returning three ids per criterion by default.
func NewService(loader CorpusLoader, embedder embedding.Embedder, opts ...Option) *Service {
	s := &Service{
		loader:          loader,
		embedder:        embedder,
		k:               3,
		similarityModel: embedding.ModelSimilarity,
		searchModel:     embedding.ModelSearch,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// K returns the number of ids returned per criterion.
func (s *Service) K() int { return s.k }

// Recommend loads the corpus, embeds query under both models concurrently and returns the
// best k ids per criterion.
func (s *Service) Recommend(ctx context.Context, query string) (*Result, error) {
	res, err := s.recommend(ctx, query)
	metrics.Recommendations.WithLabelValues(Outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("recommendation failed", zap.Error(err))
		return nil, err
	}
	s.logger.Debug("recommendation served",
		zap.Strings("recommend", res.Recommend),
		zap.Strings("search", res.Search),
	)
	return res, nil
}

func (s *Service) recommend(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrMissingQuery
	}
	if s.k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, s.k)
	}

	c, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	var similarity, search []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := embedding.Require(gctx, s.embedder, query, s.similarityModel)
		similarity = v
		return err
	})
	g.Go(func() error {
		v, err := embedding.Require(gctx, s.embedder, query, s.searchModel)
		search = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Rank(c, similarity, search, s.k)
}

// Status reports the cached corpus without triggering a load.
func (s *Service) Status() Status {
	st := Status{K: s.k}
	if c := s.loader.Cached(); c != nil {
		st.CorpusLoaded = true
		st.Rows = c.Len()
		st.SimilarityDims = c.SimilarityDims
		st.SearchDims = c.SearchDims
	}
	return st
}

// Outcome classifies err for metrics and logs.
func Outcome(err error) string {
	var parseErr *corpus.ParseError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrMissingQuery):
		return "missing_query"
	case errors.Is(err, corpus.ErrDataUnavailable):
		return "data_unavailable"
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.Is(err, embedding.ErrUpstream):
		return "upstream_failure"
	case errors.Is(err, ErrInsufficientResults):
		return "insufficient_results"
	case errors.Is(err, vector.ErrDimensionMismatch):
		return "dimension_mismatch"
	default:
		return "error"
	}
}
