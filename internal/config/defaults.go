package config

import (
	"time"

	"github.com/hyperjump/sommelier/internal/corpus"
	"github.com/hyperjump/sommelier/internal/embedding"
	"github.com/hyperjump/sommelier/internal/resilience"
)

// DefaultCorpusKey is the object key of the combined tasting-note embeddings table.
const DefaultCorpusKey = "wine_tasting_notes_embeddings__curie_combined.csv"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 120
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/sommelier/data/db/wines.db"
	}
	if cfg.Corpus.Key == "" {
		cfg.Corpus.Key = DefaultCorpusKey
	}
	if cfg.Corpus.Region == "" {
		cfg.Corpus.Region = "eu-west-2"
	}
	if cfg.Corpus.FetchTimeout == 0 {
		cfg.Corpus.FetchTimeout = 30 * time.Second
	}
	def := corpus.DefaultColumns()
	if cfg.Corpus.Columns.ID == "" {
		cfg.Corpus.Columns.ID = def.ID
	}
	if cfg.Corpus.Columns.Similarity == "" {
		cfg.Corpus.Columns.Similarity = def.Similarity
	}
	if cfg.Corpus.Columns.Search == "" {
		cfg.Corpus.Columns.Search = def.Search
	}
	if cfg.OpenAI.URL == "" {
		cfg.OpenAI.URL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.Timeout == 0 {
		cfg.OpenAI.Timeout = 30 * time.Second
	}
	if cfg.OpenAI.SimilarityModel == "" {
		cfg.OpenAI.SimilarityModel = embedding.ModelSimilarity
	}
	if cfg.OpenAI.SearchModel == "" {
		cfg.OpenAI.SearchModel = embedding.ModelSearch
	}
	if cfg.OpenAI.CompletionModel == "" {
		cfg.OpenAI.CompletionModel = "davinci:ft-orderandchaos-2022-10-16-15-57-43"
	}
	if cfg.OpenAI.ReimagineModel == "" {
		cfg.OpenAI.ReimagineModel = "text-davinci-002"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4"
	}
	if cfg.OpenAI.EditModel == "" {
		cfg.OpenAI.EditModel = "text-davinci-edit-001"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Recommend.K == 0 {
		cfg.Recommend.K = 3
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialInterval == 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
}
