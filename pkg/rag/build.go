package rag

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jbdamask/coursebot/pkg/agent"
	"github.com/jbdamask/coursebot/pkg/config"
	"github.com/jbdamask/coursebot/pkg/course"
	"github.com/jbdamask/coursebot/pkg/embedding"
	"github.com/jbdamask/coursebot/pkg/embedding/openai"
	"github.com/jbdamask/coursebot/pkg/embedding/tfidf"
	"github.com/jbdamask/coursebot/pkg/history"
	"github.com/jbdamask/coursebot/pkg/llm"
	"github.com/jbdamask/coursebot/pkg/search"
	"github.com/jbdamask/coursebot/pkg/vectorstore"
	"github.com/jbdamask/coursebot/pkg/vectorstore/memory"
	"github.com/jbdamask/coursebot/pkg/vectorstore/qdrant"
)

// FromConfig assembles a System from configuration. Without an API key the
// system still runs with a mock language model.
func FromConfig(cfg *config.Config) (*System, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	catalog, content := newStorages(cfg)
	store := search.NewStore(embedder, catalog, content, cfg.Search.MaxResults)

	generator := agent.NewGenerator(newClient(cfg), agent.Options{
		MaxRounds:   cfg.Generation.MaxRounds,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
	})

	sessions := history.NewManager(cfg.Session.MaxHistory)
	if cfg.Session.TranscriptDir != "" {
		transcript, err := history.NewTranscript(cfg.Session.TranscriptDir)
		if err != nil {
			return nil, err
		}
		sessions.WithTranscript(transcript)
	}

	loader := course.NewLoader(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	return New(store, loader, generator, sessions), nil
}

func newClient(cfg *config.Config) llm.Client {
	key := cfg.APIKey()
	if key == "" {
		log.WithField("env", cfg.Anthropic.APIKeyEnv).Warn("No API key set, using mock language model")
		return llm.NewMockClient()
	}
	return llm.NewAnthropicClient(llm.AnthropicConfig{
		APIKey:    key,
		BaseURL:   cfg.Anthropic.BaseURL,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Timeout:   time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
	})
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return client, nil
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
}

func newStorages(cfg *config.Config) (vectorstore.Storage, vectorstore.Storage) {
	if cfg.VectorStore.Type != "qdrant" || cfg.VectorStore.Qdrant == nil {
		return memory.NewStorage(), memory.NewStorage()
	}
	qc := cfg.VectorStore.Qdrant
	newCollection := func(name string) vectorstore.Storage {
		return qdrant.NewStorage(qdrant.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: qc.Prefix + "_" + name,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		})
	}
	return newCollection("course_catalog"), newCollection("course_content")
}
