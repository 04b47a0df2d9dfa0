// Package bootstrap assembles pipeline components from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"wellrag/internal/completion"
	chatopenai "wellrag/internal/completion/openai"
	"wellrag/internal/config"
	"wellrag/internal/domain"
	"wellrag/internal/embedding"
	"wellrag/internal/embedding/openai"
	"wellrag/internal/embedding/tfidf"
	"wellrag/internal/jsonl"
	"wellrag/internal/vectorstore"
	"wellrag/internal/vectorstore/azure"
	"wellrag/internal/vectorstore/memory"
	"wellrag/internal/vectorstore/qdrant"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// NewEmbedder returns the embedder selected by cfg.Type.
func NewEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "azure", "":
		az := cfg.Azure
		if az == nil {
			az = &config.AzureOpenAIConfig{}
		}
		return openai.NewClient(openai.Config{
			Flavor:     openai.Azure,
			BaseURL:    az.Endpoint,
			APIKey:     az.APIKey,
			APIVersion: az.APIVersion,
			Model:      az.Deployment,
			Timeout:    seconds(az.TimeoutSecs),
		}), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrConfig)
		}
		return openai.NewClient(openai.Config{
			Flavor:  openai.Compatible,
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  os.Getenv(cfg.OpenAI.APIKeyEnv),
			Model:   cfg.OpenAI.Model,
			Timeout: seconds(cfg.OpenAI.TimeoutSecs),
		}), nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrConfig, cfg.Type)
	}
}

// NewCompleter returns the chat model client selected by cfg.Type.
func NewCompleter(cfg config.CompletionConfig) (completion.Completer, error) {
	switch cfg.Type {
	case "azure", "":
		az := cfg.Azure
		if az == nil {
			az = &config.AzureOpenAIConfig{}
		}
		return chatopenai.NewClient(chatopenai.Config{
			Flavor:     chatopenai.Azure,
			BaseURL:    az.Endpoint,
			APIKey:     az.APIKey,
			APIVersion: az.APIVersion,
			Model:      az.Deployment,
			Timeout:    seconds(az.TimeoutSecs),
		}), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai completion config missing", domain.ErrConfig)
		}
		return chatopenai.NewClient(chatopenai.Config{
			Flavor:  chatopenai.Compatible,
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  os.Getenv(cfg.OpenAI.APIKeyEnv),
			Model:   cfg.OpenAI.Model,
			Timeout: seconds(cfg.OpenAI.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown completion backend %q", domain.ErrConfig, cfg.Type)
	}
}

// NewStore returns the vector store selected by cfg.Type.
func NewStore(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "azure", "":
		s := cfg.Azure
		if s == nil {
			s = &config.AzureSearchConfig{}
		}
		return azure.NewStorage(azure.Config{
			Endpoint:    s.Endpoint,
			APIKey:      s.APIKey,
			Index:       s.Index,
			APIVersion:  s.APIVersion,
			VectorField: s.VectorField,
			Timeout:     seconds(s.TimeoutSecs),
		}), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("%w: qdrant config missing", domain.ErrConfig)
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    seconds(cfg.Qdrant.TimeoutSecs),
		}), nil
	case "memory":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrConfig, cfg.Type)
	}
}

// PrepareQuery readies local components for answering questions. A TF-IDF
// embedder is fitted on the chunk corpus and an in-memory store is loaded
// from the embeddings file. Remote components need nothing.
func PrepareQuery(ctx context.Context, cfg config.IngestConfig, emb embedding.Embedder, store vectorstore.Storage, log *slog.Logger) error {
	if emb.Name() == "tfidf" {
		segments, err := jsonl.ReadFile[domain.Segment](cfg.ChunksPath)
		if err != nil {
			return fmt.Errorf("read chunks: %w", err)
		}
		corpus := make([]string, len(segments))
		for i, s := range segments {
			corpus[i] = s.Content
		}
		if err := emb.Prepare(corpus); err != nil {
			return fmt.Errorf("fit tfidf: %w", err)
		}
		log.Info("fitted tfidf vocabulary", "documents", len(corpus), "dimension", emb.Dimension())
	}
	if mem, ok := store.(*memory.Storage); ok {
		records, err := jsonl.ReadFile[domain.EmbeddedRecord](cfg.EmbeddingsPath)
		if err != nil {
			return fmt.Errorf("read embeddings: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := mem.Init(ctx, len(records[0].ContentVector)); err != nil {
			return err
		}
		if err := mem.Upload(ctx, records); err != nil {
			return err
		}
		log.Info("loaded in-memory index", "records", mem.Len())
	}
	return nil
}
