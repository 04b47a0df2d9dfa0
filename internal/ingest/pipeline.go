// Package ingest runs the offline stages that turn the standard's document
// into indexed records: chunk, embed and upload.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"wellrag/internal/chunker"
	"wellrag/internal/config"
	"wellrag/internal/document"
	"wellrag/internal/domain"
	"wellrag/internal/embedding"
	"wellrag/internal/indexer"
	"wellrag/internal/jsonl"
	"wellrag/internal/vectorstore"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageChunk  Stage = "chunk"
	StageEmbed  Stage = "embed"
	StageUpload Stage = "upload"
	StageAll    Stage = "all"
)

// ParseStage accepts the stage names understood by Run.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageChunk, StageEmbed, StageUpload, StageAll:
		return st, nil
	case "":
		return StageAll, nil
	default:
		return "", fmt.Errorf("%w: unknown stage %q (want chunk, embed, upload or all)", domain.ErrInput, s)
	}
}

// Pipeline wires the stages to the files named in config.IngestConfig.
type Pipeline struct {
	cfg      config.IngestConfig
	embedder embedding.Embedder
	indexer  *indexer.Indexer
	chunker  *chunker.FeatureChunker
	load     func(path string) ([]string, error)
	logger   *slog.Logger
}

type Option func(*Pipeline)

// WithLoader replaces the document loader.
func WithLoader(load func(path string) ([]string, error)) Option {
	return func(p *Pipeline) { p.load = load }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func New(cfg config.IngestConfig, emb embedding.Embedder, store vectorstore.Storage, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		embedder: emb,
		chunker:  chunker.NewFeatureChunker(),
		load:     document.Load,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(p)
	}
	p.indexer = indexer.New(emb, store, indexer.WithRateLimit(cfg.EmbedRPS), indexer.WithLogger(p.logger))
	return p
}

// Run executes stage. StageAll runs chunk, embed and upload in order and
// stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, stage Stage) error {
	switch stage {
	case StageChunk:
		_, err := p.Chunk()
		return err
	case StageEmbed:
		_, err := p.Embed(ctx)
		return err
	case StageUpload:
		_, err := p.Upload(ctx)
		return err
	case StageAll, "":
		if _, err := p.Chunk(); err != nil {
			return err
		}
		if _, err := p.Embed(ctx); err != nil {
			return err
		}
		_, err := p.Upload(ctx)
		return err
	default:
		return fmt.Errorf("%w: unknown stage %q", domain.ErrInput, stage)
	}
}

// Chunk loads the document, segments it by feature label and writes the
// segments to the chunks file.
func (p *Pipeline) Chunk() (int, error) {
	pages, err := p.load(p.cfg.DocumentPath)
	if err != nil {
		return 0, fmt.Errorf("load document: %w", err)
	}
	segments := p.chunker.Segment(pages)
	if err := jsonl.WriteFile(p.cfg.ChunksPath, segments); err != nil {
		return 0, fmt.Errorf("write chunks: %w", err)
	}
	p.logger.Info("chunked document", "pages", len(pages), "segments", len(segments), "path", p.cfg.ChunksPath)
	return len(segments), nil
}

// Embed reads the chunks file, embeds every segment and writes the records
// to the embeddings file.
func (p *Pipeline) Embed(ctx context.Context) (int, error) {
	segments, err := jsonl.ReadFile[domain.Segment](p.cfg.ChunksPath)
	if err != nil {
		return 0, fmt.Errorf("read chunks: %w", err)
	}
	corpus := make([]string, len(segments))
	for i, s := range segments {
		corpus[i] = s.Content
	}
	if err := p.embedder.Prepare(corpus); err != nil {
		return 0, fmt.Errorf("prepare embedder: %w", err)
	}
	records, err := p.indexer.Embed(ctx, segments)
	if err != nil {
		return 0, err
	}
	if err := jsonl.WriteFile(p.cfg.EmbeddingsPath, records); err != nil {
		return 0, fmt.Errorf("write embeddings: %w", err)
	}
	p.logger.Info("embedded segments", "records", len(records), "embedder", p.embedder.Name(), "path", p.cfg.EmbeddingsPath)
	return len(records), nil
}

// Upload reads the embeddings file and loads every record into the store.
func (p *Pipeline) Upload(ctx context.Context) (int, error) {
	records, err := jsonl.ReadFile[domain.EmbeddedRecord](p.cfg.EmbeddingsPath)
	if err != nil {
		return 0, fmt.Errorf("read embeddings: %w", err)
	}
	n, err := p.indexer.Upload(ctx, records)
	if err != nil {
		return 0, err
	}
	p.logger.Info("upload stage complete", "count", n, "path", p.cfg.EmbeddingsPath)
	return n, nil
}
