package indexer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/time/rate"

	"wellrag/internal/domain"
	"wellrag/internal/embedding"
	"wellrag/internal/vectorstore"
)

// Indexer embeds segments and bulk-loads them into a vector store.
type Indexer struct {
	embedder embedding.Embedder
	store    vectorstore.Storage
	limiter  *rate.Limiter
	logger   *slog.Logger
}

type Option func(*Indexer)

// WithRateLimit paces embedding calls to rps requests per second.
// Zero or negative leaves calls unpaced.
func WithRateLimit(rps float64) Option {
	return func(ix *Indexer) {
		if rps > 0 {
			ix.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(ix *Indexer) { ix.logger = l }
}

func New(emb embedding.Embedder, store vectorstore.Storage, opts ...Option) *Indexer {
	ix := &Indexer{
		embedder: emb,
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// RecordID is positional: a label that repeats gets a distinct id only
// through its index in the segment list.
func RecordID(feature string, i int) string {
	return fmt.Sprintf("%s_%d", feature, i)
}

// RecordMetadata is the human-readable page range of a segment.
func RecordMetadata(s domain.Segment) string {
	return fmt.Sprintf("%s pages %d-%d", s.Feature, s.PageStart, s.PageEnd)
}

// Embed turns each segment into a record, one embedding call per segment
// in input order. The first failure aborts the run.
func (ix *Indexer) Embed(ctx context.Context, segments []domain.Segment) ([]domain.EmbeddedRecord, error) {
	records := make([]domain.EmbeddedRecord, 0, len(segments))
	for i, s := range segments {
		if ix.limiter != nil {
			if err := ix.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		vec, err := ix.embedder.Embed(ctx, s.Content)
		if err != nil {
			return nil, fmt.Errorf("embed segment %d (%s): %w", i, s.Feature, err)
		}
		records = append(records, domain.EmbeddedRecord{
			ID:            RecordID(s.Feature, i),
			Content:       s.Content,
			Metadata:      RecordMetadata(s),
			ContentVector: vec,
		})
		ix.logger.Debug("embedded segment", "id", records[i].ID, "dimension", len(vec))
	}
	return records, nil
}

// Upload checks that all records share one dimension accepted by the store
// and submits them in a single bulk request. It returns the number uploaded.
func (ix *Indexer) Upload(ctx context.Context, records []domain.EmbeddedRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	dim := len(records[0].ContentVector)
	for _, r := range records {
		if len(r.ContentVector) != dim {
			return 0, fmt.Errorf("%w: record %s has dimension %d, expected %d", domain.ErrSchema, r.ID, len(r.ContentVector), dim)
		}
	}
	if err := ix.store.Init(ctx, dim); err != nil {
		return 0, fmt.Errorf("prepare index: %w", err)
	}
	if err := ix.store.Upload(ctx, records); err != nil {
		return 0, fmt.Errorf("upload %d records: %w", len(records), err)
	}
	ix.logger.Info("uploaded records", "count", len(records), "dimension", dim)
	return len(records), nil
}

// IndexAll embeds segments and uploads the resulting records.
func (ix *Indexer) IndexAll(ctx context.Context, segments []domain.Segment) (int, error) {
	records, err := ix.Embed(ctx, segments)
	if err != nil {
		return 0, err
	}
	return ix.Upload(ctx, records)
}
