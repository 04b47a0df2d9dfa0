package vectorstore

import (
	"context"

	"wellrag/internal/domain"
)

// DefaultVectorField is the index field holding record vectors.
const DefaultVectorField = "content_vector"

// Storage persists embedded records and supports nearest-neighbor search.
type Storage interface {
	// Init checks that the store accepts vectors of the given dimension,
	// creating the collection where the backend allows it.
	Init(ctx context.Context, dimension int) error
	// Upload writes records keyed by ID in a single bulk request.
	Upload(ctx context.Context, records []domain.EmbeddedRecord) error
	// Search returns up to k records ranked by vector similarity.
	Search(ctx context.Context, vector []float32, k int) ([]domain.IndexedDocument, error)
}
