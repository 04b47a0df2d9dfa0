package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"wellrag/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Records are keyed by ID; uploading an existing ID replaces it.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	records   []domain.EmbeddedRecord
	byID      map[string]int
}

func NewStorage() *Storage { return &Storage{byID: make(map[string]int)} }

// Init fixes the store dimension. A store that already holds vectors of a
// different dimension rejects the change.
func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrSchema, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension && len(s.records) > 0 {
		return fmt.Errorf("%w: store holds %d-dimensional vectors, got %d", domain.ErrSchema, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upload(_ context.Context, records []domain.EmbeddedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if len(r.ContentVector) != s.dimension {
			return fmt.Errorf("%w: record %s has dimension %d, store expects %d", domain.ErrSchema, r.ID, len(r.ContentVector), s.dimension)
		}
	}
	for _, r := range records {
		if i, ok := s.byID[r.ID]; ok {
			s.records[i] = r
			continue
		}
		s.byID[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, k int) ([]domain.IndexedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.records) == 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, store expects %d", domain.ErrSchema, len(vector), s.dimension)
	}
	scores := make([]float64, len(s.records))
	for i := range s.records {
		scores[i] = cosine(s.records[i].ContentVector, vector)
	}
	idxs := argsortDesc(scores)
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.IndexedDocument, 0, k)
	for _, j := range idxs[:k] {
		r := s.records[j]
		results = append(results, domain.IndexedDocument{ID: r.ID, Content: r.Content, Metadata: r.Metadata, Score: scores[j]})
	}
	return results, nil
}

// Len returns the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// argsortDesc orders indexes by descending score; ties keep upload order.
func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool { return vals[idxs[i]] > vals[idxs[j]] })
	return idxs
}
