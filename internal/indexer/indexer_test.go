package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellrag/internal/domain"
	"wellrag/internal/vectorstore/memory"
)

type fakeEmbedder struct {
	embedFn func(text string) ([]float32, error)
	calls   []string
}

func (f *fakeEmbedder) Name() string           { return "fake" }
func (f *fakeEmbedder) Prepare([]string) error { return nil }
func (f *fakeEmbedder) Dimension() int         { return 2 }
func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.embedFn != nil {
		return f.embedFn(text)
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeStore struct {
	initDims []int
	uploads  [][]domain.EmbeddedRecord
	initErr  error
	err      error
}

func (s *fakeStore) Init(_ context.Context, dim int) error {
	s.initDims = append(s.initDims, dim)
	return s.initErr
}

func (s *fakeStore) Upload(_ context.Context, records []domain.EmbeddedRecord) error {
	s.uploads = append(s.uploads, records)
	return s.err
}

func (s *fakeStore) Search(context.Context, []float32, int) ([]domain.IndexedDocument, error) {
	return nil, nil
}

var segments = []domain.Segment{
	{Feature: "A01", PageStart: 2, PageEnd: 3, Content: "A01 purpose text\nmore text"},
	{Feature: "B02", PageStart: 4, PageEnd: 6, Content: "B02 other text"},
	{Feature: "A01", PageStart: 7, PageEnd: 7, Content: "A01 again"},
}

func TestEmbedBuildsPositionalIDsAndMetadata(t *testing.T) {
	emb := &fakeEmbedder{}
	records, err := New(emb, &fakeStore{}).Embed(context.Background(), segments)

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"A01_0", "B02_1", "A01_2"}, []string{records[0].ID, records[1].ID, records[2].ID})
	assert.Equal(t, "A01 pages 2-3", records[0].Metadata)
	assert.Equal(t, "B02 pages 4-6", records[1].Metadata)
	assert.Equal(t, segments[0].Content, records[0].Content)
	assert.Equal(t, []string{segments[0].Content, segments[1].Content, segments[2].Content}, emb.calls)

	again, err := New(&fakeEmbedder{}, &fakeStore{}).Embed(context.Background(), segments)
	require.NoError(t, err)
	assert.Equal(t, records, again)
}

func TestIndexAllUploadsOnce(t *testing.T) {
	store := &fakeStore{}
	n, err := New(&fakeEmbedder{}, store).IndexAll(context.Background(), segments)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{2}, store.initDims)
	require.Len(t, store.uploads, 1)
	assert.Len(t, store.uploads[0], 3)
}

func TestIndexAllZeroSegments(t *testing.T) {
	store := &fakeStore{err: errors.New("must not be called")}
	n, err := New(&fakeEmbedder{}, store).IndexAll(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, store.uploads)
}

func TestEmbedFailureAborts(t *testing.T) {
	emb := &fakeEmbedder{embedFn: func(text string) ([]float32, error) {
		if text == "B02 other text" {
			return nil, &domain.ServiceError{Service: "azure-openai", Op: "embeddings", StatusCode: 429}
		}
		return []float32{1, 1}, nil
	}}
	store := &fakeStore{}

	_, err := New(emb, store).IndexAll(context.Background(), segments)

	assert.ErrorIs(t, err, domain.ErrService)
	assert.ErrorContains(t, err, "segment 1 (B02)")
	assert.Len(t, emb.calls, 2)
	assert.Empty(t, store.uploads)
}

func TestUploadFailureIsReported(t *testing.T) {
	store := &fakeStore{err: &domain.ServiceError{Service: "azure-search", Op: "upload", StatusCode: 503}}

	n, err := New(&fakeEmbedder{}, store).IndexAll(context.Background(), segments)

	assert.ErrorIs(t, err, domain.ErrService)
	assert.Equal(t, 0, n)
}

func TestUploadRejectsMixedDimensions(t *testing.T) {
	store := &fakeStore{}
	_, err := New(&fakeEmbedder{}, store).Upload(context.Background(), []domain.EmbeddedRecord{
		{ID: "A01_0", ContentVector: []float32{1, 2}},
		{ID: "B02_1", ContentVector: []float32{1, 2, 3}},
	})

	assert.ErrorIs(t, err, domain.ErrSchema)
	assert.Empty(t, store.initDims)
}

func TestUploadSchemaMismatchStopsBeforeUpload(t *testing.T) {
	store := &fakeStore{initErr: domain.ErrSchema}
	_, err := New(&fakeEmbedder{}, store).IndexAll(context.Background(), segments)

	assert.ErrorIs(t, err, domain.ErrSchema)
	assert.Empty(t, store.uploads)
}

func TestIndexAllIntoMemoryStore(t *testing.T) {
	store := memory.NewStorage()
	n, err := New(&fakeEmbedder{}, store).IndexAll(context.Background(), segments)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, store.Len())
}

func TestRateLimitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	many := make([]domain.Segment, 5)
	for i := range many {
		many[i] = domain.Segment{Feature: "A01", Content: "x"}
	}

	_, err := New(&fakeEmbedder{}, &fakeStore{}, WithRateLimit(1)).Embed(ctx, many)

	assert.Error(t, err)
}
