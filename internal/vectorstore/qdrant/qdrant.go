package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"wellrag/internal/domain"
	"wellrag/internal/httpx"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     httpx.NewClient(timeout),
	}
}

// PointID maps a record ID to the UUID Qdrant stores it under. Qdrant only
// accepts integer or UUID point ids.
func PointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

// Init creates the collection when it does not exist and otherwise checks
// that its vector size matches dimension.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrSchema, dimension)
	}
	if err := s.check(); err != nil {
		return err
	}
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := httpx.Do(ctx, s.client, s.request("get collection", http.MethodGet, s.collectionURL(), nil), &info)
	var se *domain.ServiceError
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != dimension {
			return fmt.Errorf("%w: qdrant collection %s has size %d, got %d", domain.ErrSchema, s.collection, size, dimension)
		}
		return nil
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		return httpx.Do(ctx, s.client, s.request("create collection", http.MethodPut, s.collectionURL(), body), nil)
	default:
		return err
	}
}

func (s *Storage) Upload(ctx context.Context, records []domain.EmbeddedRecord) error {
	if err := s.check(); err != nil {
		return err
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     PointID(r.ID),
			"vector": r.ContentVector,
			"payload": map[string]any{
				"id":       r.ID,
				"content":  r.Content,
				"metadata": r.Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	return httpx.Do(ctx, s.client, s.request("upsert points", http.MethodPut, s.collectionURL()+"/points?wait=true", body), nil)
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int) ([]domain.IndexedDocument, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				ID       string `json:"id"`
				Content  string `json:"content"`
				Metadata string `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := httpx.Do(ctx, s.client, s.request("search", http.MethodPost, s.collectionURL()+"/points/search", body), &resp); err != nil {
		return nil, err
	}
	results := make([]domain.IndexedDocument, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.IndexedDocument{
			ID:       r.Payload.ID,
			Content:  r.Payload.Content,
			Metadata: r.Payload.Metadata,
			Score:    r.Score,
		})
	}
	return results, nil
}

func (s *Storage) check() error {
	if s.url == "" || s.collection == "" {
		return fmt.Errorf("%w: qdrant url and collection must be set", domain.ErrConfig)
	}
	return nil
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, url.PathEscape(s.collection))
}

func (s *Storage) request(op, method, u string, body any) httpx.Request {
	r := httpx.Request{Service: "qdrant", Op: op, Method: method, URL: u, Header: http.Header{}}
	if body != nil {
		r.Body = body
	}
	if s.apiKey != "" {
		r.Header.Set("api-key", s.apiKey)
	}
	return r
}
