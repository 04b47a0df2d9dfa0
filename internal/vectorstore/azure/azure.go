// Package azure stores and queries records in an Azure AI Search index
// through its REST API.
package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wellrag/internal/domain"
	"wellrag/internal/httpx"
	"wellrag/internal/vectorstore"
)

const DefaultAPIVersion = "2023-11-01"

type Config struct {
	Endpoint    string
	APIKey      string
	Index       string
	APIVersion  string
	VectorField string
	Timeout     time.Duration
}

// Storage talks to one search index. The index itself (fields id, content,
// metadata and the vector field) is provisioned outside this program.
type Storage struct {
	cfg    Config
	client *http.Client
}

func NewStorage(cfg Config) *Storage {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.VectorField == "" {
		cfg.VectorField = vectorstore.DefaultVectorField
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Storage{cfg: cfg, client: httpx.NewClient(cfg.Timeout)}
}

type indexField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Dimensions int    `json:"dimensions"`
}

// Init reads the index definition and checks that the vector field exists
// with the given dimensions.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrSchema, dimension)
	}
	if err := s.check(); err != nil {
		return err
	}
	var def struct {
		Fields []indexField `json:"fields"`
	}
	if err := httpx.Do(ctx, s.client, s.request("get index", http.MethodGet, s.indexURL(""), nil), &def); err != nil {
		return err
	}
	for _, f := range def.Fields {
		if f.Name != s.cfg.VectorField {
			continue
		}
		if f.Dimensions != dimension {
			return fmt.Errorf("%w: index %s field %s has %d dimensions, got %d",
				domain.ErrSchema, s.cfg.Index, f.Name, f.Dimensions, dimension)
		}
		return nil
	}
	return fmt.Errorf("%w: index %s has no field %s", domain.ErrSchema, s.cfg.Index, s.cfg.VectorField)
}

// Upload sends all records in one docs/index batch with the upload action.
// Per-document failures reported by the service fail the whole call.
func (s *Storage) Upload(ctx context.Context, records []domain.EmbeddedRecord) error {
	if err := s.check(); err != nil {
		return err
	}
	docs := make([]map[string]any, len(records))
	for i, r := range records {
		docs[i] = map[string]any{
			"@search.action":  "upload",
			"id":              r.ID,
			"content":         r.Content,
			"metadata":        r.Metadata,
			s.cfg.VectorField: r.ContentVector,
		}
	}
	var resp struct {
		Value []struct {
			Key          string `json:"key"`
			Status       bool   `json:"status"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"value"`
	}
	if err := httpx.Do(ctx, s.client, s.request("upload", http.MethodPost, s.indexURL("/docs/index"), map[string]any{"value": docs}), &resp); err != nil {
		return err
	}
	var failed []string
	for _, v := range resp.Value {
		if !v.Status {
			failed = append(failed, v.Key+": "+v.ErrorMessage)
		}
	}
	if len(failed) > 0 {
		return &domain.ServiceError{Service: "azure-search", Op: "upload",
			Err: fmt.Errorf("%d of %d documents rejected: %s", len(failed), len(records), strings.Join(failed, "; "))}
	}
	return nil
}

// Search runs a pure vector query; no search text is sent.
func (s *Storage) Search(ctx context.Context, vector []float32, k int) ([]domain.IndexedDocument, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	body := map[string]any{
		"select": "id,content,metadata",
		"vectorQueries": []map[string]any{{
			"kind":   "vector",
			"vector": vector,
			"fields": s.cfg.VectorField,
			"k":      k,
		}},
	}
	var resp struct {
		Value []struct {
			Score    float64 `json:"@search.score"`
			ID       string  `json:"id"`
			Content  string  `json:"content"`
			Metadata string  `json:"metadata"`
		} `json:"value"`
	}
	if err := httpx.Do(ctx, s.client, s.request("search", http.MethodPost, s.indexURL("/docs/search"), body), &resp); err != nil {
		return nil, err
	}
	docs := make([]domain.IndexedDocument, 0, len(resp.Value))
	for _, v := range resp.Value {
		docs = append(docs, domain.IndexedDocument{ID: v.ID, Content: v.Content, Metadata: v.Metadata, Score: v.Score})
	}
	return docs, nil
}

func (s *Storage) check() error {
	switch {
	case s.cfg.Endpoint == "":
		return fmt.Errorf("%w: azure search endpoint is not set", domain.ErrConfig)
	case s.cfg.APIKey == "":
		return fmt.Errorf("%w: azure search key is not set", domain.ErrConfig)
	case s.cfg.Index == "":
		return fmt.Errorf("%w: azure search index is not set", domain.ErrConfig)
	}
	return nil
}

func (s *Storage) indexURL(suffix string) string {
	return fmt.Sprintf("%s/indexes/%s%s?api-version=%s",
		s.cfg.Endpoint, url.PathEscape(s.cfg.Index), suffix, url.QueryEscape(s.cfg.APIVersion))
}

func (s *Storage) request(op, method, u string, body any) httpx.Request {
	r := httpx.Request{Service: "azure-search", Op: op, Method: method, URL: u, Header: http.Header{}}
	if body != nil {
		r.Body = body
	}
	r.Header.Set("api-key", s.cfg.APIKey)
	return r
}
