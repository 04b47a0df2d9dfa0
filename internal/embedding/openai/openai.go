package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wellrag/internal/domain"
	"wellrag/internal/httpx"
)

// Flavor selects the wire dialect of the embeddings endpoint.
type Flavor string

const (
	// Azure targets an Azure OpenAI deployment.
	Azure Flavor = "azure"
	// Compatible targets an OpenAI-compatible API (OpenAI, Ollama, vLLM).
	Compatible Flavor = "openai"
)

const DefaultAPIVersion = "2024-02-01"

// Client is an embeddings client implementing the Embedder interface.
type Client struct {
	flavor     Flavor
	baseURL    string
	apiKey     string
	apiVersion string
	model      string
	dimension  int
	client     *http.Client
}

// Config configures the embeddings client. For Azure, BaseURL is the
// resource endpoint and Model the deployment name.
type Config struct {
	Flavor     Flavor
	BaseURL    string
	APIKey     string
	APIVersion string
	Model      string
	Timeout    time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
// Missing endpoint or credentials are reported on the first Embed call.
func NewClient(cfg Config) *Client {
	if cfg.Flavor == "" {
		cfg.Flavor = Azure
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	return &Client{
		flavor:     cfg.Flavor,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		model:      cfg.Model,
		client:     httpx.NewClient(cfg.Timeout),
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return string(c.flavor) }

// Prepare is not required for remote embedding. Dimension is learned on first embed.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors,
// or 0 before the first successful call.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text cannot be embedded", domain.ErrInput)
	}
	req, err := c.request(text)
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		// Ollama-native shape.
		Embedding []float32 `json:"embedding"`
	}
	if err := httpx.Do(ctx, c.client, req, &out); err != nil {
		return nil, err
	}
	v := out.Embedding
	if len(out.Data) > 0 {
		v = out.Data[0].Embedding
	}
	if len(v) == 0 {
		return nil, &domain.ServiceError{Service: c.service(), Op: "embeddings", Err: fmt.Errorf("no embedding returned")}
	}
	if c.dimension == 0 {
		c.dimension = len(v)
	}
	return v, nil
}

func (c *Client) request(text string) (httpx.Request, error) {
	if c.baseURL == "" {
		return httpx.Request{}, fmt.Errorf("%w: %s embeddings endpoint is not set", domain.ErrConfig, c.flavor)
	}
	if c.model == "" {
		return httpx.Request{}, fmt.Errorf("%w: %s embedding model is not set", domain.ErrConfig, c.flavor)
	}
	r := httpx.Request{Service: c.service(), Op: "embeddings", Method: http.MethodPost, Header: http.Header{}}
	switch c.flavor {
	case Azure:
		if c.apiKey == "" {
			return httpx.Request{}, fmt.Errorf("%w: azure openai api key is not set", domain.ErrConfig)
		}
		r.URL = fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
			c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiVersion))
		r.Header.Set("api-key", c.apiKey)
		r.Body = map[string]any{"input": text}
	default:
		r.URL = c.baseURL + "/embeddings"
		if c.apiKey != "" {
			r.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		r.Body = map[string]any{"input": text, "prompt": text, "model": c.model}
	}
	return r, nil
}

func (c *Client) service() string {
	if c.flavor == Azure {
		return "azure-openai"
	}
	return "openai"
}
