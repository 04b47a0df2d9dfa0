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

// Flavor selects the wire dialect of the chat completions endpoint.
type Flavor string

const (
	Azure      Flavor = "azure"
	Compatible Flavor = "openai"
)

const DefaultAPIVersion = "2024-02-01"

// Config configures the chat client. For Azure, BaseURL is the resource
// endpoint and Model the chat deployment name.
type Config struct {
	Flavor     Flavor
	BaseURL    string
	APIKey     string
	APIVersion string
	Model      string
	Timeout    time.Duration
}

// Client sends single-message chat completions.
type Client struct {
	cfg    Config
	client *http.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewClient(cfg Config) *Client {
	if cfg.Flavor == "" {
		cfg.Flavor = Azure
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, client: httpx.NewClient(cfg.Timeout)}
}

// Complete sends prompt as the only user message and returns the first
// choice's content unmodified.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	req, err := c.request(prompt)
	if err != nil {
		return "", err
	}
	var out struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}
	if err := httpx.Do(ctx, c.client, req, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", &domain.ServiceError{Service: req.Service, Op: req.Op, Err: fmt.Errorf("no choices returned")}
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) request(prompt string) (httpx.Request, error) {
	if c.cfg.BaseURL == "" {
		return httpx.Request{}, fmt.Errorf("%w: %s chat endpoint is not set", domain.ErrConfig, c.cfg.Flavor)
	}
	if c.cfg.Model == "" {
		return httpx.Request{}, fmt.Errorf("%w: %s chat model is not set", domain.ErrConfig, c.cfg.Flavor)
	}
	body := map[string]any{
		"model":    c.cfg.Model,
		"messages": []message{{Role: "user", Content: prompt}},
	}
	r := httpx.Request{Op: "chat completions", Method: http.MethodPost, Header: http.Header{}, Body: body}
	switch c.cfg.Flavor {
	case Azure:
		if c.cfg.APIKey == "" {
			return httpx.Request{}, fmt.Errorf("%w: azure openai api key is not set", domain.ErrConfig)
		}
		r.Service = "azure-openai"
		r.URL = fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			c.cfg.BaseURL, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIVersion))
		r.Header.Set("api-key", c.cfg.APIKey)
	default:
		r.Service = "openai"
		r.URL = c.cfg.BaseURL + "/chat/completions"
		if c.cfg.APIKey != "" {
			r.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}
	}
	return r, nil
}
