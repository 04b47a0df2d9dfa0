package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellrag/internal/domain"
)

func TestAzureEmbed(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/openai/deployments/embed-small/embeddings", r.URL.Path)
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "k", r.Header.Get("api-key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "What is A01?", body["input"])
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Flavor: Azure, BaseURL: srv.URL + "/", APIKey: "k", Model: "embed-small"})
	assert.Equal(t, 0, c.Dimension())

	v, err := c.Embed(context.Background(), "What is A01?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
	assert.Equal(t, 3, c.Dimension())

	_, err = c.Embed(context.Background(), "What is A01?")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "identical text is embedded again")
}

func TestCompatibleEmbedAcceptsOllamaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"embedding":[1,2]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Flavor: Compatible, BaseURL: srv.URL, APIKey: "k", Model: "nomic-embed-text"})
	v, err := c.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)
	assert.Equal(t, "openai", c.Name())
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused", APIKey: "k", Model: "m"})

	_, err := c.Embed(context.Background(), "   ")

	assert.ErrorIs(t, err, domain.ErrInput)
}

func TestEmbedMissingConfigFailsAtFirstUse(t *testing.T) {
	c := NewClient(Config{Flavor: Azure, Model: "m"})

	_, err := c.Embed(context.Background(), "text")

	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestEmbedDoesNotRetryOnFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{Flavor: Azure, BaseURL: srv.URL, APIKey: "k", Model: "m"})
	_, err := c.Embed(context.Background(), "text")

	assert.ErrorIs(t, err, domain.ErrService)
	assert.Equal(t, 1, calls)
}

func TestEmbedEmptyPayloadIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{Flavor: Azure, BaseURL: srv.URL, APIKey: "k", Model: "m"})
	_, err := c.Embed(context.Background(), "text")

	assert.ErrorIs(t, err, domain.ErrService)
}
