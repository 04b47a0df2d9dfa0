package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellrag/internal/domain"
)

func TestDoSendsJSONAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "ping", in["msg"])
		_, _ = w.Write([]byte(`{"msg":"pong"}`))
	}))
	defer srv.Close()

	var out struct {
		Msg string `json:"msg"`
	}
	err := Do(context.Background(), srv.Client(), Request{
		Service: "test", Op: "echo", Method: http.MethodPost, URL: srv.URL,
		Header: http.Header{"api-key": []string{"secret"}},
		Body:   map[string]string{"msg": "ping"},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "pong", out.Msg)
}

func TestDoReportsStatusAsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 2000), http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := Do(context.Background(), srv.Client(), Request{Service: "test", Op: "get", Method: http.MethodGet, URL: srv.URL}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrService)
	var se *domain.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Len(t, se.Body, maxErrorBody+3)
}

func TestDoReportsBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := Do(context.Background(), srv.Client(), Request{Service: "test", Op: "get", Method: http.MethodGet, URL: srv.URL}, &out)

	assert.ErrorIs(t, err, domain.ErrService)
}

func TestDoReportsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := Do(context.Background(), NewClient(0), Request{Service: "test", Op: "get", Method: http.MethodGet, URL: url}, nil)

	assert.ErrorIs(t, err, domain.ErrService)
}
