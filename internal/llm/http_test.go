package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSONSetsHeadersAndReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL,
		map[string]any{"model": "m"},
		map[string]string{"Authorization": "Bearer sk-test"},
		"req-1", quiet)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestSendJSONSurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limit reached"}}`)
	}))
	defer srv.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL,
		map[string]any{}, nil, "req-2", quiet)

	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limit reached")
	assert.Contains(t, string(raw), "rate limit reached")
}
