package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "test-key", "gemini-test", WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New(context.Background(), "  ", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"1. Cook at home"},{"text":"\n2. Walk more"}]}}]}`))
	})

	text, err := c.Generate(context.Background(), "save me money")
	require.NoError(t, err)
	assert.Equal(t, "1. Cook at home\n2. Walk more", text)
	assert.Equal(t, "test-key", gotKey)
	assert.True(t, strings.HasSuffix(gotPath, "models/gemini-test:generateContent"), "path %s", gotPath)

	contents, err := json.Marshal(gotBody["contents"])
	require.NoError(t, err)
	assert.Contains(t, string(contents), "save me money")

	cfg, ok := gotBody["generationConfig"].(map[string]any)
	require.True(t, ok, "generation config sent")
	assert.Equal(t, 0.7, cfg["temperature"])
	assert.Equal(t, 0.8, cfg["topP"])
	assert.EqualValues(t, 40, cfg["topK"])
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerate_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"boom"}}`, http.StatusBadRequest)
	})

	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate content")
}
