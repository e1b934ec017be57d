package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerateConcatenatesStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral", req.Model)
		assert.Equal(t, 512, req.Options.NumPredict)

		for _, part := range []string{"Photosynthesis ", "makes ", "food."} {
			fmt.Fprintf(w, `{"response":%q,"done":false}`+"\n", part)
		}
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	defer srv.Close()

	g := NewOllama(srv.URL+"/api", "mistral")
	out, err := g.Generate(context.Background(), "What is photosynthesis?", Options{MaxTokens: 512, Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis makes food.", out)
}

func TestOllamaGenerateServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	g := NewOllama(srv.URL+"/api", "mistral")
	_, err := g.Generate(context.Background(), "hello", Options{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewOllama(srv.URL+"/api", "mistral")
	_, err := g.Generate(context.Background(), "hello", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestUnavailableGenerator(t *testing.T) {
	_, err := Unavailable{}.Generate(context.Background(), "anything", Options{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMockReplaysResponses(t *testing.T) {
	m := NewMock(MockResponse{Text: "first"}, MockResponse{Text: "second"})

	out, err := m.Generate(context.Background(), "p1", Options{})
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, _ = m.Generate(context.Background(), "p2", Options{})
	assert.Equal(t, "second", out)

	// Script exhausted: the last response repeats.
	out, _ = m.Generate(context.Background(), "p3", Options{})
	assert.Equal(t, "second", out)

	require.Len(t, m.Calls(), 3)
	assert.Equal(t, "p1", m.Calls()[0].Prompt)
}
