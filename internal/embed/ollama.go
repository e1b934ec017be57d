package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"doubtsolver/internal/version"
)

// Ollama embeds text through a local Ollama server. The dimension is
// declared up front (it is a property of the model) and every response is
// checked against it, since a silently changed embedding model would
// poison the index.
type Ollama struct {
	baseURL    string
	model      string
	dims       int
	httpClient *http.Client
}

// NewOllama creates an Ollama embedding client.
func NewOllama(baseURL, model string, dims int) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434/api"
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests one embedding per text from the Ollama embeddings API.
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := o.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(vec) != o.dims {
			return nil, fmt.Errorf("embed: ollama model %s returned %d dimensions, configured for %d", o.model, len(vec), o.dims)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (o *Ollama) embedOne(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("embed: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embed: ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed: ollama API error (status %d): %s", resp.StatusCode, body)
	}

	var er ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("embed: parse ollama response: %w", err)
	}
	return er.Embedding, nil
}

// Dimensions returns the declared model dimension.
func (o *Ollama) Dimensions() int {
	return o.dims
}

// Name identifies the embedding function including the model.
func (o *Ollama) Name() string {
	return "ollama/" + o.model
}
