// Package ollama implements the embedding provider against a local Ollama
// server (e.g. nomic-embed-text).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/liliang-cn/studydoc/internal/embedding"
)

type Provider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

var _ embedding.Provider = &Provider{}

func NewProvider(baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &Provider{
		BaseURL: baseURL,
		Model:   model,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (p *Provider) Embed(ctx context.Context, text string, task embedding.TaskType) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

func (p *Provider) EmbedBatch(ctx context.Context, texts []string, task embedding.TaskType) ([][]float32, error) {
	// Nomic-style models distinguish queries from documents via an input
	// prefix; Ollama has no task_type field.
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = taskPrefix(task) + t
	}

	reqBody := embedRequest{
		Model: p.Model,
		Input: input,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/embed", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embedding error: %s", string(bodyBytes))
	}

	var embedResp embedResponse
	if err := json.Unmarshal(bodyBytes, &embedResp); err != nil {
		return nil, err
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embedResp.Embeddings))
	}

	vectors := make([][]float32, len(embedResp.Embeddings))
	for i, raw := range embedResp.Embeddings {
		values := make([]float32, len(raw))
		for j, v := range raw {
			values[j] = float32(v)
		}
		// Normalized vectors are required for cosine similarity in the store.
		vectors[i] = embedding.Normalize(values)
	}
	return vectors, nil
}

func taskPrefix(task embedding.TaskType) string {
	switch task {
	case embedding.TaskQuery:
		return "search_query: "
	case embedding.TaskDocument:
		return "search_document: "
	default:
		return ""
	}
}
