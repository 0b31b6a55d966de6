// Package ollama implements the language-model provider against a local
// Ollama server. Sessions keep the turn history client-side and replay it on
// every generation.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/liliang-cn/studydoc/internal/llm"
)

type Provider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

var _ llm.Provider = &Provider{}

func NewProvider(baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Provider{
		BaseURL: baseURL,
		Model:   model,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func (p *Provider) NewSession(opts llm.Options) (llm.Session, error) {
	if opts.Model == "" {
		opts.Model = p.Model
	}
	return &session{provider: p, opts: opts}, nil
}

func (p *Provider) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	return p.chat(ctx, []chatMessage{{Role: llm.RoleUser, Content: prompt}}, llm.Options{Model: p.Model})
}

func (p *Provider) chat(ctx context.Context, messages []chatMessage, opts llm.Options) (string, error) {
	reqPayload := chatRequest{
		Model:    opts.Model,
		Messages: messages,
		Stream:   false,
		Options: &chatOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
			TopK:        opts.TopK,
			TopP:        opts.TopP,
		},
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := p.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama chat error: %s", string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return chatResp.Message.Content, nil
}

type session struct {
	provider *Provider
	opts     llm.Options
	history  []chatMessage
}

func (s *session) AppendTurn(role, content string) {
	if role == "model" {
		role = llm.RoleAssistant
	}
	s.history = append(s.history, chatMessage{Role: role, Content: content})
}

func (s *session) Generate(ctx context.Context) (string, error) {
	reply, err := s.provider.chat(ctx, s.history, s.opts)
	if err != nil {
		return "", err
	}
	s.history = append(s.history, chatMessage{Role: llm.RoleAssistant, Content: reply})
	return reply, nil
}

func (s *session) Close() error {
	s.history = nil
	return nil
}
