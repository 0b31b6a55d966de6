// Package testutil provides deterministic fakes for the model collaborators,
// used by tests across the core packages.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/liliang-cn/studydoc/internal/embedding"
	"github.com/liliang-cn/studydoc/internal/llm"
)

// FakeEmbedder produces bag-of-words vectors: each distinct word gets a
// dimension on first sight, so identical text always embeds identically and
// overlapping text scores high cosine similarity. Vectors are L2-normalized.
type FakeEmbedder struct {
	Dimension int

	mu         sync.Mutex
	dims       map[string]int
	FailBatch  bool
	FailSingle bool
	BatchCalls int
}

func NewFakeEmbedder(dimension int) *FakeEmbedder {
	return &FakeEmbedder{
		Dimension: dimension,
		dims:      make(map[string]int),
	}
}

func (f *FakeEmbedder) Embed(ctx context.Context, text string, task embedding.TaskType) ([]float32, error) {
	if f.FailSingle {
		return nil, errors.New("fake embedder: single embed failure")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vector(text)
}

func (f *FakeEmbedder) EmbedBatch(ctx context.Context, texts []string, task embedding.TaskType) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BatchCalls++
	if f.FailBatch {
		return nil, errors.New("fake embedder: batch embed failure")
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.vector(t)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (f *FakeEmbedder) vector(text string) ([]float32, error) {
	vec := make([]float32, f.Dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()*#")
		if word == "" {
			continue
		}
		dim, ok := f.dims[word]
		if !ok {
			dim = len(f.dims)
			if dim >= f.Dimension {
				return nil, fmt.Errorf("fake embedder: vocabulary exceeds %d dimensions", f.Dimension)
			}
			f.dims[word] = dim
		}
		vec[dim]++
	}
	return embedding.Normalize(vec), nil
}

// FakeLLM is a scripted language-model provider. It records every generation
// in call order and can delay or fail on demand.
type FakeLLM struct {
	mu sync.Mutex

	// Respond computes a reply from the turn history. When nil, the reply is
	// "response N" counting generations.
	Respond func(history []llm.Message) string

	// Delay is applied inside every generation, to expose interleaving
	Delay time.Duration

	// FailSession makes NewSession return an error
	FailSession bool

	// FailGenerate makes every generation return an error
	FailGenerate bool

	generations int
	calls       []string
	sessions    []*FakeSession
}

func (f *FakeLLM) NewSession(opts llm.Options) (llm.Session, error) {
	if f.FailSession {
		return nil, errors.New("fake llm: model failed to load")
	}
	s := &FakeSession{provider: f}
	f.mu.Lock()
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()
	return s, nil
}

func (f *FakeLLM) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	return f.generate([]llm.Message{{Role: llm.RoleUser, Content: prompt}}, "once:"+prompt)
}

func (f *FakeLLM) generate(history []llm.Message, call string) (string, error) {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.FailGenerate {
		return "", errors.New("fake llm: generation failure")
	}
	f.generations++
	if f.Respond != nil {
		return f.Respond(history), nil
	}
	return fmt.Sprintf("response %d", f.generations), nil
}

// Calls returns the generation log in submission order
func (f *FakeLLM) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Sessions returns every session handed out so far
func (f *FakeLLM) Sessions() []*FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeSession(nil), f.sessions...)
}

// FakeSession records appended turns. The session manager is the only caller
// and serializes access, matching the real provider's contract.
type FakeSession struct {
	provider *FakeLLM

	mu      sync.Mutex
	history []llm.Message
	closed  bool
}

func (s *FakeSession) AppendTurn(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, llm.Message{Role: role, Content: content})
}

func (s *FakeSession) Generate(ctx context.Context) (string, error) {
	s.mu.Lock()
	history := append([]llm.Message(nil), s.history...)
	last := ""
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}
	s.mu.Unlock()

	reply, err := s.provider.generate(history, last)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.history = append(s.history, llm.Message{Role: llm.RoleAssistant, Content: reply})
	s.mu.Unlock()
	return reply, nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// History returns a copy of the appended turns
func (s *FakeSession) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Message(nil), s.history...)
}
