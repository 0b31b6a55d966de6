package interaction

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/llm"
	"github.com/liliang-cn/studydoc/internal/session"
	"github.com/liliang-cn/studydoc/internal/testutil"
)

type recordingRewriter struct {
	mu       sync.Mutex
	rewrites map[string]string
}

func newRecordingRewriter() *recordingRewriter {
	return &recordingRewriter{rewrites: make(map[string]string)}
}

func (r *recordingRewriter) Rewrite(ctx context.Context, documentID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewrites[documentID] = content
	return nil
}

func (r *recordingRewriter) get(documentID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rewrites[documentID]
}

func newTestSession(t *testing.T, provider *testutil.FakeLLM) (*Session, *recordingRewriter) {
	t.Helper()
	mgr := session.NewManager(provider, llm.Options{}, zap.NewNop())
	t.Cleanup(mgr.Shutdown)
	rewriter := newRecordingRewriter()
	s := New("sess-1", "doc-1", mgr, rewriter, zap.NewNop())
	waitFor(t, func() bool { return s.Snapshot().Ready })
	mgr.SetContext("Paris is the capital of France.")
	return s, rewriter
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func idle(t *testing.T, s *Session) {
	t.Helper()
	waitFor(t, func() bool { return !s.Snapshot().Loading })
}

func TestInitialState(t *testing.T) {
	s, _ := newTestSession(t, &testutil.FakeLLM{})

	state := s.Snapshot()
	assert.Equal(t, domain.ModeChat, state.Mode)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Conversation)
	assert.Empty(t, state.Quiz.Question)
}

func TestSendChatMessageIgnoresBlankInput(t *testing.T) {
	s, _ := newTestSession(t, &testutil.FakeLLM{})

	s.SendChatMessage("")
	s.SendChatMessage("   ")
	s.SendChatMessage(" \t\n")

	state := s.Snapshot()
	assert.Empty(t, state.Conversation)
	assert.False(t, state.Loading)
}

func TestSendChatMessageAppendsUserAndAssistantMessages(t *testing.T) {
	// Delay keeps the pending placeholder observable.
	s, _ := newTestSession(t, &testutil.FakeLLM{Delay: 50 * time.Millisecond})

	s.SendChatMessage("What is the capital?")

	// The pending placeholder shows while the model works.
	state := s.Snapshot()
	require.Len(t, state.Conversation, 2)
	assert.Equal(t, "What is the capital?", state.Conversation[0].Text)
	assert.Equal(t, domain.OriginUser, state.Conversation[0].Origin)
	assert.True(t, state.Conversation[1].Pending)
	assert.True(t, state.Loading)

	idle(t, s)
	state = s.Snapshot()
	require.Len(t, state.Conversation, 2)
	assert.Equal(t, domain.OriginAssistant, state.Conversation[1].Origin)
	assert.False(t, state.Conversation[1].Pending)
	assert.NotEmpty(t, state.Conversation[1].Text)
}

func TestSendChatMessageWhileLoadingIsNoop(t *testing.T) {
	provider := &testutil.FakeLLM{Delay: 50 * time.Millisecond}
	s, _ := newTestSession(t, provider)

	s.SendChatMessage("first")
	require.True(t, s.Snapshot().Loading)
	s.SendChatMessage("second")

	idle(t, s)
	state := s.Snapshot()
	require.Len(t, state.Conversation, 2)
	assert.Equal(t, "first", state.Conversation[0].Text)

	// Only one generation ran.
	assert.Len(t, provider.Calls(), 1)
}

func TestSingleFlightAcrossConcurrentSends(t *testing.T) {
	provider := &testutil.FakeLLM{Delay: 30 * time.Millisecond}
	s, _ := newTestSession(t, provider)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SendChatMessage("race")
		}()
	}
	wg.Wait()
	idle(t, s)

	// The loading guard admits exactly one in-flight generation; with all
	// sends racing one slot, exactly one user+assistant pair lands.
	state := s.Snapshot()
	assert.Len(t, state.Conversation, 2)
	assert.Len(t, provider.Calls(), 1)
}

func TestToggleModeClearsQuizState(t *testing.T) {
	s, _ := newTestSession(t, &testutil.FakeLLM{})

	s.ToggleMode()
	assert.Equal(t, domain.ModeQuiz, s.Snapshot().Mode)

	s.RequestNewQuestion()
	idle(t, s)
	require.NotEmpty(t, s.Snapshot().Quiz.Question)

	s.ToggleMode()
	state := s.Snapshot()
	assert.Equal(t, domain.ModeChat, state.Mode)
	assert.Empty(t, state.Quiz.Question)
	assert.Empty(t, state.Quiz.Feedback)

	s.ToggleMode()
	assert.Equal(t, domain.ModeQuiz, s.Snapshot().Mode)
}

func TestSubmitAnswerRequiresActiveQuestion(t *testing.T) {
	provider := &testutil.FakeLLM{}
	s, _ := newTestSession(t, provider)

	s.SubmitAnswer("Paris")
	idle(t, s)
	assert.Empty(t, s.Snapshot().Quiz.Feedback)
	assert.Empty(t, provider.Calls())
}

func TestSubmitAnswerIgnoresBlankAnswer(t *testing.T) {
	s, _ := newTestSession(t, &testutil.FakeLLM{})

	s.ToggleMode()
	s.RequestNewQuestion()
	idle(t, s)

	s.SubmitAnswer("  ")
	state := s.Snapshot()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Quiz.Feedback)
}

func TestQuizFlow(t *testing.T) {
	provider := &testutil.FakeLLM{Respond: func(history []llm.Message) string {
		last := history[len(history)-1].Content
		if strings.Contains(last, "ask me a question") {
			return "What is the capital of France?"
		}
		if strings.Contains(last, "Evaluate the following answer") {
			return "correct. Paris is the capital of France."
		}
		return "ok"
	}}
	s, _ := newTestSession(t, provider)

	s.ToggleMode()
	s.RequestNewQuestion()
	idle(t, s)
	require.Equal(t, "What is the capital of France?", s.Snapshot().Quiz.Question)

	s.SubmitAnswer("Paris")
	idle(t, s)
	state := s.Snapshot()
	assert.Equal(t, "Paris", state.Quiz.Answer)
	require.NotEmpty(t, state.Quiz.Feedback)
	verdict := strings.ToLower(strings.Trim(strings.Fields(state.Quiz.Feedback)[0], ".,!"))
	assert.Contains(t, []string{"correct", "incorrect"}, verdict)
}

func TestRequestNewQuestionReplacesOldState(t *testing.T) {
	s, _ := newTestSession(t, &testutil.FakeLLM{})

	s.ToggleMode()
	s.RequestNewQuestion()
	idle(t, s)
	s.SubmitAnswer("an answer")
	idle(t, s)
	require.NotEmpty(t, s.Snapshot().Quiz.Feedback)

	s.RequestNewQuestion()
	idle(t, s)
	state := s.Snapshot()
	assert.NotEmpty(t, state.Quiz.Question)
	assert.Empty(t, state.Quiz.Answer)
	assert.Empty(t, state.Quiz.Feedback)
}

func TestReformatPersistsNewContent(t *testing.T) {
	provider := &testutil.FakeLLM{Respond: func(history []llm.Message) string {
		return "# Lesson\n\n* Paris is the **capital** of France"
	}}
	s, rewriter := newTestSession(t, provider)

	s.ReformatDocument("paris is the capital of france and it is in europe")
	idle(t, s)

	assert.Contains(t, rewriter.get("doc-1"), "# Lesson")
}

func TestGenerationFailureRendersInline(t *testing.T) {
	provider := &testutil.FakeLLM{FailGenerate: true}
	s, _ := newTestSession(t, provider)

	s.SendChatMessage("hello")
	idle(t, s)

	state := s.Snapshot()
	require.Len(t, state.Conversation, 2)
	assert.Contains(t, state.Conversation[1].Text, "Something went wrong")
	assert.False(t, state.Loading)
}

func TestCloseShutsDownModelSession(t *testing.T) {
	provider := &testutil.FakeLLM{}
	s, _ := newTestSession(t, provider)

	s.Close()
	s.Close() // idempotent

	waitFor(t, func() bool { return provider.Sessions()[0].Closed() })

	// Events after close are ignored.
	s.SendChatMessage("too late")
	assert.Empty(t, s.Snapshot().Conversation)
}
