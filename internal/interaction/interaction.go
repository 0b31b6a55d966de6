// Package interaction holds the state machine coordinating one document's
// chat/quiz session: mode switching, conversation history, quiz state and
// the single-flight loading guard in front of the model worker.
package interaction

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/session"
)

// DocumentRewriter persists reformatted lesson text back to its document
type DocumentRewriter interface {
	Rewrite(ctx context.Context, documentID, content string) error
}

// Session is one live interaction over a document. All state is mutated
// under a single lock, mirroring the single-threaded main context the UI
// ran on; completion callbacks re-enter through the same lock.
type Session struct {
	id         string
	documentID string
	manager    *session.Manager
	docs       DocumentRewriter
	logger     *zap.Logger

	mu           sync.Mutex
	mode         domain.Mode
	ready        bool
	loading      bool
	conversation []domain.Message
	quiz         domain.QuizState
	closed       bool
}

// New creates an interaction session over an already-constructed session
// manager and begins watching its readiness. Initial state: chat mode,
// empty conversation, not loading.
func New(id, documentID string, manager *session.Manager, docs DocumentRewriter, logger *zap.Logger) *Session {
	s := &Session{
		id:         id,
		documentID: documentID,
		manager:    manager,
		docs:       docs,
		logger:     logger,
		mode:       domain.ModeChat,
	}
	go func() {
		ok := <-manager.Readiness()
		s.mu.Lock()
		s.ready = ok
		s.mu.Unlock()
	}()
	return s
}

// ID returns the session's identifier
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns an observable copy of the session state
func (s *Session) Snapshot() domain.InteractionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.InteractionState{
		ID:           s.id,
		DocumentID:   s.documentID,
		Mode:         s.mode,
		Ready:        s.ready,
		Loading:      s.loading,
		Conversation: append([]domain.Message(nil), s.conversation...),
		Quiz:         s.quiz,
	}
}

// ToggleMode flips between chat and quiz and unconditionally clears any
// in-flight quiz question and feedback, so stale quiz state never bleeds
// into a freshly toggled mode.
func (s *Session) ToggleMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == domain.ModeChat {
		s.mode = domain.ModeQuiz
	} else {
		s.mode = domain.ModeChat
	}
	s.quiz = domain.QuizState{}
}

// SendChatMessage appends the user message plus a pending placeholder and
// asks the model for a reply. Blank input and overlapping requests are
// silently ignored.
func (s *Session) SendChatMessage(text string) {
	if isBlank(text) {
		return
	}

	s.mu.Lock()
	if s.loading || s.closed {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.conversation = append(s.conversation,
		domain.Message{Text: text, Origin: domain.OriginUser},
		domain.Message{Origin: domain.OriginAssistant, Pending: true},
	)
	s.mu.Unlock()

	ch := s.manager.Chat(text)
	go func() {
		res := <-ch
		s.mu.Lock()
		defer s.mu.Unlock()
		s.removePendingLocked()
		s.conversation = append(s.conversation, domain.Message{
			Text:   renderResult(res),
			Origin: domain.OriginAssistant,
		})
		s.loading = false
	}()
}

// RequestNewQuestion clears the current quiz state and asks the model for a
// fresh question. No-op while loading.
func (s *Session) RequestNewQuestion() {
	s.mu.Lock()
	if s.loading || s.closed {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.quiz = domain.QuizState{}
	s.mu.Unlock()

	ch := s.manager.NextQuizQuestion()
	go func() {
		res := <-ch
		s.mu.Lock()
		defer s.mu.Unlock()
		s.quiz.Question = renderResult(res)
		s.loading = false
	}()
}

// SubmitAnswer sends the student's answer for evaluation. No-op without an
// active question, with blank input, or while loading.
func (s *Session) SubmitAnswer(answer string) {
	if isBlank(answer) {
		return
	}

	s.mu.Lock()
	if s.quiz.Question == "" || s.loading || s.closed {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.quiz.Answer = answer
	s.quiz.Feedback = ""
	s.mu.Unlock()

	ch := s.manager.EvaluateAnswer(answer)
	go func() {
		res := <-ch
		s.mu.Lock()
		defer s.mu.Unlock()
		s.quiz.Feedback = renderResult(res)
		s.loading = false
	}()
}

// ReformatDocument restructures the lesson text into markdown, persists it
// back to the document's storage and reindexes. No-op while loading.
func (s *Session) ReformatDocument(text string) {
	s.mu.Lock()
	if s.loading || s.closed {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.mu.Unlock()

	ch := s.manager.Reformat(text)
	go func() {
		res := <-ch
		if res.Err == nil && res.Text != "" {
			if err := s.docs.Rewrite(context.Background(), s.documentID, res.Text); err != nil {
				s.logger.Error("failed to persist reformatted lesson",
					zap.String("document_id", s.documentID),
					zap.Error(err),
				)
			}
		} else if res.Err != nil {
			s.logger.Error("reformat failed",
				zap.String("document_id", s.documentID),
				zap.Error(res.Err),
			)
		}
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()
}

// Close releases the underlying model session. The conversation and quiz
// state die with the interaction.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.manager.Shutdown()
}

// removePendingLocked drops a trailing pending placeholder, if present.
// Callers hold s.mu.
func (s *Session) removePendingLocked() {
	n := len(s.conversation)
	if n > 0 && s.conversation[n-1].Pending {
		s.conversation = s.conversation[:n-1]
	}
}

// renderResult turns a model result into display text. Failures appear
// inline the way the mobile client showed them, while the tagged error
// remains available to the operation's logs.
func renderResult(res session.Result) string {
	if res.Err != nil {
		return "Something went wrong: " + res.Err.Error()
	}
	if res.Text == "" {
		return "No response from the model."
	}
	return res.Text
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
