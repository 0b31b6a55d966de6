// Package session owns the lifecycle of one language-model session. All
// model calls are serialized onto a single worker goroutine behind an
// explicit FIFO work queue, so the conversation turn history is never
// touched concurrently and every call sees all prior turns.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/llm"
)

// State of the managed model session
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Prompts carried over from the mobile client
const (
	contextPreamble = "you are a helpful teacher that helps a student to learn this lesson: "
	quizPrompt      = "ask me a question about the lesson, in no more than 80 words"
	evaluatePrompt  = "Evaluate the following answer to the question in no more than 80 words. " +
		"Start your reply with the single word correct or incorrect: "
	reformatPrompt = "Reformat this educational content into clear, structured markdown:\n\n" +
		"1. Create a main title using #\n" +
		"2. Use ## for main sections\n" +
		"3. Use ### for subsections\n" +
		"4. Make key terms and concepts **bold**\n" +
		"5. Use bullet points (*) for lists\n" +
		"6. Keep paragraphs short (2-3 sentences max)\n" +
		"7. Organize information logically\n" +
		"8. Make it easy to read and study\n\n" +
		"Content to reformat:\n"
)

// Result is the outcome of one model operation. Exactly one of Text and Err
// is meaningful, so callers can tell an odd model answer from an unreachable
// model.
type Result struct {
	Text string
	Err  error
}

// Manager serializes all calls into one model session behind a single
// worker. Construction starts asynchronous initialization immediately; only
// one initialization attempt is made per instance, and a new instance is
// needed to retry.
type Manager struct {
	provider llm.Provider
	opts     llm.Options
	logger   *zap.Logger

	mu             sync.Mutex
	cond           *sync.Cond
	queue          []func()
	state          State
	sess           llm.Session
	pendingContext *string

	readyCh chan bool
	done    chan struct{}
}

// NewManager creates a manager and begins loading the model session on the
// worker. The initialization outcome is reported once on Readiness.
func NewManager(provider llm.Provider, opts llm.Options, logger *zap.Logger) *Manager {
	m := &Manager{
		provider: provider,
		opts:     opts,
		logger:   logger,
		state:    StateInitializing,
		readyCh:  make(chan bool, 1),
		done:     make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	go m.loop()

	m.mu.Lock()
	m.queue = append(m.queue, m.initialize)
	m.cond.Signal()
	m.mu.Unlock()
	return m
}

func (m *Manager) loop() {
	defer close(m.done)
	m.mu.Lock()
	for {
		for len(m.queue) == 0 && m.state != StateClosed {
			m.cond.Wait()
		}
		if len(m.queue) == 0 && m.state == StateClosed {
			m.mu.Unlock()
			return
		}
		job := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		job()
		m.mu.Lock()
	}
}

func (m *Manager) initialize() {
	sess, err := m.provider.NewSession(m.opts)

	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		if sess != nil {
			sess.Close()
		}
		m.readyCh <- false
		return
	}
	var replay *string
	if err != nil {
		m.state = StateFailed
		m.logger.Error("model session failed to initialize", zap.Error(err))
	} else {
		m.sess = sess
		m.state = StateReady
		replay = m.pendingContext
		m.pendingContext = nil
		m.logger.Info("model session ready")
	}
	m.mu.Unlock()

	// A context set before readiness is replayed now, still on the worker,
	// so it lands before any queued question.
	if replay != nil {
		m.applyContext(*replay)
	}
	m.readyCh <- err == nil
}

// Readiness reports the outcome of initialization, exactly once
func (m *Manager) Readiness() <-chan bool {
	return m.readyCh
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether the session can serve model calls
func (m *Manager) Ready() bool {
	return m.State() == StateReady
}

// SetContext seeds the session with the teacher persona and the lesson text
// as the first turn. This must happen before any question or quiz operation.
// If the session is still initializing, the context is stored and replayed
// automatically once it becomes ready.
func (m *Manager) SetContext(documentText string) {
	m.mu.Lock()
	switch m.state {
	case StateUninitialized, StateInitializing:
		text := documentText
		m.pendingContext = &text
		m.mu.Unlock()
	case StateReady:
		m.mu.Unlock()
		m.submit(func() Result {
			m.applyContext(documentText)
			return Result{}
		})
	default:
		m.mu.Unlock()
	}
}

func (m *Manager) applyContext(documentText string) {
	m.mu.Lock()
	sess := m.sess
	m.mu.Unlock()
	if sess == nil {
		return
	}
	sess.AppendTurn(llm.RoleUser, contextPreamble+documentText)
}

// Chat appends the user's message as a turn and generates a reply
func (m *Manager) Chat(userText string) <-chan Result {
	return m.submit(func() Result {
		return m.generateTurn(userText)
	})
}

// NextQuizQuestion asks the model for a single question about the lesson
func (m *Manager) NextQuizQuestion() <-chan Result {
	return m.submit(func() Result {
		return m.generateTurn(quizPrompt)
	})
}

// EvaluateAnswer appends the student's answer and generates a short
// evaluation whose first word is a verdict token.
func (m *Manager) EvaluateAnswer(answerText string) <-chan Result {
	return m.submit(func() Result {
		return m.generateTurn(evaluatePrompt + answerText)
	})
}

// Reformat runs a stateless one-shot generation restructuring the text into
// headed, bulleted markdown. It bypasses the session turn history but still
// executes on the worker, in submission order.
func (m *Manager) Reformat(documentText string) <-chan Result {
	return m.submit(func() Result {
		text, err := m.provider.GenerateOnce(context.Background(), reformatPrompt+documentText)
		if err != nil {
			m.logger.Error("reformat generation failed", zap.Error(err))
			return Result{Err: err}
		}
		return Result{Text: text}
	})
}

func (m *Manager) generateTurn(turn string) Result {
	m.mu.Lock()
	sess := m.sess
	m.mu.Unlock()
	if sess == nil {
		return Result{Err: domain.ErrNotReady}
	}

	sess.AppendTurn(llm.RoleUser, turn)
	text, err := sess.Generate(context.Background())
	if err != nil {
		// The session survives a transient failure; later calls may succeed.
		m.logger.Error("generation failed", zap.Error(err))
		return Result{Err: err}
	}
	return Result{Text: text}
}

// submit enqueues work on the worker and returns a channel carrying its
// result. Calls against a failed or closed session fail fast, as do jobs
// still queued when the session closes.
func (m *Manager) submit(fn func() Result) <-chan Result {
	ch := make(chan Result, 1)

	m.mu.Lock()
	switch m.state {
	case StateClosed:
		m.mu.Unlock()
		ch <- Result{Err: domain.ErrClosed}
		return ch
	case StateFailed:
		m.mu.Unlock()
		ch <- Result{Err: domain.ErrNotReady}
		return ch
	}

	m.queue = append(m.queue, func() {
		m.mu.Lock()
		state := m.state
		m.mu.Unlock()
		switch state {
		case StateReady:
			ch <- fn()
		case StateClosed:
			ch <- Result{Err: domain.ErrClosed}
		default:
			ch <- Result{Err: domain.ErrNotReady}
		}
	})
	m.cond.Signal()
	m.mu.Unlock()
	return ch
}

// Shutdown releases the model session and stops the worker once the queue
// has drained. Safe to call from any state and idempotent; after it returns,
// all pending and future calls fail fast with ErrClosed.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	m.state = StateClosed
	sess := m.sess
	m.sess = nil
	m.cond.Signal()
	m.mu.Unlock()

	if sess != nil {
		if err := sess.Close(); err != nil {
			m.logger.Warn("model session close failed", zap.Error(err))
		}
	}
	m.logger.Info("model session closed")
}

// Done is closed once the worker has exited
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
