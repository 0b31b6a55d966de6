package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/interaction"
	"github.com/liliang-cn/studydoc/internal/llm"
	"github.com/liliang-cn/studydoc/internal/session"
)

// InteractionService manages the live interactions, one per opened
// document. Each interaction owns a dedicated model worker that is torn
// down when the interaction closes.
type InteractionService struct {
	provider llm.Provider
	opts     llm.Options
	docs     *DocumentService
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*interaction.Session
}

// NewInteractionService creates a new interaction service
func NewInteractionService(
	provider llm.Provider,
	opts llm.Options,
	docs *DocumentService,
	logger *zap.Logger,
) *InteractionService {
	return &InteractionService{
		provider: provider,
		opts:     opts,
		docs:     docs,
		logger:   logger,
		sessions: make(map[string]*interaction.Session),
	}
}

// Open starts a new interaction over a document. Model initialization and
// context priming run in the background; the returned state reports
// ready=false until the worker comes up.
func (s *InteractionService) Open(ctx context.Context, documentID string) (*domain.InteractionState, error) {
	content, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	manager := session.NewManager(s.provider, s.opts, s.logger)
	manager.SetContext(content.Content)

	id := uuid.New().String()
	sess := interaction.New(id, documentID, manager, s.docs, s.logger)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Info("interaction opened",
		zap.String("interaction_id", id),
		zap.String("document_id", documentID),
	)

	state := sess.Snapshot()
	return &state, nil
}

// Get returns the interaction with the given id, or nil when unknown
func (s *InteractionService) Get(id string) *interaction.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Close tears down one interaction and its model worker
func (s *InteractionService) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return domain.ErrNotFound
	}
	sess.Close()
	s.logger.Info("interaction closed", zap.String("interaction_id", id))
	return nil
}

// CloseAll tears down every live interaction, used at shutdown
func (s *InteractionService) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*interaction.Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
