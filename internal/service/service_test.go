package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/indexer"
	"github.com/liliang-cn/studydoc/internal/llm"
	"github.com/liliang-cn/studydoc/internal/repository"
	"github.com/liliang-cn/studydoc/internal/testutil"
	"github.com/liliang-cn/studydoc/internal/vectorstore/memory"
)

const lessonText = "Paris is the capital of France. " +
	"The capital city of France sits on the Seine river."

func newFixture(t *testing.T) (*DocumentService, *InteractionService, *testutil.FakeLLM) {
	t.Helper()
	dir := t.TempDir()

	db, err := repository.NewDB(filepath.Join(dir, "studydoc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := memory.NewStore(64)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := testutil.NewFakeEmbedder(64)
	ix := indexer.New(embedder, store, zap.NewNop(), indexer.Options{})

	docs := NewDocumentService(
		repository.NewDocumentRepository(db),
		ix,
		filepath.Join(dir, "lessons"),
		zap.NewNop(),
	)

	fakeLLM := &testutil.FakeLLM{
		Respond: func(history []llm.Message) string {
			last := history[len(history)-1].Content
			switch {
			case strings.Contains(last, "ask me a question"):
				return "What river runs through Paris?"
			case strings.Contains(last, "correct or incorrect"):
				return "correct. The Seine flows through Paris."
			case strings.Contains(last, "structured markdown"):
				return "# Paris\n\n* Capital of **France**"
			default:
				return "Paris has been the capital since 987."
			}
		},
	}
	interactions := NewInteractionService(fakeLLM, llm.Options{Model: "test"}, docs, zap.NewNop())
	t.Cleanup(interactions.CloseAll)

	return docs, interactions, fakeLLM
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestImportRejectsUnsupportedFileType(t *testing.T) {
	docs, _, _ := newFixture(t)

	_, err := docs.Import(context.Background(), "slides.pdf", "content")
	require.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestImportStoresFileAndIndexes(t *testing.T) {
	docs, _, _ := newFixture(t)
	ctx := context.Background()

	doc, err := docs.Import(ctx, "geography.txt", lessonText)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)

	stored, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, lessonText, string(stored))

	waitFor(t, func() bool {
		found, err := docs.Search(ctx, "the capital of France")
		return err == nil && len(found) == 1
	}, "imported document never became searchable")
}

func TestSearchReturnsNothingForBlankQuery(t *testing.T) {
	docs, _, _ := newFixture(t)

	found, err := docs.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGetUnknownDocument(t *testing.T) {
	docs, _, _ := newFixture(t)

	_, err := docs.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpenInteractionOnUnknownDocument(t *testing.T) {
	_, interactions, _ := newFixture(t)

	_, err := interactions.Open(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// Full study session: import a lesson, find it by meaning, open an
// interaction, chat about it, switch to quiz mode and answer a question,
// then reformat the lesson and close.
func TestStudySessionScenario(t *testing.T) {
	docs, interactions, _ := newFixture(t)
	ctx := context.Background()

	doc, err := docs.Import(ctx, "geography.txt", lessonText)
	require.NoError(t, err)

	waitFor(t, func() bool {
		found, err := docs.Search(ctx, "the capital of France")
		return err == nil && len(found) == 1 && found[0].ID == doc.ID
	}, "document not searchable")

	state, err := interactions.Open(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeChat, state.Mode)
	assert.False(t, state.Ready)

	sess := interactions.Get(state.ID)
	require.NotNil(t, sess)
	waitFor(t, func() bool { return sess.Snapshot().Ready }, "interaction never became ready")

	// Chat turn
	sess.SendChatMessage("How long has Paris been the capital?")
	waitFor(t, func() bool {
		s := sess.Snapshot()
		return !s.Loading && len(s.Conversation) == 2
	}, "chat reply never arrived")
	conv := sess.Snapshot().Conversation
	assert.Equal(t, domain.OriginUser, conv[0].Origin)
	assert.Equal(t, domain.OriginAssistant, conv[1].Origin)
	assert.Contains(t, conv[1].Text, "987")

	// Quiz round
	sess.ToggleMode()
	assert.Equal(t, domain.ModeQuiz, sess.Snapshot().Mode)

	sess.RequestNewQuestion()
	waitFor(t, func() bool { return sess.Snapshot().Quiz.Question != "" }, "no quiz question")
	assert.Contains(t, sess.Snapshot().Quiz.Question, "river")

	sess.SubmitAnswer("The Seine")
	waitFor(t, func() bool { return sess.Snapshot().Quiz.Feedback != "" }, "no quiz feedback")
	assert.True(t, strings.HasPrefix(strings.ToLower(sess.Snapshot().Quiz.Feedback), "correct"))

	// Reformat persists the rewritten lesson and keeps it searchable
	content, err := docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	sess.ReformatDocument(content.Content)
	waitFor(t, func() bool {
		c, err := docs.Get(ctx, doc.ID)
		return err == nil && strings.HasPrefix(c.Content, "# Paris")
	}, "reformatted content not persisted")

	waitFor(t, func() bool {
		found, err := docs.Search(ctx, "capital of France")
		return err == nil && len(found) == 1 && found[0].ID == doc.ID
	}, "document lost from index after reformat")

	require.NoError(t, interactions.Close(state.ID))
	assert.Nil(t, interactions.Get(state.ID))
	assert.ErrorIs(t, interactions.Close(state.ID), domain.ErrNotFound)
}
