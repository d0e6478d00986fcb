package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"pdfchat/internal/models"
	"pdfchat/internal/providers"
	"pdfchat/internal/session"
	"pdfchat/internal/util"

	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls []string
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	f.calls = append(f.calls, req.Inputs...)
	if f.err != nil {
		return nil, providers.ProviderInfo{}, f.err
	}
	return [][]float32{{0.1, 0.2}}, providers.ProviderInfo{Name: "fake"}, nil
}

type fakeLLM struct {
	prompts []providers.GenerateRequest
	text    string
	err     error
}

func (f *fakeLLM) Generate(_ context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	f.prompts = append(f.prompts, req)
	if f.err != nil {
		return providers.GenerateResponse{}, providers.ProviderInfo{}, f.err
	}
	return providers.GenerateResponse{Text: f.text}, providers.ProviderInfo{Name: "fake"}, nil
}

type fakeSearcher struct {
	queries []string
	results []models.ChunkResult
	err     error
}

func (f *fakeSearcher) SearchChunks(_ context.Context, indexID string, _ []float32, _ int) ([]models.ChunkResult, error) {
	f.queries = append(f.queries, indexID)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestSession() *session.Session {
	return session.NewStore(time.Minute).Create()
}

func TestAnswerPlainPathBeforeIngest(t *testing.T) {
	embed := &fakeEmbedder{}
	llm := &fakeLLM{text: "four"}
	search := &fakeSearcher{}
	r := NewRouter(embed, llm, search, 8, 4)
	sess := newTestSession()

	ans, err := r.Answer(context.Background(), sess, "What is 2+2?")
	require.NoError(t, err)
	require.Equal(t, ModePlainCompletion, ans.Mode)
	require.Equal(t, "four", ans.Text)
	require.Zero(t, ans.RetrievedCount)

	// No embedding request and no vector store query on the plain path.
	require.Empty(t, embed.calls)
	require.Empty(t, search.queries)

	// The literal question is substituted into the fixed template.
	require.Len(t, llm.prompts, 1)
	require.Equal(t, "plain_completion", llm.prompts[0].Operation)
	require.Equal(t, "Question: What is 2+2?\nAnswer: Let's think step by step.", llm.prompts[0].Prompt)
}

func TestAnswerRetrievalPathAfterIngest(t *testing.T) {
	embed := &fakeEmbedder{}
	llm := &fakeLLM{text: "summary of page 1"}
	search := &fakeSearcher{results: []models.ChunkResult{
		{ChunkID: "c1", Page: 1, ChunkText: "page one text", Score: 0.9},
		{ChunkID: "c2", Page: 2, ChunkText: "page two text", Score: 0.7},
	}}
	r := NewRouter(embed, llm, search, 8, 4)
	sess := newTestSession()
	sess.SetIndex(models.IndexHandle{IndexID: "idx-1", Filename: "doc.pdf"})

	ans, err := r.Answer(context.Background(), sess, "Summarize page 1")
	require.NoError(t, err)
	require.Equal(t, ModeRetrievalAugmented, ans.Mode)
	require.Equal(t, "summary of page 1", ans.Text)
	require.Equal(t, 2, ans.RetrievedCount)

	// Question was embedded and the query was scoped to the session's index.
	require.Equal(t, []string{"Summarize page 1"}, embed.calls)
	require.Equal(t, []string{"idx-1"}, search.queries)

	require.Len(t, llm.prompts, 1)
	require.Equal(t, "document_answer", llm.prompts[0].Operation)
	require.Len(t, llm.prompts[0].Context, 2)
}

func TestAnswerAppendsExactlyTwoMessages(t *testing.T) {
	r := NewRouter(&fakeEmbedder{}, &fakeLLM{text: "hi"}, &fakeSearcher{}, 8, 4)
	sess := newTestSession()

	_, err := r.Answer(context.Background(), sess, "hello")
	require.NoError(t, err)
	msgs := sess.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, models.RoleUser, msgs[0].Role)
	require.Equal(t, models.RoleAssistant, msgs[1].Role)
}

func TestAnswerFailureKeepsOnlyUserMessage(t *testing.T) {
	llm := &fakeLLM{err: errors.New("dial tcp: connection refused")}
	r := NewRouter(&fakeEmbedder{}, llm, &fakeSearcher{}, 8, 4)
	sess := newTestSession()

	_, err := r.Answer(context.Background(), sess, "hello")
	require.Error(t, err)
	require.ErrorIs(t, err, util.ErrProviderUnavailable)

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, models.RoleUser, msgs[0].Role)
}

func TestAnswerStoreFailureSurfacesStoreQueryError(t *testing.T) {
	search := &fakeSearcher{err: errors.New("connection reset")}
	r := NewRouter(&fakeEmbedder{}, &fakeLLM{text: "x"}, search, 8, 4)
	sess := newTestSession()
	sess.SetIndex(models.IndexHandle{IndexID: "idx-1"})

	_, err := r.Answer(context.Background(), sess, "q")
	require.ErrorIs(t, err, util.ErrStoreQuery)
	require.Len(t, sess.Messages(), 1)
}

func TestAnswerEmbedFailureSurfacesEmbeddingError(t *testing.T) {
	embed := &fakeEmbedder{err: errors.New("timeout")}
	search := &fakeSearcher{}
	r := NewRouter(embed, &fakeLLM{text: "x"}, search, 8, 4)
	sess := newTestSession()
	sess.SetIndex(models.IndexHandle{IndexID: "idx-1"})

	_, err := r.Answer(context.Background(), sess, "q")
	require.ErrorIs(t, err, util.ErrEmbeddingUnavailable)
	require.Empty(t, search.queries)
}

func TestAnswerEmptyCompletionFallsBackToExtractive(t *testing.T) {
	search := &fakeSearcher{results: []models.ChunkResult{{ChunkID: "c1", Page: 3, ChunkText: "relevant passage"}}}
	r := NewRouter(&fakeEmbedder{}, &fakeLLM{text: "  "}, search, 8, 4)
	sess := newTestSession()
	sess.SetIndex(models.IndexHandle{IndexID: "idx-1"})

	ans, err := r.Answer(context.Background(), sess, "q")
	require.NoError(t, err)
	require.Contains(t, ans.Text, "relevant passage")
}
