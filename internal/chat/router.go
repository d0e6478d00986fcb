package chat

import (
	"context"
	"fmt"
	"strings"

	"pdfchat/internal/models"
	"pdfchat/internal/providers"
	"pdfchat/internal/session"
	"pdfchat/internal/util"
)

// AnswerMode is the explicit dispatch variant for one question. It is decided
// once per question from session state, never per chunk.
type AnswerMode string

const (
	ModePlainCompletion    AnswerMode = "plain_completion"
	ModeRetrievalAugmented AnswerMode = "retrieval_augmented"
)

type EmbeddingClient interface {
	Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error)
}

type CompletionClient interface {
	Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error)
}

type ChunkSearcher interface {
	SearchChunks(ctx context.Context, indexID string, queryVec []float32, topK int) ([]models.ChunkResult, error)
}

// Router answers user questions. With no index active it sends the question
// through a fixed step-by-step completion template; with an index active it
// embeds the question, retrieves the top chunks scoped to that index, and
// generates a grounded answer. Only the answer text is returned; retrieval
// citations are discarded.
type Router struct {
	embed    EmbeddingClient
	llm      CompletionClient
	searcher ChunkSearcher
	embedDim int
	topK     int
}

func NewRouter(embed EmbeddingClient, llm CompletionClient, searcher ChunkSearcher, embedDim, topK int) *Router {
	if topK <= 0 {
		topK = 4
	}
	return &Router{embed: embed, llm: llm, searcher: searcher, embedDim: embedDim, topK: topK}
}

type Answer struct {
	Text           string
	Mode           AnswerMode
	RetrievedCount int
}

// Answer records the user question, dispatches on the session's index state,
// and records the assistant reply. On failure the question stays in the
// transcript and no assistant message is appended.
func (r *Router) Answer(ctx context.Context, sess *session.Session, question string) (Answer, error) {
	sess.AppendMessage(models.RoleUser, question)

	mode := ModePlainCompletion
	idx, active := sess.Index()
	if active {
		mode = ModeRetrievalAugmented
	}

	var (
		text      string
		retrieved int
		err       error
	)
	switch mode {
	case ModeRetrievalAugmented:
		text, retrieved, err = r.answerFromIndex(ctx, idx, question)
	default:
		text, err = r.answerPlain(ctx, question)
	}
	if err != nil {
		return Answer{Mode: mode}, err
	}

	sess.AppendMessage(models.RoleAssistant, text)
	return Answer{Text: text, Mode: mode, RetrievedCount: retrieved}, nil
}

const plainPromptTemplate = "Question: %s\nAnswer: Let's think step by step."

func (r *Router) answerPlain(ctx context.Context, question string) (string, error) {
	resp, _, err := r.llm.Generate(ctx, providers.GenerateRequest{
		Operation: "plain_completion",
		Prompt:    fmt.Sprintf(plainPromptTemplate, question),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (r *Router) answerFromIndex(ctx context.Context, idx models.IndexHandle, question string) (string, int, error) {
	vectors, _, err := r.embed.Embed(ctx, providers.EmbedRequest{
		Operation: "question_embed",
		Inputs:    []string{question},
		Dimension: r.embedDim,
	})
	if err != nil || len(vectors) == 0 {
		return "", 0, fmt.Errorf("%w: %v", util.ErrEmbeddingUnavailable, err)
	}

	results, err := r.searcher.SearchChunks(ctx, idx.IndexID, vectors[0], r.topK)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", util.ErrStoreQuery, err)
	}

	excerpts := make([]string, 0, len(results))
	for i, res := range results {
		excerpts = append(excerpts, fmt.Sprintf("[%d] (page %d) %s", i+1, res.Page, util.DisplaySnippet(res.ChunkText, 1200)))
	}

	prompt := "Question: " + question + "\n\n" +
		"Answer using ONLY the provided document excerpts.\n" +
		"If the excerpts do not contain enough information, state what is missing.\n\n" +
		"Document excerpts:"

	resp, _, err := r.llm.Generate(ctx, providers.GenerateRequest{
		Operation: "document_answer",
		Prompt:    prompt,
		Context:   excerpts,
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}

	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		answer = fallbackExtractiveAnswer(results)
	}
	return answer, len(results), nil
}

func fallbackExtractiveAnswer(results []models.ChunkResult) string {
	if len(results) == 0 {
		return "No relevant passages were found in the uploaded document for this question."
	}
	lines := make([]string, 0, 4)
	lines = append(lines, "The most relevant passages from the document:")
	limit := len(results)
	if limit > 3 {
		limit = 3
	}
	for i := 0; i < limit; i++ {
		lines = append(lines, fmt.Sprintf("- (page %d) %s", results[i].Page, util.DisplaySnippet(results[i].ChunkText, 180)))
	}
	return strings.Join(lines, "\n")
}
