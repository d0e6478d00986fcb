package workflows

import (
	"errors"
	"strings"
	"time"

	"pdfchat/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DocumentIngestWorkflow runs the full ingest pipeline for one uploaded PDF:
// extract pages, chunk, embed, upsert. Known failures come back as a graceful
// StatusFailed output so the caller can keep the session's prior index
// untouched; if the upsert step fails after partial writes the new index is
// purged so no partial handle is ever reachable.
func DocumentIngestWorkflow(ctx workflow.Context, input DocumentIngestInput) (DocumentIngestOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        20 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{activities.ErrTypeUnreadableDocument},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	out := DocumentIngestOutput{IndexID: input.IndexID}

	var pagesOut activities.ExtractPagesOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractPagesActivity", activities.ExtractPagesInput{DocumentPath: input.DocumentPath}).Get(ctx, &pagesOut); err != nil {
		if isUnreadableError(err) {
			out.Status = StatusFailed
			out.FailKind = FailUnreadableDocument
			out.FailReason = "document could not be parsed or contains no extractable text"
			return out, nil
		}
		return out, err
	}
	out.PageCount = len(pagesOut.Pages)

	var chunkOut activities.ChunkPagesOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkPagesActivity", activities.ChunkPagesInput{
		IndexID:      input.IndexID,
		Pages:        pagesOut.Pages,
		ChunkSize:    input.ChunkSize,
		ChunkOverlap: input.ChunkOverlap,
		Version:      input.EmbedVersion,
	}).Get(ctx, &chunkOut); err != nil {
		return out, err
	}
	if len(chunkOut.Chunks) == 0 {
		out.Status = StatusFailed
		out.FailKind = FailUnreadableDocument
		out.FailReason = "document produced no indexable text"
		return out, nil
	}

	var embedOut activities.EmbedChunksOutput
	if err := workflow.ExecuteActivity(ctx, "EmbedChunksActivity", activities.EmbedChunksInput{
		Operation: "chunk_embed",
		Input:     chunkOut.Chunks,
	}).Get(ctx, &embedOut); err != nil {
		out.Status = StatusFailed
		out.FailKind = FailEmbeddingUnavailable
		out.FailReason = "embedding provider unavailable"
		return out, nil
	}
	out.Provider = embedOut.ProviderName
	out.Model = embedOut.Model

	if err := workflow.ExecuteActivity(ctx, "UpsertChunksActivity", activities.UpsertChunksInput{
		Chunks:           chunkOut.Chunks,
		Vectors:          embedOut.Vectors,
		EmbeddingVersion: input.EmbedVersion,
	}).Get(ctx, nil); err != nil {
		// Compensate: drop whatever batches made it in.
		_ = workflow.ExecuteActivity(ctx, "PurgeIndexActivity", activities.PurgeIndexInput{IndexID: input.IndexID}).Get(ctx, nil)
		out.Status = StatusFailed
		out.FailKind = FailStoreWrite
		out.FailReason = "vector store rejected chunk writes"
		return out, nil
	}

	out.Status = StatusIndexed
	out.ChunkCount = len(chunkOut.Chunks)
	return out, nil
}

func isUnreadableError(err error) bool {
	if err == nil {
		return false
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() == activities.ErrTypeUnreadableDocument {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no extractable text") || strings.Contains(msg, "open pdf")
}
