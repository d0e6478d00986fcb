package activities

import (
	"context"
	"fmt"

	"pdfchat/internal/config"
	"pdfchat/internal/providers"
	"pdfchat/internal/storage"
	"pdfchat/internal/util"
	"pdfchat/internal/vector"

	"github.com/ledongthuc/pdf"
	"go.temporal.io/sdk/temporal"
)

const upsertBatchSize = 64

// ErrTypeUnreadableDocument marks extraction failures that retrying cannot
// fix: the same bytes parse the same way every attempt.
const ErrTypeUnreadableDocument = "UnreadableDocument"

type Activities struct {
	cfg       config.Config
	chunkRepo *storage.ChunkRepo
	providers *providers.Manager
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(providers.ManagerConfig{
		LLMProviders:   cfg.LLMProviders,
		EmbedProviders: cfg.EmbedProviders,
		EmbedDim:       cfg.EmbedDim,
	})
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:       cfg,
		chunkRepo: storage.NewChunkRepo(db),
		providers: pm,
	}, nil
}

// ExtractPagesActivity parses the uploaded PDF into ordered per-page text.
func (a *Activities) ExtractPagesActivity(ctx context.Context, in ExtractPagesInput) (ExtractPagesOutput, error) {
	_ = ctx
	f, r, err := pdf.Open(in.DocumentPath)
	if err != nil {
		return ExtractPagesOutput{}, temporal.NewNonRetryableApplicationError(fmt.Sprintf("open pdf: %v", err), ErrTypeUnreadableDocument, err)
	}
	defer f.Close()

	pages := make([]PageText, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single broken page does not fail the document.
			continue
		}
		text = util.SanitizeText(text)
		if text == "" {
			continue
		}
		pages = append(pages, PageText{Number: i, Text: text})
	}
	if len(pages) == 0 {
		return ExtractPagesOutput{}, temporal.NewNonRetryableApplicationError(util.ErrNoExtractableText.Error(), ErrTypeUnreadableDocument, util.ErrNoExtractableText)
	}
	return ExtractPagesOutput{Pages: pages}, nil
}

// ChunkPagesActivity splits each page into overlapping chunks. Chunk ids are
// content-derived, so re-ingesting the same document under the same index id
// and configuration yields identical chunks.
func (a *Activities) ChunkPagesActivity(ctx context.Context, in ChunkPagesInput) (ChunkPagesOutput, error) {
	_ = ctx
	if in.ChunkSize <= 0 {
		in.ChunkSize = a.cfg.ChunkSize
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		in.ChunkOverlap = a.cfg.ChunkOverlap
	}

	chunks := make([]ChunkItem, 0, len(in.Pages))
	idx := 0
	for _, page := range in.Pages {
		for _, part := range util.ChunkText(page.Text, in.ChunkSize, in.ChunkOverlap) {
			part = util.SanitizeText(part)
			if part == "" {
				continue
			}
			chunkHash := util.SHA256Hex([]byte(part))
			chunkID := util.SHA256Hex([]byte(fmt.Sprintf("%s:%d:%d:%s:%s", in.IndexID, page.Number, idx, chunkHash, in.Version)))
			chunks = append(chunks, ChunkItem{
				ChunkID:    chunkID,
				IndexID:    in.IndexID,
				ChunkIndex: idx,
				Page:       page.Number,
				Text:       part,
			})
			idx++
		}
	}
	return ChunkPagesOutput{Chunks: chunks}, nil
}

func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	inputs := make([]string, 0, len(in.Input))
	for _, c := range in.Input {
		inputs = append(inputs, c.Text)
	}
	vectors, info, err := a.providers.Embed(ctx, providers.EmbedRequest{
		Operation: in.Operation,
		Inputs:    inputs,
		Dimension: a.cfg.EmbedDim,
	})
	if err != nil {
		return EmbedChunksOutput{}, err
	}
	if len(vectors) != len(inputs) {
		return EmbedChunksOutput{}, fmt.Errorf("embedding count mismatch: %d inputs, %d vectors", len(inputs), len(vectors))
	}
	return EmbedChunksOutput{
		Vectors:      vectors,
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

func (a *Activities) UpsertChunksActivity(ctx context.Context, in UpsertChunksInput) error {
	records := make([]storage.ChunkRecord, 0, len(in.Chunks))
	for i, c := range in.Chunks {
		var embedding *string
		if i < len(in.Vectors) && len(in.Vectors[i]) > 0 {
			lit := vector.ToLiteral(in.Vectors[i])
			embedding = &lit
		}
		records = append(records, storage.ChunkRecord{
			ChunkID:          c.ChunkID,
			IndexID:          c.IndexID,
			ChunkIndex:       c.ChunkIndex,
			Page:             c.Page,
			Text:             util.SanitizeText(c.Text),
			EmbeddingVersion: in.EmbeddingVersion,
			EmbeddingVector:  embedding,
		})
	}
	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := a.chunkRepo.UpsertChunks(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// PurgeIndexActivity removes all rows under an index id. Used as compensation
// when ingest fails after partial writes, and to reclaim a replaced index.
func (a *Activities) PurgeIndexActivity(ctx context.Context, in PurgeIndexInput) error {
	return a.chunkRepo.DeleteIndex(ctx, in.IndexID)
}
