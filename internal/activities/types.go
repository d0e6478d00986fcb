package activities

// PageText is the extracted text of one PDF page, in document order.
type PageText struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

type ExtractPagesInput struct {
	DocumentPath string `json:"document_path"`
}

type ExtractPagesOutput struct {
	Pages []PageText `json:"pages"`
}

type ChunkItem struct {
	ChunkID    string `json:"chunk_id"`
	IndexID    string `json:"index_id"`
	ChunkIndex int    `json:"chunk_index"`
	Page       int    `json:"page"`
	Text       string `json:"text"`
}

type ChunkPagesInput struct {
	IndexID      string     `json:"index_id"`
	Pages        []PageText `json:"pages"`
	ChunkSize    int        `json:"chunk_size"`
	ChunkOverlap int        `json:"chunk_overlap"`
	Version      string     `json:"version"`
}

type ChunkPagesOutput struct {
	Chunks []ChunkItem `json:"chunks"`
}

type EmbedChunksInput struct {
	Operation string      `json:"operation"`
	Input     []ChunkItem `json:"input"`
}

type EmbedChunksOutput struct {
	Vectors      [][]float32 `json:"vectors"`
	ProviderName string      `json:"provider_name"`
	Model        string      `json:"model"`
}

type UpsertChunksInput struct {
	Chunks           []ChunkItem `json:"chunks"`
	Vectors          [][]float32 `json:"vectors"`
	EmbeddingVersion string      `json:"embedding_version"`
}

type PurgeIndexInput struct {
	IndexID string `json:"index_id"`
}
