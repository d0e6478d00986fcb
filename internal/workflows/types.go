package workflows

const (
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
)

// Failure kinds reported by DocumentIngestWorkflow. The API maps these onto
// the ingestion error taxonomy for the client.
const (
	FailUnreadableDocument   = "unreadable_document"
	FailEmbeddingUnavailable = "embedding_unavailable"
	FailStoreWrite           = "store_write"
)

type DocumentIngestInput struct {
	IndexID      string `json:"index_id"`
	SessionID    string `json:"session_id"`
	DocumentPath string `json:"document_path"`
	Filename     string `json:"filename"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	EmbedVersion string `json:"embed_version"`
}

type DocumentIngestOutput struct {
	Status     string `json:"status"`
	FailKind   string `json:"fail_kind,omitempty"`
	FailReason string `json:"fail_reason,omitempty"`
	IndexID    string `json:"index_id"`
	ChunkCount int    `json:"chunk_count"`
	PageCount  int    `json:"page_count"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
}
