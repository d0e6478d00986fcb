package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn. Immutable once appended to a session
// transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// IndexHandle binds a session to the embedded-document rows written under one
// index id. A session holds at most one active handle; a later upload replaces
// it.
type IndexHandle struct {
	IndexID    string    `json:"index_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	PageCount  int       `json:"page_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type ChunkResult struct {
	ChunkID   string  `json:"chunk_id"`
	Page      int     `json:"page"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
	ChunkText string  `json:"chunk_text,omitempty"`
}
