package types

import "time"

// Author identifies who produced a message or uploaded a file. The
// wire names match what the bot client sends.
type Author struct {
	Type string `json:"type,omitempty"`
	ID   string `json:"user-id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ContentBlock is the structured message body persisted by the
// gateway; the pipeline only produces type "text".
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// Thread is a persisted conversation scope. It owns its messages and
// vectors; deleting a thread cascades in the backend.
type Thread struct {
	ThreadID    string    `json:"thread_id,omitempty"`
	Model       string    `json:"model"`
	Provider    string    `json:"provider"`
	Purpose     string    `json:"purpose,omitempty"`
	Author      *Author   `json:"author,omitempty"`
	TokensSpent int       `json:"tokens_spent"`
	Cost        float64   `json:"cost"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type Message struct {
	MessageID   string       `json:"message_id,omitempty"`
	ThreadID    string       `json:"thread_id"`
	Role        string       `json:"role"`
	Content     ContentBlock `json:"content"`
	Author      *Author      `json:"author,omitempty"`
	FileIDs     []string     `json:"file_ids,omitempty"`
	TokensSpent int          `json:"tokens_spent,omitempty"`
	Cost        float64      `json:"cost,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
}

// File is a stored upload. ContentHash is the SHA-256 of the raw
// bytes and uniquely identifies the logical file; Content holds the
// decoded text for text-like files and is empty for binary uploads.
// Address is the on-disk stored filename, or "deleted".
type File struct {
	FileID      string    `json:"file_id,omitempty"`
	Filename    string    `json:"filename"`
	Type        string    `json:"type"`
	Size        int64     `json:"size"`
	Content     string    `json:"content,omitempty"`
	ContentHash string    `json:"content_hash"`
	Address     string    `json:"address"`
	Author      *Author   `json:"author,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

const AddressDeleted = "deleted"

type VectorMetadata struct {
	Source     string `json:"source,omitempty"`
	FileID     string `json:"file_id,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	FileType   string `json:"file_type,omitempty"`
	ChunkIndex *int   `json:"chunk_index,omitempty"`
	Role       string `json:"role,omitempty"`
}

// Vector is one embedded chunk, owned by its thread and partitioned
// by namespace ("files" for document chunks, "messages" for replies).
type Vector struct {
	VectorID   string            `json:"vector_id,omitempty"`
	ThreadID   string            `json:"thread_id"`
	MessageID  string            `json:"message_id,omitempty"`
	Embedding  []float64         `json:"embedding"`
	Content    string            `json:"content"`
	Metadata   VectorMetadata    `json:"metadata"`
	Namespace  string            `json:"namespace"`
	EmbedTool  map[string]string `json:"embed_tool,omitempty"`
	Similarity float64           `json:"similarity,omitempty"`
	CreatedAt  time.Time         `json:"created_at,omitempty"`
}

const (
	NamespaceFiles    = "files"
	NamespaceMessages = "messages"
)

// Chunk is a transient split of an ingested document; never persisted
// on its own.
type Chunk struct {
	Text  string
	Index int
}

// ContextBundle is the triple assembled by the context builder to fit
// a model window.
type ContextBundle struct {
	Query        string
	QueryContext string
	LocalContext string
}
