// Package model defines the data models for the application.
package model

// Ingest status values. Flow failures are reported as data, not transport
// errors, so Status is always one of these.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// IngestRequest represents a document ingestion request.
type IngestRequest struct {
	UserID     string            `json:"user_id" binding:"required"`
	DocumentID string            `json:"document_id" binding:"required"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// IngestResult represents the outcome of a document ingestion.
type IngestResult struct {
	UserID        string `json:"user_id"`
	DocumentID    string `json:"document_id"`
	Status        string `json:"status"`
	ChunksIndexed int    `json:"chunks_indexed"`
	Error         string `json:"error,omitempty"`
}

// DeleteDocumentRequest represents a document removal request.
type DeleteDocumentRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	DocumentID string `json:"document_id" binding:"required"`
}

// DeleteDocumentResult represents the outcome of a document removal.
type DeleteDocumentResult struct {
	UserID     string `json:"user_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// OutputFormat controls how answers are formatted.
type OutputFormat string

const (
	OutputBullets    OutputFormat = "bullets"
	OutputParagraphs OutputFormat = "paragraphs"
)

// Valid reports whether the format is a known value.
func (f OutputFormat) Valid() bool {
	return f == OutputBullets || f == OutputParagraphs
}

// QueryRequest represents a question against the document hub.
type QueryRequest struct {
	Query           string       `json:"query" binding:"required"`
	DocumentContent string       `json:"document_content,omitempty"`
	UserID          string       `json:"user_id,omitempty"`
	OutputFormat    OutputFormat `json:"output_format,omitempty"`
	ModelID         string       `json:"model_id,omitempty"`
}

// ChunkSource identifies a retrieved chunk that grounded an answer.
type ChunkSource struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

// QueryResult represents a generated answer.
type QueryResult struct {
	Answer    string        `json:"answer"`
	ModelUsed string        `json:"model_used"`
	Sources   []ChunkSource `json:"sources,omitempty"`
	Cached    bool          `json:"cached,omitempty"`
}

// RelevanceFile is a candidate file for a relevance check.
type RelevanceFile struct {
	Name string `json:"name" binding:"required"`
	Data string `json:"data"`
}

// RelevanceRequest asks which files are relevant to a query.
type RelevanceRequest struct {
	Query string          `json:"query" binding:"required"`
	Files []RelevanceFile `json:"files" binding:"required"`
}

// RelevanceResult lists the names of relevant files.
type RelevanceResult struct {
	RelevantFiles []string `json:"relevant_files"`
}
