package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/dochub/internal/dochub/metrics"
	"github.com/kart-io/dochub/internal/dochub/store"
	"github.com/kart-io/dochub/internal/model"
	"github.com/kart-io/dochub/internal/pkg/textutil"
	"github.com/kart-io/dochub/pkg/llm"
)

// IngestorConfig 摄取管线配置。
type IngestorConfig struct {
	// ChunkSize 文本块大小（Unicode 字符数）。
	ChunkSize int
	// ChunkOverlap 块重叠大小。
	ChunkOverlap int
}

// Ingestor 负责文档摄取：分块、嵌入、写入向量存储。
// 所有失败都以 error 状态的结果返回，不向调用方抛传输错误。
type Ingestor struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
	config   *IngestorConfig
}

// NewIngestor 创建摄取器实例。
func NewIngestor(s store.VectorStore, embedder llm.EmbeddingProvider, config *IngestorConfig) *Ingestor {
	if config == nil {
		config = &IngestorConfig{ChunkSize: 1000, ChunkOverlap: 200}
	}
	return &Ingestor{
		store:    s,
		embedder: embedder,
		config:   config,
	}
}

// errorResult 构造失败结果。
func errorResult(req *model.IngestRequest, msg string) *model.IngestResult {
	return &model.IngestResult{
		UserID:     req.UserID,
		DocumentID: req.DocumentID,
		Status:     model.StatusError,
		Error:      msg,
	}
}

// Ingest 执行完整的摄取管线。
// 任一阶段失败时不写入任何数据，返回 error 状态的结果。
func (i *Ingestor) Ingest(ctx context.Context, req *model.IngestRequest) *model.IngestResult {
	if strings.TrimSpace(req.Content) == "" {
		return errorResult(req, "document content cannot be empty")
	}

	chunks := textutil.SplitIntoChunks(req.Content, i.config.ChunkSize, i.config.ChunkOverlap)
	if len(chunks) == 0 {
		return errorResult(req, "no text chunks could be generated from the document")
	}

	embedStart := time.Now()
	embeddings, err := i.embedder.Embed(ctx, chunks, llm.InputPassage)
	metrics.GetHubMetrics().RecordEmbedCall(time.Since(embedStart), err)
	if err != nil {
		logger.Errorw("embedding failed during ingestion",
			"user_id", req.UserID, "document_id", req.DocumentID, "error", err.Error())
		return errorResult(req, fmt.Sprintf("failed to generate embeddings: %v", err))
	}

	// 嵌入数量必须与块数量一致，否则整批失败，不写入任何数据
	if len(embeddings) != len(chunks) {
		return errorResult(req, fmt.Sprintf(
			"embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings)))
	}
	for idx, emb := range embeddings {
		if len(emb) == 0 {
			return errorResult(req, fmt.Sprintf("empty embedding returned for chunk %d", idx))
		}
	}

	originalFileName := req.DocumentID
	if name, ok := req.Metadata["fileName"]; ok && name != "" {
		originalFileName = name
	}
	extra := store.FilterExtra(req.Metadata)

	records := make([]*store.ChunkRecord, len(chunks))
	for idx, chunk := range chunks {
		records[idx] = &store.ChunkRecord{
			ID:        store.RecordID(req.DocumentID, idx),
			Embedding: embeddings[idx],
			Metadata: store.ChunkMetadata{
				Text:             chunk,
				UserID:           req.UserID,
				DocumentID:       req.DocumentID,
				ChunkIndex:       idx,
				OriginalFileName: originalFileName,
				Extra:            extra,
			},
		}
	}

	if err := i.store.Upsert(ctx, req.UserID, records); err != nil {
		logger.Errorw("vector store upsert failed",
			"user_id", req.UserID, "document_id", req.DocumentID, "error", err.Error())
		return errorResult(req, fmt.Sprintf("failed to store document chunks: %v", err))
	}

	logger.Infow("document ingested",
		"user_id", req.UserID, "document_id", req.DocumentID, "chunks", len(chunks))

	return &model.IngestResult{
		UserID:        req.UserID,
		DocumentID:    req.DocumentID,
		Status:        model.StatusSuccess,
		ChunksIndexed: len(chunks),
	}
}

// Delete 删除用户的某个文档的全部块。
func (i *Ingestor) Delete(ctx context.Context, userID, documentID string) *model.DeleteDocumentResult {
	if err := i.store.DeleteDocument(ctx, userID, documentID); err != nil {
		logger.Errorw("document deletion failed",
			"user_id", userID, "document_id", documentID, "error", err.Error())
		return &model.DeleteDocumentResult{
			UserID:     userID,
			DocumentID: documentID,
			Status:     model.StatusError,
			Error:      err.Error(),
		}
	}

	logger.Infow("document deleted", "user_id", userID, "document_id", documentID)
	return &model.DeleteDocumentResult{
		UserID:     userID,
		DocumentID: documentID,
		Status:     model.StatusSuccess,
	}
}
