package store

import (
	"context"
	"fmt"
)

// 保留的元数据键，由系统写入，调用方提供的额外元数据不得覆盖。
var reservedMetadataKeys = map[string]struct{}{
	"userId":           {},
	"documentId":       {},
	"chunkIndex":       {},
	"originalFileName": {},
	"source":           {},
	"contentType":      {},
}

// IsReservedMetadataKey 判断键是否为系统保留的元数据键。
func IsReservedMetadataKey(key string) bool {
	_, ok := reservedMetadataKeys[key]
	return ok
}

// FilterExtra 返回去掉保留键后的额外元数据副本。
func FilterExtra(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	filtered := make(map[string]string, len(extra))
	for k, v := range extra {
		if IsReservedMetadataKey(k) {
			continue
		}
		filtered[k] = v
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

// RecordID 生成文档块的确定性主键。
// 同一文档的同一块索引总是得到相同的 ID，重复摄取因此是幂等的。
func RecordID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("doc:%s:chunk:%d", documentID, chunkIndex)
}

// Namespace 返回用户的命名空间标识。
// 一个用户的数据只在自己的命名空间内可见。
func Namespace(userID string) string {
	return "user-" + userID
}

// ChunkMetadata 文档块的元数据。
type ChunkMetadata struct {
	// Text 块的原始文本。
	Text string
	// UserID 所属用户 ID。
	UserID string
	// DocumentID 所属文档 ID。
	DocumentID string
	// ChunkIndex 块在文档中的序号。
	ChunkIndex int
	// OriginalFileName 原始文件名（缺省为文档 ID）。
	OriginalFileName string
	// Extra 调用方提供的额外元数据，不含保留键。
	Extra map[string]string
}

// ChunkRecord 待写入向量存储的文档块。
type ChunkRecord struct {
	// ID 确定性主键，见 RecordID。
	ID string
	// Embedding 嵌入向量。
	Embedding []float32
	// Metadata 块元数据。
	Metadata ChunkMetadata
}

// ScoredChunk 检索结果中的文档块。
type ScoredChunk struct {
	// ID 文档块主键。
	ID string
	// Score 相似度分数。
	Score float32
	// Metadata 块元数据。
	Metadata ChunkMetadata
}

// VectorStore 定义按用户隔离的向量存储接口。
type VectorStore interface {
	// EnsureReady 确保底层集合存在且可用。
	EnsureReady(ctx context.Context) error

	// Upsert 将文档块写入用户的命名空间，相同 ID 覆盖旧值。
	Upsert(ctx context.Context, userID string, records []*ChunkRecord) error

	// Search 在用户的命名空间内做向量相似度搜索。
	Search(ctx context.Context, userID string, embedding []float32, topK int) ([]*ScoredChunk, error)

	// DeleteDocument 删除用户命名空间内某文档的所有块。
	DeleteDocument(ctx context.Context, userID, documentID string) error

	// Stats 返回集合内的总行数。
	Stats(ctx context.Context) (int64, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}
