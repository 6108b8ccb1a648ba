package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/dochub/pkg/component/milvus"
	"github.com/kart-io/dochub/pkg/utils/json"
)

// milvusAPI 是 MilvusStore 依赖的客户端操作集合。
type milvusAPI interface {
	EnsureCollection(ctx context.Context, schema *milvus.CollectionSchema) error
	EnsurePartition(ctx context.Context, collectionName, partitionName string) error
	HasPartition(ctx context.Context, collectionName, partitionName string) (bool, error)
	Upsert(ctx context.Context, collectionName, partitionName string, data *milvus.UpsertData) error
	Search(ctx context.Context, collectionName, partitionName string, vector []float32, topK int, filter string, outputFields []string) ([]milvus.SearchResult, error)
	DeleteByExpr(ctx context.Context, collectionName, partitionName, expr string) error
	GetCollectionStats(ctx context.Context, collectionName string) (int64, error)
	Close(ctx context.Context) error
}

// MilvusStore 实现基于 Milvus 的向量存储。
// 用户命名空间映射为集合内的分区。
type MilvusStore struct {
	client     milvusAPI
	collection string
	dimension  int
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client, collection string, dimension int) *MilvusStore {
	return &MilvusStore{
		client:     client,
		collection: collection,
		dimension:  dimension,
	}
}

// partitionName 将命名空间转换为合法的 Milvus 分区名。
// 分区名只允许字母、数字和下划线，且不能以数字开头。
func partitionName(namespace string) string {
	var b strings.Builder
	for _, r := range namespace {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "p_" + name
	}
	return name
}

// EnsureReady 确保集合存在、已建索引并已加载。
func (s *MilvusStore) EnsureReady(ctx context.Context) error {
	schema := &milvus.CollectionSchema{
		Name:        s.collection,
		Description: "document chunks with per-user partitions",
		Dimension:   s.dimension,
		IDMaxLen:    512,
		MetaFields: []milvus.MetaField{
			{Name: "text", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: "user_id", DataType: entity.FieldTypeVarChar, MaxLen: 256},
			{Name: "document_id", DataType: entity.FieldTypeVarChar, MaxLen: 256},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
			{Name: "original_file_name", DataType: entity.FieldTypeVarChar, MaxLen: 1024},
			{Name: "extra", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
	return s.client.EnsureCollection(ctx, schema)
}

// Upsert 将文档块写入用户分区。
func (s *MilvusStore) Upsert(ctx context.Context, userID string, records []*ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	partition := partitionName(Namespace(userID))
	if err := s.client.EnsurePartition(ctx, s.collection, partition); err != nil {
		return err
	}

	n := len(records)
	data := &milvus.UpsertData{
		IDs:        make([]string, n),
		Embeddings: make([][]float32, n),
		Metadata: map[string][]any{
			"text":               make([]any, n),
			"user_id":            make([]any, n),
			"document_id":        make([]any, n),
			"chunk_index":        make([]any, n),
			"original_file_name": make([]any, n),
			"extra":              make([]any, n),
		},
	}

	for i, rec := range records {
		extraJSON := ""
		if len(rec.Metadata.Extra) > 0 {
			encoded, err := json.Marshal(rec.Metadata.Extra)
			if err != nil {
				return fmt.Errorf("failed to encode extra metadata for %s: %w", rec.ID, err)
			}
			extraJSON = string(encoded)
		}

		data.IDs[i] = rec.ID
		data.Embeddings[i] = rec.Embedding
		data.Metadata["text"][i] = rec.Metadata.Text
		data.Metadata["user_id"][i] = rec.Metadata.UserID
		data.Metadata["document_id"][i] = rec.Metadata.DocumentID
		data.Metadata["chunk_index"][i] = int64(rec.Metadata.ChunkIndex)
		data.Metadata["original_file_name"][i] = rec.Metadata.OriginalFileName
		data.Metadata["extra"][i] = extraJSON
	}

	if err := s.client.Upsert(ctx, s.collection, partition, data); err != nil {
		return fmt.Errorf("failed to upsert into milvus: %w", err)
	}
	return nil
}

var outputFields = []string{"text", "user_id", "document_id", "chunk_index", "original_file_name", "extra"}

// Search 在用户分区内做向量相似度搜索。
func (s *MilvusStore) Search(ctx context.Context, userID string, embedding []float32, topK int) ([]*ScoredChunk, error) {
	partition := partitionName(Namespace(userID))

	// 用户还没有任何数据时分区不存在，按空结果处理
	exists, err := s.client.HasPartition(ctx, s.collection, partition)
	if err != nil {
		return nil, fmt.Errorf("failed to check partition: %w", err)
	}
	if !exists {
		return []*ScoredChunk{}, nil
	}

	results, err := s.client.Search(ctx, s.collection, partition, embedding, topK, "", outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	chunks := make([]*ScoredChunk, 0, len(results))
	for _, r := range results {
		chunk := &ScoredChunk{
			ID:    r.ID,
			Score: r.Score,
		}
		if v, ok := r.Metadata["text"].(string); ok {
			chunk.Metadata.Text = v
		}
		if v, ok := r.Metadata["user_id"].(string); ok {
			chunk.Metadata.UserID = v
		}
		if v, ok := r.Metadata["document_id"].(string); ok {
			chunk.Metadata.DocumentID = v
		}
		if v, ok := r.Metadata["chunk_index"].(int64); ok {
			chunk.Metadata.ChunkIndex = int(v)
		}
		if v, ok := r.Metadata["original_file_name"].(string); ok {
			chunk.Metadata.OriginalFileName = v
		}
		if v, ok := r.Metadata["extra"].(string); ok && v != "" {
			extra := make(map[string]string)
			if err := json.Unmarshal([]byte(v), &extra); err == nil {
				chunk.Metadata.Extra = extra
			}
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// DeleteDocument 删除用户分区内某文档的所有块。
func (s *MilvusStore) DeleteDocument(ctx context.Context, userID, documentID string) error {
	partition := partitionName(Namespace(userID))
	expr := fmt.Sprintf("document_id == %q", documentID)
	if err := s.client.DeleteByExpr(ctx, s.collection, partition, expr); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}
	return nil
}

// Stats 返回集合内的总行数。
func (s *MilvusStore) Stats(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.collection)
}

// Close 关闭底层连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

var _ VectorStore = (*MilvusStore)(nil)
