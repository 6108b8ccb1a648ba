package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/dochub/internal/dochub/metrics"
	"github.com/kart-io/dochub/internal/dochub/store"
	"github.com/kart-io/dochub/internal/model"
)

// Service 定义文档中心服务接口。
type Service interface {
	// Ingest 摄取文档。
	Ingest(ctx context.Context, req *model.IngestRequest) *model.IngestResult
	// DeleteDocument 删除文档。
	DeleteDocument(ctx context.Context, req *model.DeleteDocumentRequest) *model.DeleteDocumentResult
	// Query 回答问题。
	Query(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error)
	// Relevance 判定文件相关性。
	Relevance(ctx context.Context, req *model.RelevanceRequest) *model.RelevanceResult
	// Stats 返回服务统计信息。
	Stats(ctx context.Context) (map[string]any, error)
}

// HubService 组合摄取、问答和相关性流程，并叠加缓存与指标。
type HubService struct {
	ingestor  *Ingestor
	answerer  *Answerer
	relevance *Relevance
	cache     *AnswerCache
	store     store.VectorStore
	metrics   *metrics.HubMetrics
}

// NewHubService 创建文档中心服务实例。
func NewHubService(
	ingestor *Ingestor,
	answerer *Answerer,
	relevance *Relevance,
	cache *AnswerCache,
	vectorStore store.VectorStore,
) *HubService {
	return &HubService{
		ingestor:  ingestor,
		answerer:  answerer,
		relevance: relevance,
		cache:     cache,
		store:     vectorStore,
		metrics:   metrics.GetHubMetrics(),
	}
}

// Ingest 摄取文档，成功后使该用户的缓存答案失效。
func (s *HubService) Ingest(ctx context.Context, req *model.IngestRequest) *model.IngestResult {
	result := s.ingestor.Ingest(ctx, req)
	s.metrics.RecordIngest(result.ChunksIndexed, result.Status == model.StatusError)

	if result.Status == model.StatusSuccess && s.cache != nil {
		if err := s.cache.Invalidate(ctx, req.UserID); err != nil {
			logger.Warnw("failed to invalidate answer cache after ingest",
				"user_id", req.UserID, "error", err.Error())
		}
	}
	return result
}

// DeleteDocument 删除文档，成功后使该用户的缓存答案失效。
func (s *HubService) DeleteDocument(ctx context.Context, req *model.DeleteDocumentRequest) *model.DeleteDocumentResult {
	result := s.ingestor.Delete(ctx, req.UserID, req.DocumentID)
	s.metrics.RecordDelete(result.Status == model.StatusError)

	if result.Status == model.StatusSuccess && s.cache != nil {
		if err := s.cache.Invalidate(ctx, req.UserID); err != nil {
			logger.Warnw("failed to invalidate answer cache after delete",
				"user_id", req.UserID, "error", err.Error())
		}
	}
	return result
}

// Query 回答问题，优先返回缓存答案。
// 缓存读写失败降级为正常查询，不影响结果。
func (s *HubService) Query(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, req); err == nil && cached != nil {
			s.metrics.RecordQuery(true, nil)
			return cached, nil
		}
	}

	result, err := s.answerer.Answer(ctx, req)
	s.metrics.RecordQuery(false, err)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, req, result); err != nil {
			logger.Warnw("failed to cache answer", "error", err.Error())
		}
	}
	return result, nil
}

// Relevance 判定文件相关性。
func (s *HubService) Relevance(ctx context.Context, req *model.RelevanceRequest) *model.RelevanceResult {
	result := s.relevance.Check(ctx, req)
	s.metrics.RecordRelevanceCheck(len(result.RelevantFiles))
	return result
}

// Stats 返回向量存储与业务指标的统计信息。
func (s *HubService) Stats(ctx context.Context) (map[string]any, error) {
	rowCount, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	stats := s.metrics.Stats()
	stats["store"] = map[string]any{
		"row_count": rowCount,
	}
	return stats, nil
}

var _ Service = (*HubService)(nil)
