package biz

import (
	"context"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/dochub/internal/model"
	"github.com/kart-io/dochub/internal/pkg/textutil"
	"github.com/kart-io/dochub/pkg/llm"
)

// RelevanceStrategy 判定单个文件与查询是否相关。
// 判定逻辑是可插拔的：关键词包含是基线实现，嵌入相似度是升级实现。
type RelevanceStrategy interface {
	// Relevant 判断文件是否与查询相关。
	Relevant(ctx context.Context, query string, file model.RelevanceFile) (bool, error)

	// Name 返回策略名称。
	Name() string
}

// KeywordStrategy 基线策略：文件内容包含完整查询串（不区分大小写）即视为相关。
type KeywordStrategy struct{}

// NewKeywordStrategy 创建关键词策略。
func NewKeywordStrategy() *KeywordStrategy {
	return &KeywordStrategy{}
}

// Name 返回策略名称。
func (s *KeywordStrategy) Name() string { return "keyword" }

// Relevant 判断文件内容是否包含查询串。
func (s *KeywordStrategy) Relevant(_ context.Context, query string, file model.RelevanceFile) (bool, error) {
	return strings.Contains(strings.ToLower(file.Data), strings.ToLower(query)), nil
}

// EmbeddingStrategy 基于嵌入余弦相似度的策略。
// 文件内容与查询的归一化相似度达到阈值即视为相关。
type EmbeddingStrategy struct {
	embedder  llm.EmbeddingProvider
	threshold float64
	// maxChars 参与嵌入的文件内容上限，超出部分截断。
	maxChars int
}

// NewEmbeddingStrategy 创建嵌入相似度策略。
func NewEmbeddingStrategy(embedder llm.EmbeddingProvider, threshold float64) *EmbeddingStrategy {
	if threshold <= 0 {
		threshold = 0.7
	}
	return &EmbeddingStrategy{
		embedder:  embedder,
		threshold: threshold,
		maxChars:  8000,
	}
}

// Name 返回策略名称。
func (s *EmbeddingStrategy) Name() string { return "embedding" }

// Relevant 计算查询与文件内容的嵌入相似度。
func (s *EmbeddingStrategy) Relevant(ctx context.Context, query string, file model.RelevanceFile) (bool, error) {
	queryVec, err := s.embedder.EmbedSingle(ctx, query, llm.InputQuery)
	if err != nil {
		return false, err
	}

	content := textutil.TruncateString(file.Data, s.maxChars)
	fileVec, err := s.embedder.EmbedSingle(ctx, content, llm.InputPassage)
	if err != nil {
		return false, err
	}

	similarity := textutil.NormalizeCosineSimilarity(textutil.CosineSimilarity(queryVec, fileVec))
	return similarity >= s.threshold, nil
}

// Relevance 文件相关性流程：对每个候选文件应用策略，返回相关文件名。
type Relevance struct {
	strategy RelevanceStrategy
}

// NewRelevance 创建相关性流程实例。
func NewRelevance(strategy RelevanceStrategy) *Relevance {
	if strategy == nil {
		strategy = NewKeywordStrategy()
	}
	return &Relevance{strategy: strategy}
}

// Check 返回与查询相关的文件名，保持输入顺序。
// 单个文件的判定失败记录警告并跳过，不影响其他文件。
func (r *Relevance) Check(ctx context.Context, req *model.RelevanceRequest) *model.RelevanceResult {
	relevant := make([]string, 0, len(req.Files))
	for _, file := range req.Files {
		ok, err := r.strategy.Relevant(ctx, req.Query, file)
		if err != nil {
			logger.Warnw("relevance check failed for file",
				"file", file.Name, "strategy", r.strategy.Name(), "error", err.Error())
			continue
		}
		if ok {
			relevant = append(relevant, file.Name)
		}
	}
	return &model.RelevanceResult{RelevantFiles: relevant}
}
