// Package metrics 提供文档中心服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// HubMetrics 文档中心业务指标。
type HubMetrics struct {
	// 摄取指标
	documentsIngested uint64 // 已摄取文档数
	chunksIngested    uint64 // 已摄取分块数
	ingestErrors      uint64 // 摄取失败次数
	documentsDeleted  uint64 // 已删除文档数

	// 查询指标
	queriesTotal       uint64 // 总查询次数
	queriesCacheHits   uint64 // 缓存命中次数
	queriesCacheMisses uint64 // 缓存未命中次数
	queriesErrors      uint64 // 查询错误次数

	// 嵌入调用指标
	embedCallsTotal    uint64  // 嵌入总调用次数
	embedCallsDuration float64 // 嵌入调用总耗时（秒）
	embedCallsErrors   uint64  // 嵌入调用错误次数

	// LLM 调用指标
	llmCallsTotal       uint64  // LLM 总调用次数
	llmCallsDuration    float64 // LLM 调用总耗时（秒）
	llmCallsErrors      uint64  // LLM 调用错误次数
	llmTokensPrompt     uint64  // Prompt tokens 总数
	llmTokensCompletion uint64  // Completion tokens 总数

	// 相关性检查指标
	relevanceChecksTotal uint64 // 相关性检查次数
	relevantFilesTotal   uint64 // 判定为相关的文件总数

	startTime  time.Time
	durationMu sync.Mutex
}

// globalHubMetrics 全局指标实例。
var (
	globalHubMetrics *HubMetrics
	hubMetricsOnce   sync.Once
)

// GetHubMetrics 获取全局指标实例。
func GetHubMetrics() *HubMetrics {
	hubMetricsOnce.Do(func() {
		globalHubMetrics = &HubMetrics{
			startTime: time.Now(),
		}
	})
	return globalHubMetrics
}

// RecordIngest 记录一次文档摄取。
func (m *HubMetrics) RecordIngest(chunks int, err bool) {
	if err {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIngested, 1)
	atomic.AddUint64(&m.chunksIngested, uint64(chunks))
}

// RecordDelete 记录一次文档删除。
func (m *HubMetrics) RecordDelete(err bool) {
	if err {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsDeleted, 1)
}

// RecordQuery 记录一次查询。
func (m *HubMetrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
}

// RecordEmbedCall 记录一次嵌入调用。
func (m *HubMetrics) RecordEmbedCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.embedCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.embedCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.embedCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall 记录一次 LLM 调用。
func (m *HubMetrics) RecordLLMCall(duration time.Duration, promptTokens, completionTokens int, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()

	if promptTokens > 0 {
		atomic.AddUint64(&m.llmTokensPrompt, uint64(promptTokens))
	}
	if completionTokens > 0 {
		atomic.AddUint64(&m.llmTokensCompletion, uint64(completionTokens))
	}
}

// RecordRelevanceCheck 记录一次相关性检查。
func (m *HubMetrics) RecordRelevanceCheck(relevantFiles int) {
	atomic.AddUint64(&m.relevanceChecksTotal, 1)
	atomic.AddUint64(&m.relevantFilesTotal, uint64(relevantFiles))
}

// counter 输出一个 Prometheus counter。
func counter(sb *strings.Builder, prefix, name, help string, value uint64) {
	fmt.Fprintf(sb, "# HELP %s_%s %s\n", prefix, name, help)
	fmt.Fprintf(sb, "# TYPE %s_%s counter\n", prefix, name)
	fmt.Fprintf(sb, "%s_%s %d\n\n", prefix, name, value)
}

// gauge 输出一个 Prometheus gauge。
func gauge(sb *strings.Builder, prefix, name, help string, value float64) {
	fmt.Fprintf(sb, "# HELP %s_%s %s\n", prefix, name, help)
	fmt.Fprintf(sb, "# TYPE %s_%s gauge\n", prefix, name)
	fmt.Fprintf(sb, "%s_%s %.6f\n\n", prefix, name, value)
}

// Export 导出 Prometheus 文本格式指标。
func (m *HubMetrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	m.durationMu.Lock()
	embedDuration := m.embedCallsDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	// 摄取指标
	counter(&sb, prefix, "documents_ingested_total", "Total documents ingested.", atomic.LoadUint64(&m.documentsIngested))
	counter(&sb, prefix, "chunks_ingested_total", "Total chunks ingested.", atomic.LoadUint64(&m.chunksIngested))
	counter(&sb, prefix, "ingest_errors_total", "Number of ingestion errors.", atomic.LoadUint64(&m.ingestErrors))
	counter(&sb, prefix, "documents_deleted_total", "Total documents deleted.", atomic.LoadUint64(&m.documentsDeleted))

	// 查询指标
	counter(&sb, prefix, "queries_total", "Total number of queries.", atomic.LoadUint64(&m.queriesTotal))
	counter(&sb, prefix, "queries_cache_hits_total", "Number of cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	counter(&sb, prefix, "queries_cache_misses_total", "Number of cache misses.", atomic.LoadUint64(&m.queriesCacheMisses))
	counter(&sb, prefix, "queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))

	// 缓存命中率
	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	cacheTotal := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if cacheTotal > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheTotal)
	}
	gauge(&sb, prefix, "cache_hit_rate", "Cache hit rate (0-1).", cacheHitRate)

	// 嵌入调用指标
	counter(&sb, prefix, "embed_calls_total", "Total number of embedding calls.", atomic.LoadUint64(&m.embedCallsTotal))
	gauge(&sb, prefix, "embed_calls_duration_seconds_total", "Total embedding call duration.", embedDuration)
	counter(&sb, prefix, "embed_calls_errors_total", "Number of embedding call errors.", atomic.LoadUint64(&m.embedCallsErrors))

	// LLM 调用指标
	counter(&sb, prefix, "llm_calls_total", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	gauge(&sb, prefix, "llm_calls_duration_seconds_total", "Total LLM call duration.", llmDuration)
	counter(&sb, prefix, "llm_calls_errors_total", "Number of LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	counter(&sb, prefix, "llm_tokens_prompt_total", "Total prompt tokens.", atomic.LoadUint64(&m.llmTokensPrompt))
	counter(&sb, prefix, "llm_tokens_completion_total", "Total completion tokens.", atomic.LoadUint64(&m.llmTokensCompletion))

	// 相关性检查指标
	counter(&sb, prefix, "relevance_checks_total", "Total number of relevance checks.", atomic.LoadUint64(&m.relevanceChecksTotal))
	counter(&sb, prefix, "relevant_files_total", "Total files judged relevant.", atomic.LoadUint64(&m.relevantFilesTotal))

	// 运行时间
	gauge(&sb, prefix, "uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats 返回当前统计信息（用于 API）。
func (m *HubMetrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	embedDuration := m.embedCallsDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	cacheTotal := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if cacheTotal > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheTotal)
	}

	embedTotal := atomic.LoadUint64(&m.embedCallsTotal)
	avgEmbedDuration := 0.0
	if embedTotal > 0 {
		avgEmbedDuration = embedDuration / float64(embedTotal)
	}

	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLMDuration := 0.0
	if llmTotal > 0 {
		avgLLMDuration = llmDuration / float64(llmTotal)
	}

	return map[string]interface{}{
		"ingestion": map[string]interface{}{
			"documents_ingested": atomic.LoadUint64(&m.documentsIngested),
			"chunks_ingested":    atomic.LoadUint64(&m.chunksIngested),
			"documents_deleted":  atomic.LoadUint64(&m.documentsDeleted),
			"errors":             atomic.LoadUint64(&m.ingestErrors),
		},
		"queries": map[string]interface{}{
			"total":          atomic.LoadUint64(&m.queriesTotal),
			"cache_hits":     cacheHits,
			"cache_misses":   cacheMisses,
			"cache_hit_rate": cacheHitRate,
			"errors":         atomic.LoadUint64(&m.queriesErrors),
		},
		"embedding": map[string]interface{}{
			"calls_total":         embedTotal,
			"total_duration_secs": embedDuration,
			"avg_duration_secs":   avgEmbedDuration,
			"errors":              atomic.LoadUint64(&m.embedCallsErrors),
		},
		"llm": map[string]interface{}{
			"calls_total":         llmTotal,
			"total_duration_secs": llmDuration,
			"avg_duration_secs":   avgLLMDuration,
			"errors":              atomic.LoadUint64(&m.llmCallsErrors),
			"tokens_prompt":       atomic.LoadUint64(&m.llmTokensPrompt),
			"tokens_completion":   atomic.LoadUint64(&m.llmTokensCompletion),
		},
		"relevance": map[string]interface{}{
			"checks_total":         atomic.LoadUint64(&m.relevanceChecksTotal),
			"relevant_files_total": atomic.LoadUint64(&m.relevantFilesTotal),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset 重置所有指标（仅用于测试）。
func (m *HubMetrics) Reset() {
	atomic.StoreUint64(&m.documentsIngested, 0)
	atomic.StoreUint64(&m.chunksIngested, 0)
	atomic.StoreUint64(&m.ingestErrors, 0)
	atomic.StoreUint64(&m.documentsDeleted, 0)
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.embedCallsTotal, 0)
	atomic.StoreUint64(&m.embedCallsErrors, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.llmTokensPrompt, 0)
	atomic.StoreUint64(&m.llmTokensCompletion, 0)
	atomic.StoreUint64(&m.relevanceChecksTotal, 0)
	atomic.StoreUint64(&m.relevantFilesTotal, 0)

	m.durationMu.Lock()
	m.embedCallsDuration = 0
	m.llmCallsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
