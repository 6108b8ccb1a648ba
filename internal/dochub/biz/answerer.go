package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/dochub/internal/dochub/metrics"
	"github.com/kart-io/dochub/internal/dochub/store"
	"github.com/kart-io/dochub/internal/model"
	"github.com/kart-io/dochub/pkg/llm"
)

// defaultSystemPrompt 查询流程的默认系统提示。
const defaultSystemPrompt = `You are an AI assistant.
The user will provide a question.
If document content is provided, you MUST use the document content to answer the question.
If no document content is provided, answer the question as a general conversational AI.
The user will also specify the desired output format (bullets or paragraphs). Please format your answer accordingly.`

// AnswererConfig 问答流程配置。
type AnswererConfig struct {
	// TopK 检索返回的块数量。
	TopK int
	// SystemPrompt 系统提示，为空时使用默认值。
	SystemPrompt string
	// DefaultOutputFormat 请求未指定时使用的输出格式。
	DefaultOutputFormat model.OutputFormat
	// DefaultModelID 默认模型 ID（provider/model）。
	DefaultModelID string
	// ChatConfig 创建 Chat 供应商时的基础配置（api_key 等）。
	ChatConfig map[string]any
}

// Answerer 负责生成答案：组装上下文、解析模型、调用生成。
type Answerer struct {
	store       store.VectorStore
	embedder    llm.EmbeddingProvider
	defaultChat llm.ChatProvider
	config      *AnswererConfig
}

// NewAnswerer 创建问答器实例。
func NewAnswerer(s store.VectorStore, embedder llm.EmbeddingProvider, defaultChat llm.ChatProvider, config *AnswererConfig) *Answerer {
	if config == nil {
		config = &AnswererConfig{}
	}
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSystemPrompt
	}
	if config.DefaultOutputFormat == "" {
		config.DefaultOutputFormat = model.OutputParagraphs
	}
	return &Answerer{
		store:       s,
		embedder:    embedder,
		defaultChat: defaultChat,
		config:      config,
	}
}

// resolveChat 将请求的模型 ID 解析为 Chat 供应商。
// 未知模型记录警告并回退到默认供应商，而不是让整个查询失败。
func (a *Answerer) resolveChat(modelID string) (llm.ChatProvider, string) {
	if modelID == "" {
		return a.defaultChat, a.config.DefaultModelID
	}

	provider, err := llm.ResolveChat(modelID, a.config.ChatConfig)
	if err != nil {
		if errors.Is(err, llm.ErrModelNotFound) {
			logger.Warnf("could not resolve model %s, falling back to default", modelID)
		} else {
			logger.Warnw("failed to create chat provider, falling back to default",
				"model_id", modelID, "error", err.Error())
		}
		return a.defaultChat, a.config.DefaultModelID
	}
	return provider, modelID
}

// retrieveContext 在用户的命名空间内检索与问题最相关的块。
func (a *Answerer) retrieveContext(ctx context.Context, userID, query string) (string, []model.ChunkSource, error) {
	embedStart := time.Now()
	queryVec, err := a.embedder.EmbedSingle(ctx, query, llm.InputQuery)
	metrics.GetHubMetrics().RecordEmbedCall(time.Since(embedStart), err)
	if err != nil {
		return "", nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := a.store.Search(ctx, userID, queryVec, a.config.TopK)
	if err != nil {
		return "", nil, fmt.Errorf("failed to search vector store: %w", err)
	}
	if len(chunks) == 0 {
		return "", nil, nil
	}

	var sb strings.Builder
	sources := make([]model.ChunkSource, 0, len(chunks))
	for idx, chunk := range chunks {
		if idx > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(chunk.Metadata.Text)
		sources = append(sources, model.ChunkSource{
			DocumentID: chunk.Metadata.DocumentID,
			ChunkIndex: chunk.Metadata.ChunkIndex,
			Text:       chunk.Metadata.Text,
			Score:      chunk.Score,
		})
	}
	return sb.String(), sources, nil
}

// buildPrompt 组装用户提示。
func buildPrompt(query, documentContent string, format model.OutputFormat) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n")
	if documentContent != "" {
		sb.WriteString("\nDocument Content: ")
		sb.WriteString(documentContent)
		sb.WriteString("\n")
	}
	sb.WriteString("\nOutput Format: ")
	sb.WriteString(string(format))
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

// Answer 回答问题。
// 上下文优先级：显式文档内容 > 用户命名空间内的 top-k 检索 > 无上下文。
// 模型未返回输出是错误；空字符串答案是合法输出。
func (a *Answerer) Answer(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error) {
	format := req.OutputFormat
	if format == "" {
		format = a.config.DefaultOutputFormat
	}
	if !format.Valid() {
		return nil, fmt.Errorf("invalid output format: %s", format)
	}

	documentContent := req.DocumentContent
	var sources []model.ChunkSource

	if documentContent == "" && req.UserID != "" {
		retrieved, retrievedSources, err := a.retrieveContext(ctx, req.UserID, req.Query)
		if err != nil {
			// 检索失败降级为无上下文问答
			logger.Warnw("context retrieval failed, answering without context",
				"user_id", req.UserID, "error", err.Error())
		} else {
			documentContent = retrieved
			sources = retrievedSources
		}
	}

	chat, modelUsed := a.resolveChat(req.ModelID)
	if chat == nil {
		return nil, fmt.Errorf("no chat provider available")
	}

	prompt := buildPrompt(req.Query, documentContent, format)
	llmStart := time.Now()
	resp, err := chat.Generate(ctx, prompt, a.config.SystemPrompt)

	promptTokens, completionTokens := 0, 0
	if resp != nil && resp.TokenUsage != nil {
		promptTokens = resp.TokenUsage.PromptTokens
		completionTokens = resp.TokenUsage.CompletionTokens
	}
	metrics.GetHubMetrics().RecordLLMCall(time.Since(llmStart), promptTokens, completionTokens, err)

	if err != nil {
		return nil, fmt.Errorf("model failed to produce a valid output: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("model failed to produce a valid output: the output was empty")
	}

	if resp.TokenUsage != nil {
		logger.Debugw("answer generated",
			"model", modelUsed, "total_tokens", resp.TokenUsage.TotalTokens)
	}

	return &model.QueryResult{
		Answer:    resp.Content,
		ModelUsed: modelUsed,
		Sources:   sources,
	}, nil
}
