// Package llm 提供统一的 LLM 供应商抽象层。
// 支持 Embedding 和 Chat 使用不同供应商的模型。
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// InputType 标识文本在非对称嵌入模型中的用途。
// 被索引的文档用 passage，检索查询用 query。
type InputType string

const (
	// InputPassage 表示待索引的文档片段。
	InputPassage InputType = "passage"

	// InputQuery 表示检索查询。
	InputQuery InputType = "query"
)

// ErrModelNotFound 表示模型 ID 无法解析到已注册的供应商。
var ErrModelNotFound = errors.New("model not found")

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入。
	// 支持非对称嵌入的供应商必须区分 input 类型。
	Embed(ctx context.Context, texts []string, input InputType) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string, input InputType) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// Chat 进行多轮对话。
	Chat(ctx context.Context, messages []Message) (string, error)

	// Generate 根据提示生成文本（单轮），返回内容和 token 使用情况。
	// 模型未返回任何候选内容时必须返回错误；空字符串是合法输出。
	Generate(ctx context.Context, prompt string, systemPrompt string) (*GenerateResponse, error)

	// Name 返回供应商名称。
	Name() string
}

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// GenerateResponse 生成结果。
type GenerateResponse struct {
	// Content 生成的文本内容。
	Content string `json:"content"`

	// TokenUsage token 使用情况（供应商未返回时为 nil）。
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

// TokenUsage token 使用统计。
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider 同时支持 Embedding 和 Chat 的完整供应商。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// ProviderFactory 供应商工厂函数类型。
type ProviderFactory func(config map[string]any) (Provider, error)

// EmbeddingProviderFactory Embedding 供应商工厂函数类型。
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// ChatProviderFactory Chat 供应商工厂函数类型。
type ChatProviderFactory func(config map[string]any) (ChatProvider, error)

// registry 供应商注册表。
var registry = &providerRegistry{
	providers:          make(map[string]ProviderFactory),
	embeddingProviders: make(map[string]EmbeddingProviderFactory),
	chatProviders:      make(map[string]ChatProviderFactory),
}

type providerRegistry struct {
	mu                 sync.RWMutex
	providers          map[string]ProviderFactory
	embeddingProviders map[string]EmbeddingProviderFactory
	chatProviders      map[string]ChatProviderFactory
}

// RegisterProvider 注册完整供应商工厂。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// RegisterEmbeddingProvider 注册 Embedding 供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// RegisterChatProvider 注册 Chat 供应商工厂。
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.chatProviders[name] = factory
}

// NewProvider 根据名称创建完整供应商实例。
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.providers[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return factory(config)
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
// 优先查找专用 Embedding 工厂，其次查找完整供应商工厂。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if factory, ok := registry.embeddingProviders[name]; ok {
		return factory(config)
	}

	if factory, ok := registry.providers[name]; ok {
		return factory(config)
	}

	return nil, fmt.Errorf("unknown embedding provider: %s", name)
}

// NewChatProvider 根据名称创建 Chat 供应商实例。
// 优先查找专用 Chat 工厂，其次查找完整供应商工厂。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if factory, ok := registry.chatProviders[name]; ok {
		return factory(config)
	}

	if factory, ok := registry.providers[name]; ok {
		return factory(config)
	}

	return nil, fmt.Errorf("unknown chat provider: %s", name)
}

// ListProviders 列出所有已注册的供应商名称。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string

	for name := range registry.providers {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range registry.embeddingProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range registry.chatProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}

// ParseModelID 解析 "provider/model" 形式的模型 ID。
// 斜杠后的部分允许再包含斜杠（如 "openrouter/openchat/openchat-3.5"）。
func ParseModelID(modelID string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(modelID, "/")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("invalid model id %q: expected provider/model", modelID)
	}
	return provider, model, nil
}

// ResolveChat 根据模型 ID 创建对应供应商的 Chat 实例。
// config 作为基础配置，模型名会覆盖其中的 chat_model。
// 供应商未注册时返回包装了 ErrModelNotFound 的错误。
func ResolveChat(modelID string, config map[string]any) (ChatProvider, error) {
	providerName, model, err := ParseModelID(modelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelNotFound, err)
	}

	registry.mu.RLock()
	chatFactory, hasChat := registry.chatProviders[providerName]
	fullFactory, hasFull := registry.providers[providerName]
	registry.mu.RUnlock()

	if !hasChat && !hasFull {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrModelNotFound, providerName)
	}

	merged := make(map[string]any, len(config)+1)
	for k, v := range config {
		merged[k] = v
	}
	merged["chat_model"] = model

	if hasChat {
		return chatFactory(merged)
	}
	return fullFactory(merged)
}
