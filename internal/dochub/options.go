// Package dochub provides the document hub service application.
package dochub

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/dochub/internal/model"
	logopts "github.com/kart-io/dochub/pkg/options/logger"
	milvusopts "github.com/kart-io/dochub/pkg/options/milvus"
	redisopts "github.com/kart-io/dochub/pkg/options/redis"
)

// Options contains all document hub service options.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *HTTPOptions `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Milvus contains Milvus client configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding contains embedding provider configuration.
	Embedding *LLMProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat contains chat provider configuration.
	Chat *LLMProviderOptions `json:"chat" mapstructure:"chat"`

	// Hub contains document hub flow configuration.
	Hub *HubOptions `json:"hub" mapstructure:"hub"`

	// Cache contains answer cache configuration.
	Cache *CacheOptions `json:"cache" mapstructure:"cache"`
}

// HTTPOptions contains HTTP server configuration.
type HTTPOptions struct {
	// Addr is the address to listen on.
	Addr string `json:"addr" mapstructure:"addr"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`

	// CORSAllowOrigins lists origins allowed to make cross-origin requests.
	// Empty disables CORS.
	CORSAllowOrigins []string `json:"cors-allow-origins" mapstructure:"cors-allow-origins"`
}

// NewHTTPOptions creates default HTTP options.
func NewHTTPOptions() *HTTPOptions {
	return &HTTPOptions{
		Addr:            ":8084",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    90 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LLMProviderOptions 定义 LLM 供应商配置。
type LLMProviderOptions struct {
	// Provider 供应商名称（ollama, openai, gemini, deepseek）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（openai 等需要）。
	APIKey string `json:"api-key" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（openai 可选）。
	Organization string `json:"organization" mapstructure:"organization"`
}

// NewLLMProviderOptions 创建默认 LLM 供应商配置。
func NewLLMProviderOptions() *LLMProviderOptions {
	return &LLMProviderOptions{
		Provider:   "ollama",
		BaseURL:    "http://localhost:11434",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *LLMProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
}

// ModelID returns the provider/model identifier for this configuration.
func (o *LLMProviderOptions) ModelID() string {
	return o.Provider + "/" + o.Model
}

// HubOptions contains document hub flow configuration.
type HubOptions struct {
	// ChunkSize is the size of text chunks in runes.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between adjacent chunks in runes.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the number of chunks to retrieve per query.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Collection is the name of the Milvus collection.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// DefaultOutputFormat is used when a query does not specify one.
	DefaultOutputFormat string `json:"default-output-format" mapstructure:"default-output-format"`

	// SystemPrompt overrides the built-in query system prompt when set.
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`

	// RelevanceStrategy selects the file relevance strategy (keyword, embedding).
	RelevanceStrategy string `json:"relevance-strategy" mapstructure:"relevance-strategy"`

	// RelevanceThreshold is the similarity threshold for the embedding strategy.
	RelevanceThreshold float64 `json:"relevance-threshold" mapstructure:"relevance-threshold"`
}

// NewHubOptions creates default hub options.
func NewHubOptions() *HubOptions {
	return &HubOptions{
		ChunkSize:           1000,
		ChunkOverlap:        200,
		TopK:                5,
		Collection:          "dochub_chunks",
		EmbeddingDim:        768, // nomic-embed-text dimension
		DefaultOutputFormat: string(model.OutputParagraphs),
		RelevanceStrategy:   "keyword",
		RelevanceThreshold:  0.7,
	}
}

// CacheOptions 答案缓存配置。
type CacheOptions struct {
	// Enabled 是否启用缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewCacheOptions 创建默认缓存配置。
func NewCacheOptions() *CacheOptions {
	return &CacheOptions{
		Enabled:   true,
		TTL:       1 * time.Hour,
		KeyPrefix: "dochub:answer:",
		Redis:     redisopts.NewOptions(),
	}
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	embeddingOpts := NewLLMProviderOptions()
	embeddingOpts.Model = "nomic-embed-text"

	chatOpts := NewLLMProviderOptions()
	chatOpts.Model = "llama3.1:8b"

	return &Options{
		HTTP:      NewHTTPOptions(),
		Log:       logopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Embedding: embeddingOpts,
		Chat:      chatOpts,
		Hub:       NewHubOptions(),
		Cache:     NewCacheOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.addHTTPFlags(fs)
	o.addProviderFlags(fs, "embedding", o.Embedding)
	o.addProviderFlags(fs, "chat", o.Chat)
	o.addHubFlags(fs)
	o.addCacheFlags(fs)
}

func (o *Options) addHTTPFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.HTTP.Addr, "http.addr", o.HTTP.Addr, "HTTP listen address")
	fs.DurationVar(&o.HTTP.ReadTimeout, "http.read-timeout", o.HTTP.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&o.HTTP.WriteTimeout, "http.write-timeout", o.HTTP.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&o.HTTP.ShutdownTimeout, "http.shutdown-timeout", o.HTTP.ShutdownTimeout, "Graceful shutdown timeout")
	fs.StringSliceVar(&o.HTTP.CORSAllowOrigins, "http.cors-allow-origins", o.HTTP.CORSAllowOrigins, "Origins allowed for cross-origin requests (empty disables CORS)")
}

func (o *Options) addProviderFlags(fs *pflag.FlagSet, prefix string, opts *LLMProviderOptions) {
	fs.StringVar(&opts.Provider, prefix+".provider", opts.Provider, prefix+" provider (ollama, openai, gemini, deepseek)")
	fs.StringVar(&opts.BaseURL, prefix+".base-url", opts.BaseURL, prefix+" API base URL")
	fs.StringVar(&opts.APIKey, prefix+".api-key", opts.APIKey, prefix+" API key")
	fs.StringVar(&opts.Model, prefix+".model", opts.Model, prefix+" model name")
	fs.DurationVar(&opts.Timeout, prefix+".timeout", opts.Timeout, prefix+" request timeout")
	fs.IntVar(&opts.MaxRetries, prefix+".max-retries", opts.MaxRetries, prefix+" max retries")
}

func (o *Options) addHubFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.Hub.ChunkSize, "hub.chunk-size", o.Hub.ChunkSize, "Size of text chunks in runes")
	fs.IntVar(&o.Hub.ChunkOverlap, "hub.chunk-overlap", o.Hub.ChunkOverlap, "Overlap between chunks in runes")
	fs.IntVar(&o.Hub.TopK, "hub.top-k", o.Hub.TopK, "Number of chunks retrieved per query")
	fs.StringVar(&o.Hub.Collection, "hub.collection", o.Hub.Collection, "Milvus collection name")
	fs.IntVar(&o.Hub.EmbeddingDim, "hub.embedding-dim", o.Hub.EmbeddingDim, "Embedding vector dimension")
	fs.StringVar(&o.Hub.DefaultOutputFormat, "hub.default-output-format", o.Hub.DefaultOutputFormat, "Default answer output format (bullets, paragraphs)")
	fs.StringVar(&o.Hub.SystemPrompt, "hub.system-prompt", o.Hub.SystemPrompt, "Override for the query system prompt")
	fs.StringVar(&o.Hub.RelevanceStrategy, "hub.relevance-strategy", o.Hub.RelevanceStrategy, "File relevance strategy (keyword, embedding)")
	fs.Float64Var(&o.Hub.RelevanceThreshold, "hub.relevance-threshold", o.Hub.RelevanceThreshold, "Similarity threshold for the embedding strategy")
}

func (o *Options) addCacheFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Cache.Enabled, "cache.enabled", o.Cache.Enabled, "Enable answer cache")
	fs.DurationVar(&o.Cache.TTL, "cache.ttl", o.Cache.TTL, "Cache TTL duration")
	fs.StringVar(&o.Cache.KeyPrefix, "cache.key-prefix", o.Cache.KeyPrefix, "Cache key prefix")
	o.Cache.Redis.AddFlags(fs, "cache")
}

// Complete completes the options.
// An empty hub.system-prompt means the built-in prompt is used.
func (o *Options) Complete() error {
	if o.Cache.Redis == nil {
		o.Cache.Redis = redisopts.NewOptions()
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() error {
	if err := o.Log.Validate(); err != nil {
		return err
	}
	for _, err := range o.Milvus.Validate() {
		return err
	}
	if err := o.validateProvider(o.Embedding, "embedding"); err != nil {
		return err
	}
	if err := o.validateProvider(o.Chat, "chat"); err != nil {
		return err
	}
	if o.Hub.ChunkSize <= 0 {
		return fmt.Errorf("hub.chunk-size must be positive")
	}
	if o.Hub.ChunkOverlap < 0 || o.Hub.ChunkOverlap >= o.Hub.ChunkSize {
		return fmt.Errorf("hub.chunk-overlap must be in [0, chunk-size)")
	}
	if o.Hub.TopK <= 0 {
		return fmt.Errorf("hub.top-k must be positive")
	}
	if o.Hub.Collection == "" {
		return fmt.Errorf("hub.collection is required")
	}
	if o.Hub.EmbeddingDim <= 0 {
		return fmt.Errorf("hub.embedding-dim must be positive")
	}
	if !model.OutputFormat(o.Hub.DefaultOutputFormat).Valid() {
		return fmt.Errorf("hub.default-output-format must be bullets or paragraphs")
	}
	if o.Hub.RelevanceStrategy != "keyword" && o.Hub.RelevanceStrategy != "embedding" {
		return fmt.Errorf("hub.relevance-strategy must be keyword or embedding")
	}
	if o.Cache.Enabled {
		for _, err := range o.Cache.Redis.Validate() {
			return err
		}
	}
	return nil
}

func (o *Options) validateProvider(opts *LLMProviderOptions, prefix string) error {
	if opts.Provider == "" {
		return fmt.Errorf("%s.provider is required", prefix)
	}
	if opts.Model == "" {
		return fmt.Errorf("%s.model is required", prefix)
	}
	// openai 供应商需要 API key
	if opts.Provider == "openai" && opts.APIKey == "" {
		return fmt.Errorf("%s.api-key is required for openai provider", prefix)
	}
	if opts.Timeout <= 0 {
		return fmt.Errorf("%s.timeout must be positive", prefix)
	}
	return nil
}
