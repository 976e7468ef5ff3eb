// Package llm 抽象文档问答服务依赖的两类模型能力：
// 文本嵌入（入库与检索共用）与答案生成。嵌入和生成可以配置
// 不同的供应商，例如 gemini 做嵌入、ollama 做生成。
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// EmbeddingProvider 提供文本向量化能力。
type EmbeddingProvider interface {
	// Embed 批量生成向量，结果与输入一一对应。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单段文本生成向量，入库流水线逐块调用。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 提供答案生成能力。
type ChatProvider interface {
	// Chat 基于多轮消息生成回复。
	Chat(ctx context.Context, messages []Message) (string, error)

	// Generate 基于单轮提示词生成回答，问答流水线走此路径。
	Generate(ctx context.Context, prompt string, systemPrompt string) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Provider 同时具备嵌入与生成能力的完整供应商。
// 内置的 gemini、ollama、openai 均按此注册。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// Message 对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role 消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ProviderFactory 完整供应商的工厂函数。
type ProviderFactory func(config map[string]any) (Provider, error)

// EmbeddingProviderFactory 仅嵌入供应商的工厂函数。
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// ChatProviderFactory 仅生成供应商的工厂函数。
type ChatProviderFactory func(config map[string]any) (ChatProvider, error)

// providerRegistry 按名称维护三类工厂。专用工厂优先于完整
// 供应商工厂，便于测试中替换单一能力。
type providerRegistry struct {
	mu        sync.RWMutex
	full      map[string]ProviderFactory
	embedding map[string]EmbeddingProviderFactory
	chat      map[string]ChatProviderFactory
}

var registry = &providerRegistry{
	full:      make(map[string]ProviderFactory),
	embedding: make(map[string]EmbeddingProviderFactory),
	chat:      make(map[string]ChatProviderFactory),
}

func (r *providerRegistry) newEmbedding(name string, config map[string]any) (EmbeddingProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if factory, ok := r.embedding[name]; ok {
		return factory(config)
	}
	if factory, ok := r.full[name]; ok {
		return factory(config)
	}
	return nil, fmt.Errorf("unknown embedding provider: %s", name)
}

func (r *providerRegistry) newChat(name string, config map[string]any) (ChatProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if factory, ok := r.chat[name]; ok {
		return factory(config)
	}
	if factory, ok := r.full[name]; ok {
		return factory(config)
	}
	return nil, fmt.Errorf("unknown chat provider: %s", name)
}

func (r *providerRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.full)+len(r.embedding)+len(r.chat))
	for name := range r.full {
		seen[name] = true
	}
	for name := range r.embedding {
		seen[name] = true
	}
	for name := range r.chat {
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterProvider 注册完整供应商工厂，通常在供应商包的 init 中调用。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.full[name] = factory
}

// RegisterEmbeddingProvider 注册仅嵌入的供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embedding[name] = factory
}

// RegisterChatProvider 注册仅生成的供应商工厂。
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.chat[name] = factory
}

// NewProvider 按名称创建完整供应商。
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.full[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return factory(config)
}

// NewEmbeddingProvider 按名称创建嵌入供应商。
// 专用嵌入工厂优先，找不到时回退到完整供应商工厂。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	return registry.newEmbedding(name, config)
}

// NewChatProvider 按名称创建生成供应商。
// 专用生成工厂优先，找不到时回退到完整供应商工厂。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	return registry.newChat(name, config)
}

// ListProviders 返回全部已注册供应商名称，按字典序排列。
func ListProviders() []string {
	return registry.names()
}
