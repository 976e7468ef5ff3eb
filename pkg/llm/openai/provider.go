// Package openai 提供基于 langchaingo 的 OpenAI 兼容供应商实现。
// 适用于 OpenAI 官方 API 以及任意 OpenAI 兼容服务。
package openai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/kart-io/docchat/pkg/llm"
)

const ProviderName = "openai"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config OpenAI 供应商配置。
type Config struct {
	// BaseURL API 基础地址（为空使用官方地址）。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey API 密钥。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel 用于对话的模型。
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Organization 组织 ID（可选）。
	Organization string `json:"organization" mapstructure:"organization"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		EmbedModel: "text-embedding-3-small",
		ChatModel:  "gpt-4o-mini",
	}
}

// Provider OpenAI 供应商实现。
type Provider struct {
	config     *Config
	chatClient *lcopenai.LLM
	embedder   embeddings.Embedder
}

// NewProvider 从配置 map 创建 OpenAI 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["organization"].(string); ok && v != "" {
		cfg.Organization = v
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api_key 是必需的")
	}

	return NewProviderWithConfig(cfg)
}

// NewProviderWithConfig 使用结构化配置创建 OpenAI 供应商。
func NewProviderWithConfig(cfg *Config) (*Provider, error) {
	embedOpts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithEmbeddingModel(cfg.EmbedModel),
	}
	chatOpts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.ChatModel),
	}
	if cfg.BaseURL != "" {
		embedOpts = append(embedOpts, lcopenai.WithBaseURL(cfg.BaseURL))
		chatOpts = append(chatOpts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Organization != "" {
		embedOpts = append(embedOpts, lcopenai.WithOrganization(cfg.Organization))
		chatOpts = append(chatOpts, lcopenai.WithOrganization(cfg.Organization))
	}

	embedClient, err := lcopenai.New(embedOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai: 创建 embedding 客户端失败: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(embedClient, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("openai: 创建 embedder 失败: %w", err)
	}

	chatClient, err := lcopenai.New(chatOpts...)
	if err != nil {
		return nil, fmt.Errorf("openai: 创建 chat 客户端失败: %w", err)
	}

	return &Provider{
		config:     cfg,
		chatClient: chatClient,
		embedder:   embedder,
	}, nil
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return p.embedder.EmbedDocuments(ctx, texts)
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("未返回向量嵌入")
	}
	return vectors[0], nil
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}

	response, err := p.chatClient.GenerateContent(ctx, content, llms.WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("未返回响应内容")
	}

	return response.Choices[0].Content, nil
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	messages := []llm.Message{}
	if systemPrompt != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: prompt,
	})

	return p.Chat(ctx, messages)
}
