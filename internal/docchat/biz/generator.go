package biz

import (
	"context"
	"strings"

	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/llm"
	"github.com/kart-io/docchat/pkg/utils/errors"
)

// GeneratorConfig 生成器配置。
type GeneratorConfig struct {
	// SystemPrompt 提示词模板，支持 {{collection}}、{{context}}
	// 与 {{question}} 占位符。
	SystemPrompt string
}

// Generator 负责基于检索结果生成回答。
type Generator struct {
	chatProvider llm.ChatProvider
	config       *GeneratorConfig
}

// NewGenerator 创建生成器实例。
func NewGenerator(chatProvider llm.ChatProvider, config *GeneratorConfig) *Generator {
	return &Generator{
		chatProvider: chatProvider,
		config:       config,
	}
}

// GenerateAnswer 将检索到的文档块拼接为上下文并请求模型生成回答。
func (g *Generator) GenerateAnswer(ctx context.Context, collection, question string, results []*store.SearchResult) (string, error) {
	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Content
	}

	prompt := strings.NewReplacer(
		"{{collection}}", collection,
		"{{context}}", strings.Join(contexts, "\n\n"),
		"{{question}}", question,
	).Replace(g.config.SystemPrompt)

	answer, err := g.chatProvider.Generate(ctx, prompt, "")
	if err != nil {
		return "", errors.ErrProviderUnavailable.WithCause(err)
	}
	return answer, nil
}
