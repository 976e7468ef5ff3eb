package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider 按配置的维度产出向量、返回固定答案，
// 模拟同时具备嵌入与生成能力的完整供应商。
type fakeProvider struct {
	name   string
	model  string
	dim    int
	answer string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	v := make([]float32, f.dim)
	v[0] = 1
	return v, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for range texts {
		v, err := f.EmbedSingle(ctx, "")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeProvider) Generate(_ context.Context, _, _ string) (string, error) {
	return f.answer, nil
}

func (f *fakeProvider) Chat(_ context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages")
	}
	return f.answer, nil
}

// newFakeFactory 从配置中读取 model 与 dimension，和真实供应商
// 解析 ToConfigMap 的方式保持一致。
func newFakeFactory(name string) ProviderFactory {
	return func(config map[string]any) (Provider, error) {
		p := &fakeProvider{name: name, dim: 3, answer: "grounded answer"}
		if m, ok := config["model"].(string); ok {
			p.model = m
		}
		if d, ok := config["dimension"].(int); ok {
			p.dim = d
		}
		return p, nil
	}
}

func TestNewProviderReadsConfig(t *testing.T) {
	RegisterProvider("fake-dual", newFakeFactory("fake-dual"))

	provider, err := NewProvider("fake-dual", map[string]any{
		"model":     "fake-embedding-004",
		"dimension": 8,
	})
	require.NoError(t, err)
	assert.Equal(t, "fake-dual", provider.Name())

	fp, ok := provider.(*fakeProvider)
	require.True(t, ok)
	assert.Equal(t, "fake-embedding-004", fp.model)

	vec, err := provider.EmbedSingle(context.Background(), "annual report revenue")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("no-such-provider", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewEmbeddingProviderPrefersDedicatedFactory(t *testing.T) {
	// 同名时专用嵌入工厂优先于完整供应商工厂。
	RegisterProvider("fake-shared", newFakeFactory("fake-shared-full"))
	RegisterEmbeddingProvider("fake-shared", func(_ map[string]any) (EmbeddingProvider, error) {
		return &fakeProvider{name: "fake-shared-embed", dim: 3}, nil
	})

	provider, err := NewEmbeddingProvider("fake-shared", nil)
	require.NoError(t, err)
	assert.Equal(t, "fake-shared-embed", provider.Name())
}

func TestNewEmbeddingProviderFallsBackToFullProvider(t *testing.T) {
	RegisterProvider("fake-embed-fallback", newFakeFactory("fake-embed-fallback"))

	provider, err := NewEmbeddingProvider("fake-embed-fallback", nil)
	require.NoError(t, err)

	vecs, err := provider.Embed(context.Background(), []string{"chunk one", "chunk two"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 3)
}

func TestNewChatProviderPrefersDedicatedFactory(t *testing.T) {
	RegisterProvider("fake-chat-shared", newFakeFactory("fake-chat-shared-full"))
	RegisterChatProvider("fake-chat-shared", func(_ map[string]any) (ChatProvider, error) {
		return &fakeProvider{name: "fake-chat-shared-chat", answer: "dedicated"}, nil
	})

	provider, err := NewChatProvider("fake-chat-shared", nil)
	require.NoError(t, err)
	assert.Equal(t, "fake-chat-shared-chat", provider.Name())

	answer, err := provider.Generate(context.Background(), "What does the report say?", "system")
	require.NoError(t, err)
	assert.Equal(t, "dedicated", answer)
}

func TestNewChatProviderUnknown(t *testing.T) {
	_, err := NewChatProvider("no-such-chat", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown chat provider")
}

func TestListProvidersSortedAndDeduped(t *testing.T) {
	RegisterProvider("fake-listed", newFakeFactory("fake-listed"))
	RegisterEmbeddingProvider("fake-listed", func(_ map[string]any) (EmbeddingProvider, error) {
		return &fakeProvider{name: "fake-listed", dim: 3}, nil
	})

	names := ListProviders()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)

	count := 0
	for _, n := range names {
		if n == "fake-listed" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestChatRequiresMessages(t *testing.T) {
	provider := &fakeProvider{name: "fake", answer: "ok"}

	_, err := provider.Chat(context.Background(), nil)
	assert.Error(t, err)

	answer, err := provider.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "Answer only from the provided context."},
		{Role: RoleUser, Content: "What is the total revenue?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}
