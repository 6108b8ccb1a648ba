package llm

import (
	"context"
	"errors"
	"testing"
)

// mockProvider 模拟供应商实现，用于测试。
type mockProvider struct {
	name      string
	chatModel string
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Embed(_ context.Context, texts []string, _ InputType) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{0.1, 0.2, 0.3}
	}
	return result, nil
}

func (m *mockProvider) EmbedSingle(_ context.Context, _ string, _ InputType) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockProvider) Chat(_ context.Context, _ []Message) (string, error) {
	return "mock response", nil
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ string) (*GenerateResponse, error) {
	return &GenerateResponse{Content: "mock generated text"}, nil
}

func TestRegisterAndNewProvider(t *testing.T) {
	// 注册测试供应商
	RegisterProvider("test-provider", func(config map[string]any) (Provider, error) {
		name := "test-provider"
		if n, ok := config["name"].(string); ok {
			name = n
		}
		return &mockProvider{name: name}, nil
	})

	provider, err := NewProvider("test-provider", map[string]any{"name": "custom-name"})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if provider.Name() != "custom-name" {
		t.Errorf("expected name 'custom-name', got '%s'", provider.Name())
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("unknown-provider", nil)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewEmbeddingProvider(t *testing.T) {
	// 注册专用 Embedding 供应商
	RegisterEmbeddingProvider("embed-only", func(config map[string]any) (EmbeddingProvider, error) {
		return &mockProvider{name: "embed-only"}, nil
	})

	provider, err := NewEmbeddingProvider("embed-only", nil)
	if err != nil {
		t.Fatalf("NewEmbeddingProvider failed: %v", err)
	}

	if provider.Name() != "embed-only" {
		t.Errorf("expected name 'embed-only', got '%s'", provider.Name())
	}

	// 测试回退到完整供应商
	RegisterProvider("full-fallback", func(config map[string]any) (Provider, error) {
		return &mockProvider{name: "full-fallback"}, nil
	})
	provider2, err := NewEmbeddingProvider("full-fallback", nil)
	if err != nil {
		t.Fatalf("NewEmbeddingProvider fallback failed: %v", err)
	}
	if provider2 == nil {
		t.Error("expected non-nil provider")
	}
}

func TestNewChatProvider(t *testing.T) {
	// 注册专用 Chat 供应商
	RegisterChatProvider("chat-only", func(config map[string]any) (ChatProvider, error) {
		return &mockProvider{name: "chat-only"}, nil
	})

	provider, err := NewChatProvider("chat-only", nil)
	if err != nil {
		t.Fatalf("NewChatProvider failed: %v", err)
	}

	if provider.Name() != "chat-only" {
		t.Errorf("expected name 'chat-only', got '%s'", provider.Name())
	}
}

func TestListProviders(t *testing.T) {
	RegisterProvider("list-me", func(config map[string]any) (Provider, error) {
		return &mockProvider{name: "list-me"}, nil
	})

	providers := ListProviders()
	if len(providers) == 0 {
		t.Error("expected at least one registered provider")
	}

	found := false
	for _, name := range providers {
		if name == "list-me" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected 'list-me' in provider list")
	}
}

func TestParseModelID(t *testing.T) {
	tests := []struct {
		modelID      string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{"openai/gpt-4o-mini", "openai", "gpt-4o-mini", false},
		{"openrouter/openchat/openchat-3.5", "openrouter", "openchat/openchat-3.5", false},
		{"no-slash", "", "", true},
		{"/model", "", "", true},
		{"provider/", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		provider, model, err := ParseModelID(tt.modelID)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseModelID(%q): expected error", tt.modelID)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseModelID(%q): unexpected error: %v", tt.modelID, err)
			continue
		}
		if provider != tt.wantProvider || model != tt.wantModel {
			t.Errorf("ParseModelID(%q) = (%q, %q), want (%q, %q)",
				tt.modelID, provider, model, tt.wantProvider, tt.wantModel)
		}
	}
}

func TestResolveChat(t *testing.T) {
	RegisterChatProvider("resolver-test", func(config map[string]any) (ChatProvider, error) {
		model, _ := config["chat_model"].(string)
		return &mockProvider{name: "resolver-test", chatModel: model}, nil
	})

	provider, err := ResolveChat("resolver-test/some-model", map[string]any{"api_key": "k"})
	if err != nil {
		t.Fatalf("ResolveChat failed: %v", err)
	}
	mock, ok := provider.(*mockProvider)
	if !ok {
		t.Fatalf("expected *mockProvider, got %T", provider)
	}
	if mock.chatModel != "some-model" {
		t.Errorf("expected chat_model 'some-model', got '%s'", mock.chatModel)
	}
}

func TestResolveChatUnknownProvider(t *testing.T) {
	_, err := ResolveChat("nonexistent/model", nil)
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestResolveChatMalformedID(t *testing.T) {
	_, err := ResolveChat("not-a-model-id", nil)
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestResolveChatDoesNotMutateConfig(t *testing.T) {
	RegisterChatProvider("mutation-test", func(config map[string]any) (ChatProvider, error) {
		return &mockProvider{name: "mutation-test"}, nil
	})

	base := map[string]any{"api_key": "k"}
	if _, err := ResolveChat("mutation-test/m1", base); err != nil {
		t.Fatalf("ResolveChat failed: %v", err)
	}
	if _, ok := base["chat_model"]; ok {
		t.Error("ResolveChat must not mutate the base config")
	}
}
