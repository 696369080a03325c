//go:build !integration

package model

import "testing"

func TestMessageText(t *testing.T) {
	t.Run("plain content", func(t *testing.T) {
		m := UserMessage("hello")
		if got := m.Text(); got != "hello" {
			t.Errorf("Text() = %q", got)
		}
	})

	t.Run("structured parts drop images", func(t *testing.T) {
		m := Message{
			Role:    RoleUser,
			Content: "ignored",
			Parts: []ContentPart{
				{Type: PartText, Text: "look at this"},
				{Type: PartImage, ImageURL: "https://example.com/a.png"},
				{Type: PartText, Text: "and explain"},
			},
		}
		if got := m.Text(); got != "look at this\nand explain" {
			t.Errorf("Text() = %q", got)
		}
	})

	t.Run("image only yields empty text", func(t *testing.T) {
		m := Message{Role: RoleUser, Parts: []ContentPart{{Type: PartImage, ImageURL: "x"}}}
		if got := m.Text(); got != "" {
			t.Errorf("Text() = %q", got)
		}
	})
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Role("model").Valid() {
		t.Error("model is not a caller-facing role")
	}
}

func TestChatOptionsResolve(t *testing.T) {
	var nilOpts *ChatOptions
	r := nilOpts.Resolve("codellama")
	if r.Model != "codellama" || r.MaxTokens != DefaultMaxTokens || r.Temperature != DefaultTemperature {
		t.Fatalf("nil options resolved to %+v", r)
	}

	r = (&ChatOptions{Model: "gpt-4o", MaxTokens: 10, Temperature: Float(0)}).Resolve("gpt-4-turbo")
	if r.Model != "gpt-4o" || r.MaxTokens != 10 || r.Temperature != 0 {
		t.Fatalf("explicit options resolved to %+v", r)
	}
}

func TestPricingCost(t *testing.T) {
	p := Pricing{InputPer1K: 0.003, OutputPer1K: 0.015}
	if got := p.Cost(0, 0); got != 0 {
		t.Errorf("Cost(0,0) = %v", got)
	}
	got := p.Cost(1000, 500)
	if diff := got - 0.0105; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("Cost(1000,500) = %v, want 0.0105", got)
	}
}

func TestProviderConfigWithCredentialCopies(t *testing.T) {
	base := ProviderConfig{
		ID:       "anthropic",
		Models:   []ModelConfig{{ID: "a"}},
		FreeTier: &FreeTier{TokensPerMonth: 10},
	}
	cp := base.WithCredential("sk-1")
	cp.Models[0].ID = "changed"
	cp.FreeTier.TokensPerMonth = 99

	if base.Credential != "" {
		t.Error("original must stay without credential")
	}
	if base.Models[0].ID != "a" || base.FreeTier.TokensPerMonth != 10 {
		t.Error("copy shares memory with the original")
	}
	if cp.Credential != "sk-1" {
		t.Errorf("credential = %q", cp.Credential)
	}
}
