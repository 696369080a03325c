package ai

import (
	"strings"

	"voicecoder/internal/domain/model"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Registry is the read-only catalog of known backends. Lookups hand out
// copies, so callers may bind credentials without touching the table.
type Registry struct {
	order   []string
	entries map[string]model.ProviderConfig
}

func NewRegistry(configs ...model.ProviderConfig) *Registry {
	r := &Registry{entries: make(map[string]model.ProviderConfig, len(configs))}
	for _, c := range configs {
		if _, dup := r.entries[c.ID]; !dup {
			r.order = append(r.order, c.ID)
		}
		r.entries[c.ID] = c.Clone()
	}
	return r
}

// DefaultRegistry returns the built-in catalog.
func DefaultRegistry() *Registry {
	return NewRegistry(
		model.ProviderConfig{
			ID:                 ProviderAnthropic,
			Name:               "Anthropic Claude",
			DefaultModel:       "claude-sonnet-4-5-20250929",
			RequiresCredential: true,
			Models: []model.ModelConfig{
				{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", ContextWindow: 200000},
				{ID: "claude-opus-4-5-20251101", Name: "Claude Opus 4.5", ContextWindow: 200000},
			},
			Pricing:  model.Pricing{InputPer1K: 0.003, OutputPer1K: 0.015},
			FreeTier: &model.FreeTier{TokensPerMonth: 250000},
		},
		model.ProviderConfig{
			ID:                 ProviderOpenAI,
			Name:               "OpenAI",
			DefaultModel:       "gpt-4-turbo",
			RequiresCredential: true,
			Models: []model.ModelConfig{
				{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextWindow: 128000},
				{ID: "gpt-4o", Name: "GPT-4o", ContextWindow: 128000},
				{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", ContextWindow: 16000},
			},
			Pricing: model.Pricing{InputPer1K: 0.01, OutputPer1K: 0.03},
		},
		model.ProviderConfig{
			ID:                 ProviderGoogle,
			Name:               "Google Gemini",
			DefaultModel:       "gemini-1.5-flash",
			RequiresCredential: true,
			Models: []model.ModelConfig{
				{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", ContextWindow: 1000000},
				{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", ContextWindow: 1000000},
			},
			Pricing:  model.Pricing{InputPer1K: 0.00125, OutputPer1K: 0.005},
			FreeTier: &model.FreeTier{RequestsPerMinute: 15},
		},
		model.ProviderConfig{
			ID:           ProviderOllama,
			Name:         "Ollama (Local)",
			BaseURL:      DefaultOllamaURL,
			DefaultModel: "codellama",
			Models: []model.ModelConfig{
				{ID: "codellama", Name: "CodeLlama 7B", ContextWindow: 16000},
				{ID: "deepseek-coder", Name: "DeepSeek Coder 6.7B", ContextWindow: 16000},
				{ID: "qwen2.5-coder", Name: "Qwen2.5 Coder 7B", ContextWindow: 32000},
			},
			FreeTier: &model.FreeTier{TokensPerMonth: model.UnlimitedTokens},
		},
	)
}

// Lookup returns a copy of the entry for id. An unknown id is not an error.
func (r *Registry) Lookup(id string) (model.ProviderConfig, bool) {
	c, ok := r.entries[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return model.ProviderConfig{}, false
	}
	return c.Clone(), true
}

// IDs lists providers in catalog order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// All returns copies of every entry in catalog order.
func (r *Registry) All() []model.ProviderConfig {
	out := make([]model.ProviderConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].Clone())
	}
	return out
}

// Override replaces catalog values for one provider. Empty fields are ignored.
type Override struct {
	BaseURL    string
	Credential string
}

// WithOverrides returns a new registry with the overrides applied. Ids not in
// the catalog are ignored.
func (r *Registry) WithOverrides(overrides map[string]Override) *Registry {
	configs := r.All()
	for i := range configs {
		o, ok := overrides[configs[i].ID]
		if !ok {
			continue
		}
		if o.BaseURL != "" {
			configs[i].BaseURL = o.BaseURL
		}
		if o.Credential != "" {
			configs[i].Credential = o.Credential
		}
	}
	return NewRegistry(configs...)
}
