package model

import "math"

// UnlimitedTokens marks a free tier without a monthly token cap.
// It is informational only and never enforced.
const UnlimitedTokens int64 = math.MaxInt64

type ModelConfig struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	ContextWindow int    `json:"contextWindow" yaml:"context_window"`
}

// Pricing is USD per 1000 tokens.
type Pricing struct {
	InputPer1K  float64 `json:"inputPer1k"`
	OutputPer1K float64 `json:"outputPer1k"`
}

// Cost applies the pricing table to a token count.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
}

type FreeTier struct {
	TokensPerMonth    int64 `json:"tokensPerMonth,omitempty"`
	RequestsPerMinute int   `json:"requestsPerMinute,omitempty"`
}

func (f FreeTier) Unlimited() bool { return f.TokensPerMonth == UnlimitedTokens }

// ProviderConfig is the static description of one backend. Credential is the
// only field set after the registry hands out a copy.
type ProviderConfig struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Credential         string        `json:"-"`
	BaseURL            string        `json:"baseUrl,omitempty"`
	DefaultModel       string        `json:"defaultModel"`
	RequiresCredential bool          `json:"requiresCredential"`
	Models             []ModelConfig `json:"models"`
	Pricing            Pricing       `json:"pricing"`
	FreeTier           *FreeTier     `json:"freeTier,omitempty"`
}

// WithCredential returns a copy bound to credential.
func (c ProviderConfig) WithCredential(credential string) ProviderConfig {
	cp := c.Clone()
	cp.Credential = credential
	return cp
}

// Clone deep-copies the slices and pointers so the copy can be handed out.
func (c ProviderConfig) Clone() ProviderConfig {
	cp := c
	cp.Models = append([]ModelConfig(nil), c.Models...)
	if c.FreeTier != nil {
		ft := *c.FreeTier
		cp.FreeTier = &ft
	}
	return cp
}
