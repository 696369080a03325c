package model

const (
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.7
)

// ChatOptions tunes a single request. Zero fields fall back to the adapter's
// defaults; Temperature is a pointer so an explicit 0 is honored.
type ChatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Model       string   `json:"model,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

// Float returns a pointer to v, for ChatOptions.Temperature.
func Float(v float64) *float64 { return &v }

// ResolvedOptions is ChatOptions with every default applied.
type ResolvedOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Stream      bool
}

// Resolve fills unset fields from defaultModel and the package defaults.
// A nil receiver is valid.
func (o *ChatOptions) Resolve(defaultModel string) ResolvedOptions {
	r := ResolvedOptions{
		Model:       defaultModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
	if o == nil {
		return r
	}
	if o.Model != "" {
		r.Model = o.Model
	}
	if o.MaxTokens > 0 {
		r.MaxTokens = o.MaxTokens
	}
	if o.Temperature != nil {
		r.Temperature = *o.Temperature
	}
	r.Stream = o.Stream
	return r
}

// TokenUsage is what a backend reported for one call. Backends that cannot
// report usage leave both fields at zero.
type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

type ChatResponse struct {
	Content string     `json:"content"`
	Usage   TokenUsage `json:"usage"`
	Model   string     `json:"model"`
}
