package model

// UsageRecord accumulates one provider's usage across calls.
type UsageRecord struct {
	InputTokens   int     `json:"inputTokens"`
	OutputTokens  int     `json:"outputTokens"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// Add returns r plus the deltas.
func (r UsageRecord) Add(inputTokens, outputTokens int, cost float64) UsageRecord {
	r.InputTokens += inputTokens
	r.OutputTokens += outputTokens
	r.EstimatedCost += cost
	return r
}

type TokenTotals struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}
