package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiCostUSD,
		aiCallsLatencyMs,
		aiChunks,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCostUSD = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_cost_usd",
			Help: "Estimated spend in USD per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"provider", "mode", "success"},
	)

	aiChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_stream_chunks_total",
			Help: "Streamed fragments delivered to callers per provider.",
		},
		[]string{"provider"},
	)
)

// ObserveChatUsage records a completed call. Failed calls pass zero tokens.
func ObserveChatUsage(provider, model, mode string, tokensIn, tokensOut int, costUSD float64, latencyMs int64, success bool) {
	if success {
		lbl := []string{norm(provider), norm(model)}
		aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
		aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
		aiCostUSD.WithLabelValues(lbl...).Add(costUSD)
	}
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(mode), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddStreamChunks(provider string, n int) {
	aiChunks.WithLabelValues(norm(provider)).Add(float64(n))
}
