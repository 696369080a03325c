package adapter

import (
	"context"

	"voicecoder/internal/domain/model"
)

// ChunkSink receives streamed text fragments in arrival order.
type ChunkSink func(chunk string)

// LLMProvider is the port every backend adapter satisfies.
type LLMProvider interface {
	// Chat performs one non-streaming round trip.
	Chat(ctx context.Context, messages []model.Message, opts *model.ChatOptions) (*model.ChatResponse, error)

	// StreamChat pushes fragments to onChunk as they arrive and resolves to the
	// same shape as Chat. Backends without streaming usage report zero tokens.
	StreamChat(ctx context.Context, messages []model.Message, onChunk ChunkSink, opts *model.ChatOptions) (*model.ChatResponse, error)

	// EstimateCost is a pure function of the provider's pricing table.
	EstimateCost(inputTokens, outputTokens int) float64

	Name() string
	ID() string
	Models() []model.ModelConfig
	HasFreeTier() bool
}

// TokenCounter estimates prompt tokens before a request is sent.
type TokenCounter interface {
	CountTokens(ctx context.Context, modelName string, messages []model.Message) (int, error)
}
