package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"voicecoder/internal/domain/model"
	"voicecoder/internal/domain/ports/adapter"
	"voicecoder/internal/infra/logging"
)

var _ adapter.LLMProvider = (*OpenAIAdapter)(nil)

// OpenAIAdapter uses the chat completions endpoint. Any OpenAI-compatible
// gateway works by pointing BaseURL at it.
type OpenAIAdapter struct {
	providerBase
	client openai.Client
}

func NewOpenAIAdapter(cfg model.ProviderConfig, httpClient *http.Client, logger *zerolog.Logger) (*OpenAIAdapter, error) {
	base, err := newProviderBase(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.Credential),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIAdapter{providerBase: base, client: openai.NewClient(opts...)}, nil
}

func (a *OpenAIAdapter) Chat(ctx context.Context, messages []model.Message, opts *model.ChatOptions) (*model.ChatResponse, error) {
	defer logging.TraceDuration(a.log, "OpenAIAdapter.Chat")()
	if err := a.checkMessages(messages); err != nil {
		return nil, err
	}
	o := a.resolve(opts)

	resp, err := a.client.Chat.Completions.New(ctx, buildOpenAIParams(messages, o))
	if err != nil {
		return nil, a.transportErr("chat", err)
	}
	if len(resp.Choices) == 0 {
		return nil, a.protocolErr("chat", errors.New("response has no choices"))
	}

	return &model.ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		Model: resp.Model,
	}, nil
}

// StreamChat forwards content deltas. The streamed endpoint does not report
// usage, so the result always carries zero tokens.
func (a *OpenAIAdapter) StreamChat(ctx context.Context, messages []model.Message, onChunk adapter.ChunkSink, opts *model.ChatOptions) (*model.ChatResponse, error) {
	defer logging.TraceDuration(a.log, "OpenAIAdapter.StreamChat")()
	if err := a.checkMessages(messages); err != nil {
		return nil, err
	}
	o := a.resolve(opts)

	stream := a.client.Chat.Completions.NewStreaming(ctx, buildOpenAIParams(messages, o))
	defer stream.Close()

	out := newEmitter(onChunk)
	modelName := o.Model
	for stream.Next() {
		chunk := stream.Current()
		if chunk.Model != "" {
			modelName = chunk.Model
		}
		if len(chunk.Choices) > 0 {
			out.emit(chunk.Choices[0].Delta.Content)
		}
	}
	if err := a.streamFailure(ctx, stream.Err()); err != nil {
		return nil, err
	}

	a.log.Debug().Int("chunks", out.Chunks()).Str("model", modelName).Msg("stream finished")
	return &model.ChatResponse{Content: out.String(), Model: modelName}, nil
}

func buildOpenAIParams(messages []model.Message, o model.ResolvedOptions) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Text()))
		case model.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Text()))
		default:
			msgs = append(msgs, openai.UserMessage(m.Text()))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.Model),
		Messages:    msgs,
		Temperature: openai.Float(o.Temperature),
		MaxTokens:   openai.Int(int64(o.MaxTokens)),
	}
}
