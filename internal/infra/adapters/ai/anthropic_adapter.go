package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"voicecoder/internal/domain/model"
	"voicecoder/internal/domain/ports/adapter"
	"voicecoder/internal/infra/logging"
)

var _ adapter.LLMProvider = (*AnthropicAdapter)(nil)

// AnthropicAdapter talks to the Messages API. System turns are lifted out of
// the conversation into the dedicated system field.
type AnthropicAdapter struct {
	providerBase
	client anthropic.Client
}

func NewAnthropicAdapter(cfg model.ProviderConfig, httpClient *http.Client, logger *zerolog.Logger) (*AnthropicAdapter, error) {
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
	return &AnthropicAdapter{providerBase: base, client: anthropic.NewClient(opts...)}, nil
}

func (a *AnthropicAdapter) Chat(ctx context.Context, messages []model.Message, opts *model.ChatOptions) (*model.ChatResponse, error) {
	defer logging.TraceDuration(a.log, "AnthropicAdapter.Chat")()
	if err := a.checkMessages(messages); err != nil {
		return nil, err
	}
	o := a.resolve(opts)

	msg, err := a.client.Messages.New(ctx, buildAnthropicParams(messages, o))
	if err != nil {
		return nil, a.transportErr("chat", err)
	}

	var text strings.Builder
	found := false
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
			found = true
		}
	}
	if !found {
		return nil, a.protocolErr("chat", errors.New("response has no text content"))
	}

	return &model.ChatResponse{
		Content: text.String(),
		Usage: model.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
		Model: string(msg.Model),
	}, nil
}

// StreamChat reads the event stream: message_start carries input tokens,
// content_block_delta carries text, message_delta carries output tokens.
func (a *AnthropicAdapter) StreamChat(ctx context.Context, messages []model.Message, onChunk adapter.ChunkSink, opts *model.ChatOptions) (*model.ChatResponse, error) {
	defer logging.TraceDuration(a.log, "AnthropicAdapter.StreamChat")()
	if err := a.checkMessages(messages); err != nil {
		return nil, err
	}
	o := a.resolve(opts)

	stream := a.client.Messages.NewStreaming(ctx, buildAnthropicParams(messages, o))
	defer stream.Close()

	out := newEmitter(onChunk)
	usage := model.TokenUsage{}
	modelName := o.Model

	for stream.Next() {
		switch ev := stream.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			usage.InputTokens = int(ev.Message.Usage.InputTokens)
			if ev.Message.Model != "" {
				modelName = string(ev.Message.Model)
			}
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
				out.emit(delta.Text)
			}
		case anthropic.MessageDeltaEvent:
			usage.OutputTokens = int(ev.Usage.OutputTokens)
		}
	}
	if err := a.streamFailure(ctx, stream.Err()); err != nil {
		return nil, err
	}

	a.log.Debug().Int("chunks", out.Chunks()).Str("model", modelName).Msg("stream finished")
	return &model.ChatResponse{Content: out.String(), Usage: usage, Model: modelName}, nil
}

func buildAnthropicParams(messages []model.Message, o model.ResolvedOptions) anthropic.MessageNewParams {
	var system []string
	turns := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			system = append(system, m.Text())
		case model.RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text())))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text())))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(o.Model),
		MaxTokens:   int64(o.MaxTokens),
		Temperature: anthropic.Float(o.Temperature),
		Messages:    turns,
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n")}}
	}
	return params
}
