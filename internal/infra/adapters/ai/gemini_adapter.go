package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"voicecoder/internal/domain/model"
	"voicecoder/internal/domain/ports/adapter"
	"voicecoder/internal/infra/logging"
)

var _ adapter.LLMProvider = (*GeminiAdapter)(nil)

// GeminiAdapter drives the Gemini chat session API. The backend has no usage
// signal for this flow, so responses always carry zero tokens.
type GeminiAdapter struct {
	providerBase
	client *genai.Client
}

func NewGeminiAdapter(ctx context.Context, cfg model.ProviderConfig, httpClient *http.Client, logger *zerolog.Logger) (*GeminiAdapter, error) {
	base, err := newProviderBase(cfg, logger)
	if err != nil {
		return nil, err
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.Credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	})
	if err != nil {
		return nil, base.transportErr("client", err)
	}
	return &GeminiAdapter{providerBase: base, client: c}, nil
}

func (g *GeminiAdapter) Chat(ctx context.Context, messages []model.Message, opts *model.ChatOptions) (*model.ChatResponse, error) {
	defer logging.TraceDuration(g.log, "GeminiAdapter.Chat")()
	chat, last, o, err := g.session(ctx, messages, opts)
	if err != nil {
		return nil, err
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: last})
	if err != nil {
		return nil, g.transportErr("chat", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, g.protocolErr("chat", errors.New("response has no candidates"))
	}

	return &model.ChatResponse{Content: candidateText(resp), Model: o.Model}, nil
}

func (g *GeminiAdapter) StreamChat(ctx context.Context, messages []model.Message, onChunk adapter.ChunkSink, opts *model.ChatOptions) (*model.ChatResponse, error) {
	defer logging.TraceDuration(g.log, "GeminiAdapter.StreamChat")()
	chat, last, o, err := g.session(ctx, messages, opts)
	if err != nil {
		return nil, err
	}

	out := newEmitter(onChunk)
	for resp, err := range chat.SendMessageStream(ctx, genai.Part{Text: last}) {
		if err != nil {
			return nil, g.streamFailure(ctx, err)
		}
		out.emit(candidateText(resp))
	}
	if err := g.streamFailure(ctx, nil); err != nil {
		return nil, err
	}

	g.log.Debug().Int("chunks", out.Chunks()).Str("model", o.Model).Msg("stream finished")
	return &model.ChatResponse{Content: out.String(), Model: o.Model}, nil
}

// --- internal ---

// session opens a chat whose history is every message but the last; the
// last message text is returned as the active turn.
func (g *GeminiAdapter) session(ctx context.Context, messages []model.Message, opts *model.ChatOptions) (*genai.Chat, string, model.ResolvedOptions, error) {
	if err := g.checkMessages(messages); err != nil {
		return nil, "", model.ResolvedOptions{}, err
	}
	o := g.resolve(opts)

	chat, err := g.client.Chats.Create(
		ctx,
		o.Model,
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(o.Temperature)),
			MaxOutputTokens: int32(o.MaxTokens),
		},
		toGenAIHistory(messages[:len(messages)-1]),
	)
	if err != nil {
		return nil, "", o, g.transportErr("session", err)
	}
	return chat, messages[len(messages)-1].Text(), o, nil
}

func toGenAIHistory(msgs []model.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Text()}},
		})
	}
	return out
}

// candidateText concatenates the text parts of the first candidate, skipping
// thought summaries.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
