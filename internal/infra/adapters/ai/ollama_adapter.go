package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"voicecoder/internal/domain"
	"voicecoder/internal/domain/model"
	"voicecoder/internal/domain/ports/adapter"
	"voicecoder/internal/infra/logging"
)

var _ adapter.LLMProvider = (*OllamaAdapter)(nil)

const (
	DefaultOllamaURL = "http://localhost:11434"

	maxStreamLine = 1 << 20
)

// OllamaAdapter speaks the local server's /api/chat endpoint. Streams arrive
// as one JSON object per line.
type OllamaAdapter struct {
	providerBase
	baseURL string
	http    *http.Client
}

func NewOllamaAdapter(cfg model.ProviderConfig, httpClient *http.Client, logger *zerolog.Logger) (*OllamaAdapter, error) {
	base, err := newProviderBase(cfg, logger)
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(cfg.BaseURL, "/")
	if url == "" {
		url = DefaultOllamaURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaAdapter{providerBase: base, baseURL: url, http: httpClient}, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaResponse struct {
	Model   string         `json:"model"`
	Message *ollamaMessage `json:"message"`
	Done    bool           `json:"done"`
	Error   string         `json:"error"`
}

func (a *OllamaAdapter) Chat(ctx context.Context, messages []model.Message, opts *model.ChatOptions) (*model.ChatResponse, error) {
	defer logging.TraceDuration(a.log, "OllamaAdapter.Chat")()
	if err := a.checkMessages(messages); err != nil {
		return nil, err
	}
	o := a.resolve(opts)

	resp, err := a.post(ctx, "chat", buildOllamaRequest(messages, o, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, a.protocolErr("chat", err)
	}
	if payload.Error != "" {
		return nil, a.transportErr("chat", errors.New(payload.Error))
	}
	if payload.Message == nil || payload.Message.Content == "" {
		return nil, a.protocolErr("chat", errors.New("response has no message content"))
	}

	modelName := o.Model
	if payload.Model != "" {
		modelName = payload.Model
	}
	return &model.ChatResponse{Content: payload.Message.Content, Model: modelName}, nil
}

// StreamChat parses each line on its own; a line that is not valid JSON or
// exceeds maxStreamLine is logged and skipped without ending the stream.
func (a *OllamaAdapter) StreamChat(ctx context.Context, messages []model.Message, onChunk adapter.ChunkSink, opts *model.ChatOptions) (*model.ChatResponse, error) {
	defer logging.TraceDuration(a.log, "OllamaAdapter.StreamChat")()
	if err := a.checkMessages(messages); err != nil {
		return nil, err
	}
	o := a.resolve(opts)

	resp, err := a.post(ctx, "stream", buildOllamaRequest(messages, o, true))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := newEmitter(onChunk)
	modelName := o.Model
	br := bufio.NewReaderSize(resp.Body, 64*1024)
	for {
		raw, oversized, rerr := readStreamLine(br, maxStreamLine)
		line := bytes.TrimSpace(raw)
		switch {
		case oversized:
			a.log.Debug().Int("limit", maxStreamLine).Msg("skipping oversized stream line")
		case len(line) == 0:
		default:
			var chunk ollamaResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				a.log.Debug().Err(err).Int("len", len(line)).Msg("skipping malformed stream line")
				break
			}
			if chunk.Error != "" {
				return nil, a.transportErr("stream", errors.New(chunk.Error))
			}
			if chunk.Model != "" {
				modelName = chunk.Model
			}
			if chunk.Message != nil {
				out.emit(chunk.Message.Content)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if err := a.streamFailure(ctx, rerr); err != nil {
			return nil, err
		}
	}
	if err := a.streamFailure(ctx, nil); err != nil {
		return nil, err
	}

	a.log.Debug().Int("chunks", out.Chunks()).Str("model", modelName).Msg("stream finished")
	return &model.ChatResponse{Content: out.String(), Model: modelName}, nil
}

func (a *OllamaAdapter) post(ctx context.Context, op string, body ollamaRequest) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, a.protocolErr(op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return nil, a.transportErr(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			a.log.Warn().Str("url", a.baseURL).Msg("local server refused connection")
			return nil, a.transportErr(op, domain.ErrLocalServerNotRunning)
		}
		return nil, a.transportErr(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, a.transportErr(op, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}
	return resp, nil
}

func buildOllamaRequest(messages []model.Message, o model.ResolvedOptions, stream bool) ollamaRequest {
	msgs := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, ollamaMessage{Role: string(m.Role), Content: m.Text()})
	}
	return ollamaRequest{Model: o.Model, Messages: msgs, Stream: stream}
}

// readStreamLine returns the next newline-terminated line. A line longer than
// limit is drained up to its newline and reported as oversized with no bytes.
// At end of input it returns the trailing partial line, if any, with io.EOF.
func readStreamLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var (
		line      []byte
		oversized bool
	)
	for {
		frag, err := r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(frag) > limit {
				oversized, line = true, nil
			} else {
				line = append(line, frag...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, oversized, err
	}
}
