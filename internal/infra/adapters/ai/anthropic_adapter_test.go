//go:build !integration

package ai_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voicecoder/internal/domain"
	"voicecoder/internal/domain/model"
	ai "voicecoder/internal/infra/adapters/ai"
)

func TestAnthropicAdapter_MissingCredential(t *testing.T) {
	t.Parallel()
	cfg := catalogEntry(t, ai.ProviderAnthropic, "", "http://127.0.0.1:1")

	_, err := ai.NewAnthropicAdapter(cfg, nil, nil)
	if !errors.Is(err, domain.ErrConfiguration) || !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("want configuration error for missing key, got %v", err)
	}
	if err.Error() != "Anthropic Claude configuration error: api key is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAnthropicAdapter_Chat_LiftsSystemMessages(t *testing.T) {
	t.Parallel()
	var seen captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"hi there"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":12,"output_tokens":5}}`)
	}))
	defer srv.Close()

	a, err := ai.NewAnthropicAdapter(catalogEntry(t, ai.ProviderAnthropic, "sk-test", srv.URL), srv.Client(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	resp, err := a.Chat(context.Background(), conversation(), &model.ChatOptions{MaxTokens: 100})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "hi there" || resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 5 || resp.Model != "claude-test" {
		t.Fatalf("unexpected response %+v", resp)
	}

	path, body := seen.get()
	if !strings.HasSuffix(path, "/v1/messages") {
		t.Fatalf("unexpected path %q", path)
	}
	system, _ := body["system"].([]any)
	if len(system) != 1 {
		t.Fatalf("want one system block, got %v", body["system"])
	}
	if text := system[0].(map[string]any)["text"]; text != "be brief\nuse go" {
		t.Fatalf("system text = %q", text)
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("want 3 turns without system, got %d", len(msgs))
	}
	for _, m := range msgs {
		if role := m.(map[string]any)["role"]; role == "system" {
			t.Fatalf("system role leaked into turns")
		}
	}
	if body["max_tokens"] != float64(100) {
		t.Fatalf("max_tokens = %v", body["max_tokens"])
	}
}

func TestAnthropicAdapter_StreamChat_UsageFromEvents(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w,
			"event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_1\",\"type\":\"message\",\"role\":\"assistant\",\"model\":\"claude-test\",\"content\":[],\"stop_reason\":null,\"usage\":{\"input_tokens\":10,\"output_tokens\":1}}}\n\n",
			"event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n",
			"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hel\"}}\n\n",
			"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"lo\"}}\n\n",
			"event: content_block_stop\ndata: {\"type\":\"content_block_stop\",\"index\":0}\n\n",
			"event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\",\"stop_sequence\":null},\"usage\":{\"output_tokens\":7}}\n\n",
			"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n",
		)
	}))
	defer srv.Close()

	a, err := ai.NewAnthropicAdapter(catalogEntry(t, ai.ProviderAnthropic, "sk-test", srv.URL), srv.Client(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var got collector
	resp, err := a.StreamChat(context.Background(), []model.Message{model.UserMessage("hi")}, got.sink, nil)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if strings.Join(got.chunks, "|") != "Hel|lo" {
		t.Fatalf("chunks = %v", got.chunks)
	}
	if resp.Content != strings.Join(got.chunks, "") {
		t.Fatalf("content %q differs from chunks", resp.Content)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 7 {
		t.Fatalf("usage = %+v", resp.Usage)
	}
	if resp.Model != "claude-test" {
		t.Fatalf("model = %q", resp.Model)
	}
}

func TestAnthropicAdapter_HTTPFailureIsTransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	a, err := ai.NewAnthropicAdapter(catalogEntry(t, ai.ProviderAnthropic, "sk-test", srv.URL), srv.Client(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = a.Chat(context.Background(), []model.Message{model.UserMessage("hi")}, nil)
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("want transport error, got %v", err)
	}
	var pe *domain.ProviderError
	if !errors.As(err, &pe) || pe.Provider != "Anthropic Claude" {
		t.Fatalf("want ProviderError naming the backend, got %v", err)
	}
}

func TestAnthropicAdapter_Accessors(t *testing.T) {
	t.Parallel()
	a, err := ai.NewAnthropicAdapter(catalogEntry(t, ai.ProviderAnthropic, "sk-test", ""), nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.ID() != "anthropic" || a.Name() != "Anthropic Claude" || !a.HasFreeTier() {
		t.Fatalf("unexpected accessors: %s %s %v", a.ID(), a.Name(), a.HasFreeTier())
	}
	if got := a.EstimateCost(1000, 500); got < 0.01049 || got > 0.01051 {
		t.Fatalf("EstimateCost(1000,500) = %v, want 0.0105", got)
	}
	if a.EstimateCost(0, 0) != 0 {
		t.Fatalf("zero tokens must cost zero")
	}
	models := a.Models()
	models[0].ID = "mutated"
	if a.Models()[0].ID == "mutated" {
		t.Fatalf("Models must return a copy")
	}
}

func TestAdapters_RejectEmptyConversation(t *testing.T) {
	t.Parallel()
	a, err := ai.NewAnthropicAdapter(catalogEntry(t, ai.ProviderAnthropic, "sk-test", "http://127.0.0.1:1"), nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Chat(context.Background(), nil, nil); !errors.Is(err, domain.ErrNoMessages) {
		t.Fatalf("want ErrNoMessages, got %v", err)
	}
	bad := []model.Message{{Role: "tool", Content: "x"}}
	if _, err := a.StreamChat(context.Background(), bad, nil, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestAnthropicAdapter_StreamChat_ErrorEvent(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w,
			"event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_1\",\"type\":\"message\",\"role\":\"assistant\",\"model\":\"claude-test\",\"content\":[],\"stop_reason\":null,\"usage\":{\"input_tokens\":10,\"output_tokens\":1}}}\n\n",
			"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hel\"}}\n\n",
			"event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n",
		)
	}))
	defer srv.Close()

	a, _ := ai.NewAnthropicAdapter(catalogEntry(t, ai.ProviderAnthropic, "sk-test", srv.URL), srv.Client(), nil)
	var got collector
	resp, err := a.StreamChat(context.Background(), []model.Message{model.UserMessage("hi")}, got.sink, nil)
	if resp != nil || !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("want transport error and no response, got %+v, %v", resp, err)
	}
	if strings.Join(got.chunks, "") != "Hel" {
		t.Fatalf("chunks before the error = %v", got.chunks)
	}
}

func TestAnthropicAdapter_StreamChat_CancelMidStream(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hel\"}}\n\n")
		<-r.Context().Done()
	}))
	defer srv.Close()

	a, _ := ai.NewAnthropicAdapter(catalogEntry(t, ai.ProviderAnthropic, "sk-test", srv.URL), srv.Client(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resp, err := a.StreamChat(ctx, []model.Message{model.UserMessage("hi")}, func(string) { cancel() }, nil)
	if resp != nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("want cancellation and no response, got %+v, %v", resp, err)
	}
}
