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

func TestGeminiAdapter_Chat_CollapsesRolesIntoHistory(t *testing.T) {
	t.Parallel()
	var seen captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.record(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"hi "},{"text":"there"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":9,"candidatesTokenCount":4}}`)
	}))
	defer srv.Close()

	g, err := ai.NewGeminiAdapter(context.Background(), catalogEntry(t, ai.ProviderGoogle, "g-test", srv.URL), srv.Client(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	resp, err := g.Chat(context.Background(), conversation(), nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "hi there" {
		t.Fatalf("content = %q", resp.Content)
	}
	if resp.Usage != (model.TokenUsage{}) {
		t.Fatalf("usage must be zero, got %+v", resp.Usage)
	}
	if resp.Model != "gemini-1.5-flash" {
		t.Fatalf("model = %q", resp.Model)
	}

	path, body := seen.get()
	if !strings.Contains(path, "gemini-1.5-flash:generateContent") {
		t.Fatalf("unexpected path %q", path)
	}
	contents, _ := body["contents"].([]any)
	wantRoles := []string{"user", "user", "user", "model", "user"}
	if len(contents) != len(wantRoles) {
		t.Fatalf("want %d contents, got %d", len(wantRoles), len(contents))
	}
	for i, c := range contents {
		if role := c.(map[string]any)["role"]; role != wantRoles[i] {
			t.Fatalf("contents[%d].role = %v, want %s", i, role, wantRoles[i])
		}
	}
}

func TestGeminiAdapter_StreamChat(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w,
			"data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n",
			"data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"lo\"}]},\"finishReason\":\"STOP\"}]}\n\n",
		)
	}))
	defer srv.Close()

	g, err := ai.NewGeminiAdapter(context.Background(), catalogEntry(t, ai.ProviderGoogle, "g-test", srv.URL), srv.Client(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var got collector
	resp, err := g.StreamChat(context.Background(), []model.Message{model.UserMessage("hi")}, got.sink, nil)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if strings.Join(got.chunks, "") != "Hello" || resp.Content != "Hello" {
		t.Fatalf("chunks %v content %q", got.chunks, resp.Content)
	}
	if resp.Usage != (model.TokenUsage{}) {
		t.Fatalf("usage must be zero, got %+v", resp.Usage)
	}
}

func TestGeminiAdapter_StreamChat_ConnectionDropped(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n")
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()

	g, err := ai.NewGeminiAdapter(context.Background(), catalogEntry(t, ai.ProviderGoogle, "g-test", srv.URL), srv.Client(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	resp, err := g.StreamChat(context.Background(), []model.Message{model.UserMessage("hi")}, nil, nil)
	if resp != nil || !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("want transport error and no response, got %+v, %v", resp, err)
	}
}

func TestGeminiAdapter_StreamChat_CancelMidStream(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n")
		<-r.Context().Done()
	}))
	defer srv.Close()

	g, _ := ai.NewGeminiAdapter(context.Background(), catalogEntry(t, ai.ProviderGoogle, "g-test", srv.URL), srv.Client(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resp, err := g.StreamChat(ctx, []model.Message{model.UserMessage("hi")}, func(string) { cancel() }, nil)
	if resp != nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("want cancellation and no response, got %+v, %v", resp, err)
	}
}
