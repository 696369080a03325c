//go:build !integration

package ai_test

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"voicecoder/internal/domain/model"
	ai "voicecoder/internal/infra/adapters/ai"
)

// catalogEntry returns the built-in config for id bound to credential and
// pointed at baseURL.
func catalogEntry(t *testing.T, id, credential, baseURL string) model.ProviderConfig {
	t.Helper()
	cfg, ok := ai.DefaultRegistry().Lookup(id)
	if !ok {
		t.Fatalf("catalog has no %q", id)
	}
	cfg = cfg.WithCredential(credential)
	cfg.BaseURL = baseURL
	return cfg
}

// captured records the last request body seen by a fake server.
type captured struct {
	mu   sync.Mutex
	path string
	body map[string]any
}

func (c *captured) record(t *testing.T, r *http.Request) {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("read body: %v", err)
		return
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Errorf("request body is not json: %v", err)
	}
	c.mu.Lock()
	c.path = r.URL.Path
	c.body = m
	c.mu.Unlock()
}

func (c *captured) get() (string, map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path, c.body
}

// collector is a ChunkSink that remembers every fragment.
type collector struct {
	chunks []string
}

func (c *collector) sink(chunk string) { c.chunks = append(c.chunks, chunk) }

func writeSSE(w http.ResponseWriter, frames ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	f, _ := w.(http.Flusher)
	for _, fr := range frames {
		_, _ = io.WriteString(w, fr)
		if f != nil {
			f.Flush()
		}
	}
}

func conversation() []model.Message {
	return []model.Message{
		model.SystemMessage("be brief"),
		model.SystemMessage("use go"),
		model.UserMessage("hi"),
		model.AssistantMessage("hello"),
		model.UserMessage("explain"),
	}
}
