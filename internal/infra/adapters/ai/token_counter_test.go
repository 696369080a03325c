//go:build !integration

package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voicecoder/internal/domain/model"
	ai "voicecoder/internal/infra/adapters/ai"
)

func TestTokenCounter_UsesEncoder(t *testing.T) {
	t.Parallel()
	words := func(_, text string) ([]int, error) {
		return make([]int, len(strings.Fields(text))), nil
	}
	c := ai.NewTokenCounterWithEncoder(words, nil)

	n, err := c.CountTokens(context.Background(), "gpt-4", []model.Message{
		model.SystemMessage("one two"),
		model.UserMessage("three four five"),
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	// 2+3 words, 4 framing tokens per message, 3 for the reply
	if n != 5+8+3 {
		t.Fatalf("n = %d", n)
	}
}

func TestTokenCounter_FallsBackToHeuristic(t *testing.T) {
	t.Parallel()
	broken := func(string, string) ([]int, error) { return nil, errors.New("offline") }
	c := ai.NewTokenCounterWithEncoder(broken, nil)

	msgs := []model.Message{model.UserMessage(strings.Repeat("a", 40))}
	n, err := c.CountTokens(context.Background(), "claude", msgs)
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if n != 10 || n != ai.HeuristicTokens(msgs) {
		t.Fatalf("n = %d, want 10", n)
	}
}

func TestTokenCounter_Empty(t *testing.T) {
	t.Parallel()
	c := ai.NewTokenCounterWithEncoder(func(string, string) ([]int, error) { return nil, nil }, nil)
	if n, _ := c.CountTokens(context.Background(), "x", nil); n != 0 {
		t.Fatalf("empty conversation = %d tokens", n)
	}
}
