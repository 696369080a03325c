package ai

import (
	"context"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"voicecoder/internal/domain/model"
	"voicecoder/internal/domain/ports/adapter"
	"voicecoder/internal/infra/logging"
)

var _ adapter.TokenCounter = (*TiktokenCounter)(nil)

const (
	fallbackEncoding = "cl100k_base"

	// per-message framing overhead of the chat format
	tokensPerMessage = 4
	tokensPerReply   = 3
)

// EncodeFunc turns text into token ids for a model.
type EncodeFunc func(modelName, text string) ([]int, error)

// TiktokenCounter estimates prompt size with tiktoken. When no encoding can be
// loaded it falls back to roughly four characters per token.
type TiktokenCounter struct {
	encode EncodeFunc
	log    *zerolog.Logger
}

func NewTokenCounter(logger *zerolog.Logger) *TiktokenCounter {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TiktokenCounter{encode: tiktokenEncode, log: logger}
}

// NewTokenCounterWithEncoder is used by tests to avoid loading BPE tables.
func NewTokenCounterWithEncoder(encode EncodeFunc, logger *zerolog.Logger) *TiktokenCounter {
	c := NewTokenCounter(logger)
	c.encode = encode
	return c
}

func (c *TiktokenCounter) CountTokens(_ context.Context, modelName string, messages []model.Message) (int, error) {
	total := 0
	for _, m := range messages {
		text := m.Text()
		ids, err := c.encode(modelName, text)
		if err != nil {
			c.log.Debug().Err(err).Str("model", modelName).Msg("tokenizer unavailable, using heuristic")
			return HeuristicTokens(messages), nil
		}
		total += len(ids) + tokensPerMessage
	}
	if total > 0 {
		total += tokensPerReply
	}
	return total, nil
}

// HeuristicTokens approximates four characters per token.
func HeuristicTokens(messages []model.Message) int {
	n := 0
	for _, m := range messages {
		n += len(m.Text())
	}
	return (n + 3) / 4
}

var encodings sync.Map // model name -> *tiktoken.Tiktoken

func tiktokenEncode(modelName, text string) ([]int, error) {
	if v, ok := encodings.Load(modelName); ok {
		return v.(*tiktoken.Tiktoken).Encode(text, nil, nil), nil
	}
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	encodings.Store(modelName, enc)
	return enc.Encode(text, nil, nil), nil
}
