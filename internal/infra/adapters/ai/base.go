package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"voicecoder/internal/domain"
	"voicecoder/internal/domain/model"
	"voicecoder/internal/domain/ports/adapter"
	"voicecoder/internal/infra/logging"
)

// providerBase carries the static config every adapter exposes through the
// read-only accessors and the pricing function.
type providerBase struct {
	cfg model.ProviderConfig
	log *zerolog.Logger
}

func newProviderBase(cfg model.ProviderConfig, logger *zerolog.Logger) (providerBase, error) {
	if cfg.RequiresCredential && strings.TrimSpace(cfg.Credential) == "" {
		return providerBase{}, domain.NewConfigurationError(cfg.Name, domain.ErrMissingCredential)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	l := logger.With().Str("provider", cfg.ID).Logger()
	return providerBase{cfg: cfg.Clone(), log: &l}, nil
}

func (b *providerBase) EstimateCost(inputTokens, outputTokens int) float64 {
	return b.cfg.Pricing.Cost(inputTokens, outputTokens)
}

func (b *providerBase) Name() string { return b.cfg.Name }
func (b *providerBase) ID() string   { return b.cfg.ID }

func (b *providerBase) Models() []model.ModelConfig {
	return append([]model.ModelConfig(nil), b.cfg.Models...)
}

func (b *providerBase) HasFreeTier() bool { return b.cfg.FreeTier != nil }

func (b *providerBase) resolve(opts *model.ChatOptions) model.ResolvedOptions {
	return opts.Resolve(b.cfg.DefaultModel)
}

func (b *providerBase) transportErr(op string, err error) error {
	return domain.NewTransportError(b.cfg.Name, op, err)
}

func (b *providerBase) protocolErr(op string, err error) error {
	return domain.NewProtocolError(b.cfg.Name, op, err)
}

// streamFailure reports why a stream ended early, or nil if it completed.
// A cancelled or expired ctx takes precedence over the read error it caused.
func (b *providerBase) streamFailure(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return b.transportErr("stream", cerr)
	}
	if err != nil {
		return b.transportErr("stream", err)
	}
	return nil
}

func (b *providerBase) checkMessages(messages []model.Message) error {
	if len(messages) == 0 {
		return domain.NewConfigurationError(b.cfg.Name, domain.ErrNoMessages)
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return domain.NewConfigurationError(b.cfg.Name, fmt.Errorf("%w: message %d has role %q", domain.ErrInvalidArgument, i, m.Role))
		}
	}
	return nil
}

// emitter forwards fragments to the caller's sink and keeps the running text,
// so the resolved content always equals the concatenated chunks.
type emitter struct {
	sink adapter.ChunkSink
	buf  strings.Builder
	n    int
}

func newEmitter(sink adapter.ChunkSink) *emitter {
	return &emitter{sink: sink}
}

func (e *emitter) emit(chunk string) {
	if chunk == "" {
		return
	}
	e.buf.WriteString(chunk)
	e.n++
	if e.sink != nil {
		e.sink(chunk)
	}
}

func (e *emitter) String() string { return e.buf.String() }
func (e *emitter) Chunks() int    { return e.n }
