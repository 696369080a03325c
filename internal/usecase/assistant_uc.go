// File: internal/usecase/assistant_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voicecoder/internal/domain"
	"voicecoder/internal/domain/model"
	"voicecoder/internal/domain/ports/adapter"
	"voicecoder/internal/domain/ports/repository"
	"voicecoder/internal/infra/logging"
	"voicecoder/internal/infra/metrics"
)

const SelectionKey = "voicecoder.provider"

// ProviderCatalog is the read side of the provider registry.
type ProviderCatalog interface {
	Lookup(id string) (model.ProviderConfig, bool)
	IDs() []string
}

// ProviderFactory hands out cached adapters per (provider, credential).
type ProviderFactory interface {
	GetProvider(ctx context.Context, id, credential string) (adapter.LLMProvider, error)
	RemoveProvider(id, credential string)
}

type AskRequest struct {
	// ProviderID defaults to the current selection.
	ProviderID string
	Language   string
	Code       string
	Question   string
	Stream     bool
	// OnChunk receives fragments when Stream is set.
	OnChunk adapter.ChunkSink
	Options *model.ChatOptions
}

type AskResult struct {
	Question     string
	Response     *model.ChatResponse
	Cost         float64
	ProviderID   string
	ProviderName string
}

type CostPreview struct {
	ProviderID         string  `json:"provider"`
	Model              string  `json:"model"`
	InputTokens        int     `json:"inputTokens"`
	EstimatedInputCost float64 `json:"estimatedInputCost"`
}

type ProviderInfo struct {
	model.ProviderConfig
	HasCredential bool `json:"hasCredential"`
	Selected      bool `json:"selected"`
}

// ProviderUsage is one ledger row.
type ProviderUsage struct {
	Provider string `json:"provider"`
	model.UsageRecord
}

type UsageReport struct {
	Providers   []ProviderUsage   `json:"providers"`
	TotalCost   float64           `json:"totalCost"`
	TotalTokens model.TokenTotals `json:"totalTokens"`
}

type AssistantUseCase interface {
	ListProviders(ctx context.Context) ([]ProviderInfo, error)
	SelectProvider(ctx context.Context, providerID, credential string) (adapter.LLMProvider, error)
	CurrentProvider(ctx context.Context) (string, error)

	AskAboutCode(ctx context.Context, req AskRequest) (*AskResult, error)
	PreviewPromptCost(ctx context.Context, req AskRequest) (*CostPreview, error)

	ShowUsage() string
	GetUsage(providerID string) model.UsageRecord
	GetAllUsage() map[string]model.UsageRecord
	UsageReport() UsageReport
	ResetUsage(ctx context.Context, providerID string) error

	SetCredential(ctx context.Context, providerID, credential string) error
	DeleteCredential(ctx context.Context, providerID string) error
	HasCredential(ctx context.Context, providerID string) (bool, error)
}

var _ AssistantUseCase = (*assistantUC)(nil)

type assistantUC struct {
	catalog         ProviderCatalog
	factory         ProviderFactory
	ledger          UsageLedger
	creds           repository.CredentialStore
	kv              repository.KeyValueStore
	counter         adapter.TokenCounter
	defaultProvider string
	log             *zerolog.Logger
}

// NewAssistantUseCase wires the command surface. counter and logger may be nil.
func NewAssistantUseCase(
	catalog ProviderCatalog,
	factory ProviderFactory,
	ledger UsageLedger,
	creds repository.CredentialStore,
	kv repository.KeyValueStore,
	counter adapter.TokenCounter,
	defaultProvider string,
	logger *zerolog.Logger,
) *assistantUC {
	if logger == nil {
		logger = logging.Nop()
	}
	if defaultProvider == "" {
		defaultProvider = "anthropic"
	}
	return &assistantUC{
		catalog:         catalog,
		factory:         factory,
		ledger:          ledger,
		creds:           creds,
		kv:              kv,
		counter:         counter,
		defaultProvider: defaultProvider,
		log:             logger,
	}
}

func (a *assistantUC) ListProviders(ctx context.Context) ([]ProviderInfo, error) {
	current, err := a.CurrentProvider(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProviderInfo, 0, len(a.catalog.IDs()))
	for _, id := range a.catalog.IDs() {
		cfg, _ := a.catalog.Lookup(id)
		has, err := a.creds.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ProviderInfo{
			ProviderConfig: cfg,
			HasCredential:  has || cfg.Credential != "",
			Selected:       id == current,
		})
	}
	return out, nil
}

// SelectProvider makes providerID current. A non-empty credential replaces the
// stored one and evicts the adapter bound to the old key.
func (a *assistantUC) SelectProvider(ctx context.Context, providerID, credential string) (adapter.LLMProvider, error) {
	cfg, err := a.lookup(providerID)
	if err != nil {
		return nil, err
	}
	log := logging.With(logging.WithProvider(ctx, cfg.ID), a.log)

	if strings.TrimSpace(credential) != "" {
		if err := a.SetCredential(ctx, cfg.ID, credential); err != nil {
			return nil, err
		}
	}

	p, err := a.provider(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}
	if err := a.kv.Set(ctx, SelectionKey, cfg.ID); err != nil {
		return nil, fmt.Errorf("persist provider selection: %w", err)
	}
	log.Info().Str("name", p.Name()).Msg("provider selected")
	return p, nil
}

func (a *assistantUC) CurrentProvider(ctx context.Context) (string, error) {
	id, ok, err := a.kv.Get(ctx, SelectionKey)
	if err != nil {
		return "", err
	}
	if !ok || id == "" {
		return a.defaultProvider, nil
	}
	return id, nil
}

func (a *assistantUC) AskAboutCode(ctx context.Context, req AskRequest) (*AskResult, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: no code selected", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidArgument)
	}

	id, err := a.resolveID(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithProvider(ctx, id)
	log := logging.With(ctx, a.log)

	p, err := a.provider(ctx, id)
	if err != nil {
		return nil, err
	}

	messages := BuildCodePrompt(req.Language, req.Code, req.Question)
	mode := "chat"
	chunks := 0
	start := time.Now()

	var resp *model.ChatResponse
	if req.Stream {
		mode = "stream"
		sink := func(chunk string) {
			chunks++
			if req.OnChunk != nil {
				req.OnChunk(chunk)
			}
		}
		resp, err = p.StreamChat(ctx, messages, sink, req.Options)
	} else {
		resp, err = p.Chat(ctx, messages, req.Options)
	}
	latency := time.Since(start).Milliseconds()
	if err != nil {
		metrics.ObserveChatUsage(id, "", mode, 0, 0, 0, latency, false)
		log.Error().Err(err).Str("mode", mode).Msg("ask failed")
		return nil, err
	}

	cost := p.EstimateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if err := a.ledger.Track(ctx, id, resp.Usage.InputTokens, resp.Usage.OutputTokens, cost); err != nil {
		// a failed write does not fail the call; the in-memory tally is kept
		log.Warn().Err(err).Msg("usage not persisted")
	}
	metrics.ObserveChatUsage(id, resp.Model, mode, resp.Usage.InputTokens, resp.Usage.OutputTokens, cost, latency, true)
	if chunks > 0 {
		metrics.AddStreamChunks(id, chunks)
	}

	log.Info().
		Str("model", resp.Model).
		Str("mode", mode).
		Int("in", resp.Usage.InputTokens).
		Int("out", resp.Usage.OutputTokens).
		Float64("cost", cost).
		Int64("latency_ms", latency).
		Msg("ask completed")

	return &AskResult{
		Question:     req.Question,
		Response:     resp,
		Cost:         cost,
		ProviderID:   id,
		ProviderName: p.Name(),
	}, nil
}

// PreviewPromptCost estimates the input side of a request before sending it.
func (a *assistantUC) PreviewPromptCost(ctx context.Context, req AskRequest) (*CostPreview, error) {
	id, err := a.resolveID(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	cfg, err := a.lookup(id)
	if err != nil {
		return nil, err
	}
	o := req.Options.Resolve(cfg.DefaultModel)
	messages := BuildCodePrompt(req.Language, req.Code, req.Question)

	if a.counter == nil {
		return nil, errors.New("token counter not configured")
	}
	n, err := a.counter.CountTokens(ctx, o.Model, messages)
	if err != nil {
		return nil, err
	}
	return &CostPreview{
		ProviderID:         cfg.ID,
		Model:              o.Model,
		InputTokens:        n,
		EstimatedInputCost: cfg.Pricing.Cost(n, 0),
	}, nil
}

func (a *assistantUC) ShowUsage() string { return a.ledger.GetSummary() }

func (a *assistantUC) GetUsage(providerID string) model.UsageRecord {
	return a.ledger.GetUsage(providerID)
}

func (a *assistantUC) GetAllUsage() map[string]model.UsageRecord { return a.ledger.GetAllUsage() }

// UsageReport lists rows in ledger order with the grand totals.
func (a *assistantUC) UsageReport() UsageReport {
	all := a.ledger.GetAllUsage()
	rep := UsageReport{
		Providers:   make([]ProviderUsage, 0, len(all)),
		TotalCost:   a.ledger.GetTotalCost(),
		TotalTokens: a.ledger.GetTotalTokens(),
	}
	for _, id := range a.ledger.Providers() {
		if rec, ok := all[id]; ok {
			rep.Providers = append(rep.Providers, ProviderUsage{Provider: id, UsageRecord: rec})
		}
	}
	return rep
}

// ResetUsage clears one provider, or everything when providerID is empty.
func (a *assistantUC) ResetUsage(ctx context.Context, providerID string) error {
	if providerID == "" {
		return a.ledger.Reset(ctx)
	}
	return a.ledger.ResetProvider(ctx, providerID)
}

func (a *assistantUC) SetCredential(ctx context.Context, providerID, credential string) error {
	cfg, err := a.lookup(providerID)
	if err != nil {
		return err
	}
	old, err := a.creds.Get(ctx, cfg.ID)
	if err != nil {
		return err
	}
	if err := a.creds.Set(ctx, cfg.ID, credential); err != nil {
		return err
	}
	if old != "" && old != strings.TrimSpace(credential) {
		a.factory.RemoveProvider(cfg.ID, old)
	}
	a.log.Info().Str("provider", cfg.ID).Msg("credential stored")
	return nil
}

func (a *assistantUC) DeleteCredential(ctx context.Context, providerID string) error {
	cfg, err := a.lookup(providerID)
	if err != nil {
		return err
	}
	old, err := a.creds.Get(ctx, cfg.ID)
	if err != nil {
		return err
	}
	if err := a.creds.Delete(ctx, cfg.ID); err != nil {
		return err
	}
	if old != "" {
		a.factory.RemoveProvider(cfg.ID, old)
	}
	return nil
}

func (a *assistantUC) HasCredential(ctx context.Context, providerID string) (bool, error) {
	cfg, err := a.lookup(providerID)
	if err != nil {
		return false, err
	}
	return a.creds.Exists(ctx, cfg.ID)
}

// --- internal ---

func (a *assistantUC) resolveID(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) != "" {
		return strings.ToLower(strings.TrimSpace(id)), nil
	}
	return a.CurrentProvider(ctx)
}

func (a *assistantUC) lookup(id string) (model.ProviderConfig, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	cfg, ok := a.catalog.Lookup(id)
	if !ok {
		return model.ProviderConfig{}, domain.NewConfigurationError(id, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, id))
	}
	return cfg, nil
}

// provider resolves the stored credential and fetches the adapter. With no
// stored credential the factory falls back to the configured default.
func (a *assistantUC) provider(ctx context.Context, id string) (adapter.LLMProvider, error) {
	if _, err := a.lookup(id); err != nil {
		return nil, err
	}
	credential, err := a.creds.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.factory.GetProvider(ctx, id, credential)
}
