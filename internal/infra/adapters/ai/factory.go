package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicecoder/internal/domain"
	"voicecoder/internal/domain/model"
	"voicecoder/internal/domain/ports/adapter"
	"voicecoder/internal/infra/logging"
	"voicecoder/internal/infra/metrics"
)

// NoCredential is the fingerprint used when no credential is bound.
const NoCredential = "default"

const defaultHeaderTimeout = 2 * time.Minute

// Constructor builds an adapter from a credential-bound config.
type Constructor func(ctx context.Context, cfg model.ProviderConfig, httpClient *http.Client, logger *zerolog.Logger) (adapter.LLMProvider, error)

// Factory hands out adapters, constructing each (provider, credential) pair
// at most once.
type Factory struct {
	mu           sync.Mutex
	registry     *Registry
	cache        ProviderCache
	constructors map[string]Constructor
	httpClient   *http.Client
	log          *zerolog.Logger
}

type FactoryOption func(*Factory)

func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *Factory) { f.httpClient = c }
}

func WithLogger(l *zerolog.Logger) FactoryOption {
	return func(f *Factory) { f.log = l }
}

// WithConstructor registers or replaces the constructor for one provider id.
func WithConstructor(id string, c Constructor) FactoryOption {
	return func(f *Factory) { f.constructors[id] = c }
}

func NewFactory(registry *Registry, cache ProviderCache, opts ...FactoryOption) *Factory {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if cache == nil {
		cache = NewMemoryProviderCache()
	}
	f := &Factory{
		registry:     registry,
		cache:        cache,
		constructors: defaultConstructors(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.httpClient == nil {
		f.httpClient = NewHTTPClient(defaultHeaderTimeout)
	}
	if f.log == nil {
		f.log = logging.Nop()
	}
	return f
}

func defaultConstructors() map[string]Constructor {
	return map[string]Constructor{
		ProviderAnthropic: func(_ context.Context, cfg model.ProviderConfig, hc *http.Client, l *zerolog.Logger) (adapter.LLMProvider, error) {
			return NewAnthropicAdapter(cfg, hc, l)
		},
		ProviderOpenAI: func(_ context.Context, cfg model.ProviderConfig, hc *http.Client, l *zerolog.Logger) (adapter.LLMProvider, error) {
			return NewOpenAIAdapter(cfg, hc, l)
		},
		ProviderGoogle: func(ctx context.Context, cfg model.ProviderConfig, hc *http.Client, l *zerolog.Logger) (adapter.LLMProvider, error) {
			return NewGeminiAdapter(ctx, cfg, hc, l)
		},
		ProviderOllama: func(_ context.Context, cfg model.ProviderConfig, hc *http.Client, l *zerolog.Logger) (adapter.LLMProvider, error) {
			return NewOllamaAdapter(cfg, hc, l)
		},
	}
}

func (f *Factory) Registry() *Registry { return f.registry }

// GetProvider returns the cached adapter for (id, credential) or builds one.
// An empty credential falls back to the registry default. Unknown ids and
// failed constructions are never cached.
func (f *Factory) GetProvider(ctx context.Context, id, credential string) (adapter.LLMProvider, error) {
	id = strings.ToLower(strings.TrimSpace(id))

	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, ok := f.registry.Lookup(id)
	if !ok {
		return nil, domain.NewConfigurationError(id, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, id))
	}
	if credential != "" {
		cfg = cfg.WithCredential(credential)
	}

	key := CacheKey{ProviderID: id, Fingerprint: Fingerprint(cfg.Credential)}
	if p, ok := f.cache.Get(key); ok {
		metrics.ObserveProviderLookup(id, true)
		return p, nil
	}
	metrics.ObserveProviderLookup(id, false)

	build, ok := f.constructors[id]
	if !ok {
		return nil, domain.NewConfigurationError(cfg.Name, fmt.Errorf("%w: no constructor for %q", domain.ErrUnknownProvider, id))
	}
	p, err := build(ctx, cfg, f.httpClient, f.log)
	if err != nil {
		f.log.Warn().Err(err).Str("provider", id).Msg("provider construction failed")
		return nil, err
	}

	f.cache.Put(key, p)
	metrics.SetProviderCacheEntries(f.cache.Len())
	f.log.Debug().Str("provider", id).Str("fingerprint", key.Fingerprint).Msg("provider constructed")
	return p, nil
}

// ClearCache drops every cached adapter.
func (f *Factory) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.Clear()
	metrics.SetProviderCacheEntries(0)
}

// RemoveProvider evicts the adapter bound to (id, credential), resolving the
// credential the same way GetProvider does.
func (f *Factory) RemoveProvider(id, credential string) {
	id = strings.ToLower(strings.TrimSpace(id))

	f.mu.Lock()
	defer f.mu.Unlock()

	if credential == "" {
		if cfg, ok := f.registry.Lookup(id); ok {
			credential = cfg.Credential
		}
	}
	f.cache.Delete(CacheKey{ProviderID: id, Fingerprint: Fingerprint(credential)})
	metrics.SetProviderCacheEntries(f.cache.Len())
}

// Fingerprint is a short stable digest of a credential.
func Fingerprint(credential string) string {
	if credential == "" {
		return NoCredential
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}
