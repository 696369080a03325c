// File: internal/usecase/usage_ledger.go
package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"voicecoder/internal/domain"
	"voicecoder/internal/domain/model"
	"voicecoder/internal/domain/ports/repository"
	"voicecoder/internal/infra/logging"
)

const DefaultUsageKey = "voicecoder.usage"

// UsageLedger accumulates token usage and estimated spend per provider.
type UsageLedger interface {
	// Track adds one call's usage. Negative deltas are rejected.
	Track(ctx context.Context, providerID string, inputTokens, outputTokens int, cost float64) error

	// GetUsage returns a copy of one record; unknown providers yield a zero record.
	GetUsage(providerID string) model.UsageRecord
	GetAllUsage() map[string]model.UsageRecord

	// Providers lists tracked providers in first-use order.
	Providers() []string

	GetTotalCost() float64
	GetTotalTokens() model.TokenTotals

	Reset(ctx context.Context) error
	ResetProvider(ctx context.Context, providerID string) error

	GetSummary() string
}

var _ UsageLedger = (*usageLedger)(nil)

type usageLedger struct {
	mu      sync.RWMutex
	store   repository.KeyValueStore
	key     string
	order   []string
	records map[string]model.UsageRecord
	log     *zerolog.Logger
}

// NewUsageLedger loads the snapshot stored at key. A missing snapshot starts
// an empty ledger; an unreadable one is an error.
func NewUsageLedger(ctx context.Context, store repository.KeyValueStore, key string, logger *zerolog.Logger) (*usageLedger, error) {
	if key == "" {
		key = DefaultUsageKey
	}
	if logger == nil {
		logger = logging.Nop()
	}
	l := &usageLedger{
		store:   store,
		key:     key,
		records: make(map[string]model.UsageRecord),
		log:     logger,
	}

	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load usage snapshot: %w", err)
	}
	if ok && strings.TrimSpace(raw) != "" {
		order, records, err := decodeSnapshot([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode usage snapshot: %w", err)
		}
		l.order, l.records = order, records
	}
	l.log.Debug().Int("providers", len(l.order)).Msg("usage ledger loaded")
	return l, nil
}

func (l *usageLedger) Track(ctx context.Context, providerID string, inputTokens, outputTokens int, cost float64) error {
	if providerID == "" {
		return fmt.Errorf("%w: empty provider id", domain.ErrInvalidArgument)
	}
	if inputTokens < 0 || outputTokens < 0 || cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return fmt.Errorf("%w: usage deltas must be non-negative (in=%d out=%d cost=%v)", domain.ErrInvalidArgument, inputTokens, outputTokens, cost)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[providerID]
	if !ok {
		l.order = append(l.order, providerID)
	}
	l.records[providerID] = rec.Add(inputTokens, outputTokens, cost)
	return l.persistLocked(ctx)
}

func (l *usageLedger) GetUsage(providerID string) model.UsageRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.records[providerID]
}

func (l *usageLedger) GetAllUsage() map[string]model.UsageRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]model.UsageRecord, len(l.records))
	for id, rec := range l.records {
		out[id] = rec
	}
	return out
}

func (l *usageLedger) Providers() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...)
}

func (l *usageLedger) GetTotalCost() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := 0.0
	for _, id := range l.order {
		total += l.records[id].EstimatedCost
	}
	return total
}

func (l *usageLedger) GetTotalTokens() model.TokenTotals {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalsLocked()
}

func (l *usageLedger) totalsLocked() model.TokenTotals {
	var t model.TokenTotals
	for _, rec := range l.records {
		t.Input += rec.InputTokens
		t.Output += rec.OutputTokens
	}
	return t
}

func (l *usageLedger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = nil
	l.records = make(map[string]model.UsageRecord)
	l.log.Info().Msg("usage reset")
	return l.persistLocked(ctx)
}

func (l *usageLedger) ResetProvider(ctx context.Context, providerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[providerID]; !ok {
		return nil
	}
	delete(l.records, providerID)
	for i, id := range l.order {
		if id == providerID {
			l.order = append(l.order[:i:i], l.order[i+1:]...)
			break
		}
	}
	l.log.Info().Str("provider", providerID).Msg("provider usage reset")
	return l.persistLocked(ctx)
}

const summaryRule = "========================================"

func (l *usageLedger) GetSummary() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p := message.NewPrinter(language.English)
	lines := []string{"VoiceCoder Usage Summary", summaryRule}

	totalCost := 0.0
	for _, id := range l.order {
		rec := l.records[id]
		totalCost += rec.EstimatedCost
		lines = append(lines,
			"",
			"Provider: "+id,
			p.Sprintf("  Input tokens: %d", rec.InputTokens),
			p.Sprintf("  Output tokens: %d", rec.OutputTokens),
			fmt.Sprintf("  Estimated cost: $%.4f", rec.EstimatedCost),
		)
	}

	totals := l.totalsLocked()
	lines = append(lines,
		"",
		summaryRule,
		p.Sprintf("Total input tokens: %d", totals.Input),
		p.Sprintf("Total output tokens: %d", totals.Output),
		fmt.Sprintf("Total estimated cost: $%.4f", totalCost),
	)
	return strings.Join(lines, "\n")
}

// persistLocked writes the whole mapping. The in-memory state is kept even
// when the write fails.
func (l *usageLedger) persistLocked(ctx context.Context) error {
	raw, err := encodeSnapshot(l.order, l.records)
	if err != nil {
		return err
	}
	if err := l.store.Set(ctx, l.key, string(raw)); err != nil {
		l.log.Error().Err(err).Str("key", l.key).Msg("persist usage snapshot")
		return fmt.Errorf("persist usage: %w", err)
	}
	return nil
}

// encodeSnapshot writes a JSON object whose keys follow order.
func encodeSnapshot(order []string, records map[string]model.UsageRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(records[id])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeSnapshot reads a JSON object keeping the key order of the document.
func decodeSnapshot(raw []byte) ([]string, map[string]model.UsageRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var order []string
	records := make(map[string]model.UsageRecord)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected provider key, got %v", tok)
		}
		var rec model.UsageRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, nil, fmt.Errorf("record %q: %w", id, err)
		}
		if _, dup := records[id]; !dup {
			order = append(order, id)
		}
		records[id] = rec
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return order, records, nil
}
