//go:build !integration

package metrics

import (
	"runtime"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveChatUsage_CountsSuccessOnly(t *testing.T) {
	ObserveChatUsage("Test-Provider", "m1", "chat", 100, 50, 0.25, 12, true)
	ObserveChatUsage("test-provider", "m1", "chat", 999, 999, 9, 12, false)

	if got := testutil.ToFloat64(aiTokensIn.WithLabelValues("test-provider", "m1")); got != 100 {
		t.Errorf("tokens in = %v, want 100", got)
	}
	if got := testutil.ToFloat64(aiTokensOut.WithLabelValues("test-provider", "m1")); got != 50 {
		t.Errorf("tokens out = %v, want 50", got)
	}
	if got := testutil.ToFloat64(aiCostUSD.WithLabelValues("test-provider", "m1")); got != 0.25 {
		t.Errorf("cost = %v, want 0.25", got)
	}
}

func TestObserveProviderLookup(t *testing.T) {
	before := testutil.ToFloat64(providerCacheLookups.WithLabelValues("provider-test", "hit"))
	ObserveProviderLookup("Provider-Test", true)
	after := testutil.ToFloat64(providerCacheLookups.WithLabelValues("provider-test", "hit"))
	if after-before != 1 {
		t.Errorf("expected one increment, got %v", after-before)
	}
}

func TestSetProviderCacheEntries(t *testing.T) {
	SetProviderCacheEntries(3)
	if got := testutil.ToFloat64(providerCacheEntries); got != 3 {
		t.Errorf("entries = %v, want 3", got)
	}
}

func TestMustRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)
	MustRegister(reg)
}

func TestSetBuildInfo(t *testing.T) {
	SetBuildInfo("v1.2.3", "abc123")
	if got := testutil.ToFloat64(buildInfo.WithLabelValues("v1.2.3", "abc123", runtime.Version())); got != 1 {
		t.Errorf("build info = %v, want 1", got)
	}
}
