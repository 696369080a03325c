package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(providerCacheLookups, providerCacheEntries) }

var (
	providerCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicecoder_provider_cache_lookups_total",
			Help: "Adapter cache lookups by provider id; a miss builds a new adapter.",
		},
		[]string{"provider", "result"}, // result=hit|miss
	)

	providerCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "voicecoder_provider_cache_entries",
			Help: "Adapters currently held by the provider factory.",
		},
	)
)

// ObserveProviderLookup counts one factory lookup for providerID.
func ObserveProviderLookup(providerID string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	providerCacheLookups.WithLabelValues(norm(providerID), result).Inc()
}

func SetProviderCacheEntries(n int) { providerCacheEntries.Set(float64(n)) }
