package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"voicecoder/internal/infra/logging"
	"voicecoder/internal/usecase"
)

type Options struct {
	// RequestTimeout bounds every request, streamed answers included.
	RequestTimeout time.Duration
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
}

// Server exposes the assistant over HTTP.
type Server struct {
	uc   usecase.AssistantUseCase
	log  *zerolog.Logger
	opts Options
}

func NewServer(uc usecase.AssistantUseCase, logger *zerolog.Logger, opts Options) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Minute
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{uc: uc, log: logger, opts: opts}
}

// Handler returns the full route tree wrapped in the standard middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/providers", s.listProviders)
		r.Get("/provider", s.currentProvider)
		r.Put("/provider", s.selectProvider)
		r.Put("/providers/{id}/credential", s.setCredential)
		r.Delete("/providers/{id}/credential", s.deleteCredential)

		r.Post("/ask", s.ask)
		r.Post("/ask/estimate", s.estimate)

		r.Get("/usage", s.usage)
		r.Get("/usage/summary", s.usageSummary)
		r.Delete("/usage", s.resetUsage)
		r.Delete("/usage/{id}", s.resetUsage)
	})

	return Chain(r,
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.opts.RequestTimeout),
	)
}
