package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"voicecoder/internal/domain"
	"voicecoder/internal/domain/model"
	"voicecoder/internal/infra/logging"
	"voicecoder/internal/usecase"
)

const maxBodyBytes = 1 << 20

type selectRequest struct {
	Provider   string `json:"provider"`
	Credential string `json:"credential,omitempty"`
}

type credentialRequest struct {
	Credential string `json:"credential"`
}

type askRequest struct {
	Provider    string   `json:"provider,omitempty"`
	Language    string   `json:"language"`
	Code        string   `json:"code"`
	Question    string   `json:"question"`
	Stream      bool     `json:"stream,omitempty"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

func (r askRequest) toUseCase() usecase.AskRequest {
	return usecase.AskRequest{
		ProviderID: r.Provider,
		Language:   r.Language,
		Code:       r.Code,
		Question:   r.Question,
		Stream:     r.Stream,
		Options: &model.ChatOptions{
			Model:       r.Model,
			MaxTokens:   r.MaxTokens,
			Temperature: r.Temperature,
		},
	}
}

type askResponse struct {
	Provider     string           `json:"provider"`
	ProviderName string           `json:"providerName"`
	Model        string           `json:"model"`
	Content      string           `json:"content"`
	Usage        model.TokenUsage `json:"usage"`
	Cost         float64          `json:"cost"`
	Markdown     string           `json:"markdown"`
}

func newAskResponse(res *usecase.AskResult) askResponse {
	return askResponse{
		Provider:     res.ProviderID,
		ProviderName: res.ProviderName,
		Model:        res.Response.Model,
		Content:      res.Response.Content,
		Usage:        res.Response.Usage,
		Cost:         res.Cost,
		Markdown:     res.Markdown(),
	}
}

// streamEvent is one NDJSON line of a streamed answer.
type streamEvent struct {
	Type   string       `json:"type"` // chunk|done|error
	Text   string       `json:"text,omitempty"`
	Result *askResponse `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	list, err := s.uc.ListProviders(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) currentProvider(w http.ResponseWriter, r *http.Request) {
	id, err := s.uc.CurrentProvider(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"provider": id})
}

func (s *Server) selectProvider(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.uc.SelectProvider(r.Context(), req.Provider, req.Credential)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"provider": p.ID(), "name": p.Name()})
}

func (s *Server) setCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.uc.SetCredential(r.Context(), chi.URLParam(r, "id"), req.Credential); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.DeleteCredential(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !req.Stream {
		res, err := s.uc.AskAboutCode(r.Context(), req.toUseCase())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newAskResponse(res))
		return
	}

	nd := newNDJSONWriter(w)
	in := req.toUseCase()
	in.OnChunk = func(chunk string) {
		nd.write(streamEvent{Type: "chunk", Text: chunk})
	}
	res, err := s.uc.AskAboutCode(r.Context(), in)
	if err != nil {
		if !nd.started() {
			s.writeError(w, r, err)
			return
		}
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("stream aborted")
		nd.write(streamEvent{Type: "error", Error: err.Error()})
		return
	}
	out := newAskResponse(res)
	nd.write(streamEvent{Type: "done", Result: &out})
}

func (s *Server) estimate(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.uc.PreviewPromptCost(r.Context(), req.toUseCase())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) usage(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("provider"); id != "" {
		rec := s.uc.GetUsage(id)
		writeJSON(w, http.StatusOK, usecase.ProviderUsage{Provider: id, UsageRecord: rec})
		return
	}
	writeJSON(w, http.StatusOK, s.uc.UsageReport())
}

func (s *Server) usageSummary(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.uc.ShowUsage()))
}

func (s *Server) resetUsage(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.ResetUsage(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json: " + err.Error()})
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrProtocol):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	l := logging.With(r.Context(), s.log)
	if code >= 500 {
		l.Error().Err(err).Int("status", code).Msg("request failed")
	} else {
		l.Debug().Err(err).Int("status", code).Msg("request rejected")
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ndjsonWriter commits the 200 status on first write so errors raised before
// any chunk can still use a proper status code.
type ndjsonWriter struct {
	mu    sync.Mutex
	w     http.ResponseWriter
	enc   *json.Encoder
	begun bool
}

func newNDJSONWriter(w http.ResponseWriter) *ndjsonWriter {
	return &ndjsonWriter{w: w, enc: json.NewEncoder(w)}
}

func (n *ndjsonWriter) write(ev streamEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.begun {
		n.w.Header().Set("Content-Type", "application/x-ndjson")
		n.w.Header().Set("Cache-Control", "no-cache")
		n.w.WriteHeader(http.StatusOK)
		n.begun = true
	}
	_ = n.enc.Encode(ev)
	if f, ok := n.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (n *ndjsonWriter) started() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.begun
}
