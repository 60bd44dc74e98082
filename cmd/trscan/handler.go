package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/gogpu/trscan"
	"github.com/gogpu/trscan/internal/config"
	"github.com/gogpu/trscan/internal/metrics"
)

// Handler serves classification requests over HTTP.
type Handler struct {
	proc    *trscan.Processor
	log     *zap.Logger
	maxBody int64
}

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// healthResponse is the JSON body of /healthz.
type healthResponse struct {
	Status string `json:"status"`
	Kernel string `json:"kernel,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

func NewHandler(proc *trscan.Processor, cfg *config.Config, log *zap.Logger) *Handler {
	return &Handler{
		proc:    proc,
		log:     log.Named("http"),
		maxBody: cfg.Server.MaxBodyBytes,
	}
}

// Process classifies the raw request body and responds with the Result.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: err.Error(),
				Kind:  trscan.KindInputTooLarge.String(),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := h.proc.ProcessBytes(r.Context(), body)
	metrics.Record(res, err)
	if err != nil {
		kind := trscan.KindOf(err)
		status := statusFor(kind)
		if status >= http.StatusInternalServerError {
			h.log.Warn("process failed", zap.String("kind", kind.String()), zap.Error(err))
		}
		writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String()})
		return
	}
	h.log.Debug("processed",
		zap.Int("bytes", res.InputSize),
		zap.Float64("gpu_ms", res.ProcessingTime))
	writeJSON(w, http.StatusOK, res)
}

// Health reports 503 while processing is disabled.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	if err := h.proc.Status(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unavailable",
			Kind:   trscan.KindOf(err).String(),
			Error:  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Kernel: h.proc.KernelName()})
}

// statusFor maps a failure kind to an HTTP status.
func statusFor(kind trscan.ErrorKind) int {
	switch kind {
	case trscan.KindEmptyInput:
		return http.StatusBadRequest
	case trscan.KindInputTooLarge:
		return http.StatusRequestEntityTooLarge
	case trscan.KindCanceled:
		return http.StatusRequestTimeout
	case trscan.KindUnsupportedPlatform, trscan.KindNoAdapter,
		trscan.KindKernelCompile, trscan.KindKernelNotLoaded, trscan.KindClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
