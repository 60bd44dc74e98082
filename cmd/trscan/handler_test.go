package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/gogpu/trscan"
	"github.com/gogpu/trscan/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.GPU.Backend = "noop"
	cfg.Server.ListenAddr = "127.0.0.1:0"
	cfg.Server.MaxBodyBytes = 64
	return cfg
}

// startServer runs the server graph and returns its mux.
func startServer(t *testing.T, cfg *config.Config) *http.ServeMux {
	t.Helper()
	var mux *http.ServeMux
	app := fxtest.New(t,
		serverOptions(cfg, zap.NewNop()),
		fx.NopLogger,
		fx.Populate(&mux),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestServeProcess(t *testing.T) {
	mux := startServer(t, testConfig(t))

	rec := do(mux, http.MethodPost, "/v1/process", "Merhaba dünya")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Contains(t, res, "stats")
	assert.Contains(t, res, "processingTime")
	assert.Contains(t, res, "throughput")
	assert.Equal(t, float64(len("Merhaba dünya")), res["inputSize"])
}

func TestServeProcessErrors(t *testing.T) {
	mux := startServer(t, testConfig(t))

	tests := []struct {
		name   string
		method string
		body   string
		status int
		kind   string
	}{
		{"empty body", http.MethodPost, "", http.StatusBadRequest, "EmptyInput"},
		{"body over limit", http.MethodPost, strings.Repeat("ş", 64), http.StatusRequestEntityTooLarge, "InputTooLarge"},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, tt.method, "/v1/process", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.kind, body.Kind)
		})
	}
}

func TestServeHealth(t *testing.T) {
	t.Run("available", func(t *testing.T) {
		mux := startServer(t, testConfig(t))
		rec := do(mux, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "embedded", body.Kernel)
	})

	t.Run("kernel missing", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Kernel.Path = filepath.Join(t.TempDir(), "absent.wgsl")
		mux := startServer(t, cfg)

		rec := do(mux, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unavailable", body.Status)
		assert.Equal(t, "KernelNotLoaded", body.Kind)

		rec = do(mux, http.MethodPost, "/v1/process", "abc")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServeMetrics(t *testing.T) {
	mux := startServer(t, testConfig(t))
	do(mux, http.MethodPost, "/v1/process", "abc")

	rec := do(mux, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "trscan_process_total")
	assert.Contains(t, body, `trscan_endpoint_responses_total{endpoint="/v1/process",status_code="200"}`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind trscan.ErrorKind
		want int
	}{
		{trscan.KindEmptyInput, http.StatusBadRequest},
		{trscan.KindInputTooLarge, http.StatusRequestEntityTooLarge},
		{trscan.KindCanceled, http.StatusRequestTimeout},
		{trscan.KindUnsupportedPlatform, http.StatusServiceUnavailable},
		{trscan.KindNoAdapter, http.StatusServiceUnavailable},
		{trscan.KindKernelCompile, http.StatusServiceUnavailable},
		{trscan.KindKernelNotLoaded, http.StatusServiceUnavailable},
		{trscan.KindClosed, http.StatusServiceUnavailable},
		{trscan.KindDeviceOperation, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}

func TestNewProcessorUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.GPU.Backend = "metal"
	_, err := newProcessor(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, trscan.ErrUnsupportedPlatform)
}
