package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithServiceAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "nullprofile",
		Version: "test",
		Env:     "prod",
		Level:   "warn",
		Output:  &buf,
	})

	logger.Info("dropped")
	logger.Warn("kept", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "kept", line["msg"])
	require.Equal(t, "nullprofile", line["service"])
	require.Equal(t, "v", line["k"])
}

func TestHTTPMiddlewareInjectsLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slogx.New(slogx.Config{Service: "np", Output: &buf})

	var seen bool
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = slogx.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, seen)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	require.Contains(t, buf.String(), `"req_id":"req-123"`)
	require.Contains(t, buf.String(), `"status":418`)
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	require.NotNil(t, slogx.FromContext(context.Background()))
}
