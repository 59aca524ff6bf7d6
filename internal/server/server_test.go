package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/powerchain/internal/config"
)

func newTestServer(t *testing.T, preset string) (*Server, http.Handler) {
	t.Helper()
	net, err := config.GetPreset(preset).Build()
	require.NoError(t, err)
	s, err := New(net, nil)
	require.NoError(t, err)
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodePart(t *testing.T, rr *httptest.ResponseRecorder) PartView {
	t.Helper()
	var v PartView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestListParts(t *testing.T) {
	_, h := newTestServer(t, "reduction")

	rr := do(t, h, "GET", "/parts", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var parts []PartView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &parts))
	require.Len(t, parts, 3)
	assert.Equal(t, "motor", parts[0].Name)
	assert.Equal(t, []string{"a"}, parts[0].Outputs)
	assert.Equal(t, "gear", parts[2].Kind)
	assert.Equal(t, 20, parts[2].Teeth)
	assert.InDelta(t, -30, parts[2].RPM, 1e-9)
}

func TestGetPart(t *testing.T) {
	_, h := newTestServer(t, "worm-drive")

	rr := do(t, h, "GET", "/parts/worm", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	v := decodePart(t, rr)
	assert.Equal(t, "worm", v.Kind)
	assert.Equal(t, "left", v.Handed)

	rr = do(t, h, "GET", "/parts/ghost", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestConnectDisconnect(t *testing.T) {
	_, h := newTestServer(t, "reduction")

	rr := do(t, h, "POST", "/parts/b/connect", `{"target":"motor"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"motor"}, decodePart(t, rr).Outputs)

	rr = do(t, h, "POST", "/parts/b/disconnect", `{"target":"motor"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodePart(t, rr).Outputs)

	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/parts/b/connect", `{"target":"ghost"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/parts/b/connect", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/parts/b/connect", `not json`).Code)
}

func TestOutputs(t *testing.T) {
	_, h := newTestServer(t, "live-train")

	rr := do(t, h, "DELETE", "/parts/drive/outputs/0", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"output"}, decodePart(t, rr).Outputs)

	// Out of range is ignored.
	rr = do(t, h, "DELETE", "/parts/drive/outputs/5", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodePart(t, rr).Outputs, 1)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "DELETE", "/parts/drive/outputs/x", "").Code)

	rr = do(t, h, "DELETE", "/parts/drive/outputs", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodePart(t, rr).Outputs)
}

func TestDetach(t *testing.T) {
	_, h := newTestServer(t, "reduction")

	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/parts/a/detach", "").Code)

	rr := do(t, h, "GET", "/parts/motor", "")
	assert.Empty(t, decodePart(t, rr).Outputs)
}

func TestSetSpeed(t *testing.T) {
	s, h := newTestServer(t, "reduction")

	rr := do(t, h, "PUT", "/parts/motor/speed", `{"rpm":120}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 120.0, decodePart(t, rr).Speed)

	s.Step(1.0 / 60)

	rr = do(t, h, "GET", "/parts/b", "")
	assert.InDelta(t, -60, decodePart(t, rr).RPM, 1e-9)

	assert.Equal(t, http.StatusConflict, do(t, h, "PUT", "/parts/a/speed", `{"rpm":10}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "PUT", "/parts/motor/speed", `{}`).Code)
}

func TestEnableAndUpdate(t *testing.T) {
	s, h := newTestServer(t, "dual-driver")

	rr := do(t, h, "GET", "/parts/shared", "")
	assert.False(t, decodePart(t, rr).Enabled)

	// Drop the second driver, re-admit the part and push a fresh pass.
	assert.Equal(t, http.StatusOK, do(t, h, "POST", "/parts/right/disconnect", `{"target":"shared"}`).Code)
	rr = do(t, h, "POST", "/parts/shared/enable", "")
	assert.True(t, decodePart(t, rr).Enabled)
	assert.Equal(t, http.StatusAccepted, do(t, h, "POST", "/parts/left/update", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, h, "POST", "/parts/shared/update", "").Code)

	s.Step(1.0 / 60)

	rr = do(t, h, "GET", "/parts/shared", "")
	v := decodePart(t, rr)
	assert.True(t, v.Enabled)
	assert.InDelta(t, 60, v.RPM, 1e-9)
}

func TestSetLive(t *testing.T) {
	_, h := newTestServer(t, "reduction")

	rr := do(t, h, "PUT", "/parts/motor/live", `{"live":true}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodePart(t, rr).Live)

	assert.Equal(t, http.StatusConflict, do(t, h, "PUT", "/parts/a/live", `{"live":true}`).Code)
}

func TestDestroyPart(t *testing.T) {
	_, h := newTestServer(t, "reduction")

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/parts/a", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/parts/a", "").Code)
}

func TestStatsAndMetrics(t *testing.T) {
	s, h := newTestServer(t, "dual-driver")
	s.Step(0.5)
	s.Step(0.5)

	rr := do(t, h, "GET", "/stats", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 2.0, stats["step"])
	assert.Equal(t, 1.0, stats["elapsed"])
	assert.Equal(t, 1.0, stats["Conflicts"])

	rr = do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "powerchain_ticks_total 2")
	assert.Contains(t, body, `powerchain_conflicts_total{part="shared"} 1`)
	assert.Contains(t, body, `powerchain_part_rpm{part="left"} 60`)
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, "reduction")

	rr := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRun(t *testing.T) {
	s, _ := newTestServer(t, "live-train")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, 0.01)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Greater(t, s.step, 0)
}
