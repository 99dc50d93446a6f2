package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

type fakeController struct {
	mu      sync.Mutex
	status  domain.Status
	cancels int
	resets  int
}

func (f *fakeController) Snapshot() domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeController) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	if f.status.Phase == domain.PhaseToConfirm {
		f.status.Phase = domain.PhaseIdle
	}
}

func newTestServer(ctrl Controller) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(ctrl, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeController{})

	w := do(t, s, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestStatus_InProgress(t *testing.T) {
	ctrl := &fakeController{status: domain.Status{
		Phase: domain.PhaseInProgress,
		Progress: domain.Progress{
			FilesTotal:  4,
			FilesCopied: 1,
			CurrentFile: "a.txt",
		},
	}}
	s := newTestServer(ctrl)

	w := do(t, s, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.PhaseInProgress, resp.Phase)
	assert.Equal(t, uint64(4), resp.Progress.FilesTotal)
	assert.Equal(t, "a.txt", resp.Progress.CurrentFile)
	assert.InDelta(t, 25.0, resp.Percent, 0.001)
	assert.Nil(t, resp.Outcome)
}

func TestStatus_WithOutcome(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctrl := &fakeController{status: domain.Status{
		Phase: domain.PhaseCompleted,
		Outcome: &domain.Outcome{
			RunID:       "run-1",
			Kind:        domain.OutcomeFailed,
			Err:         errors.New("disk full"),
			StartTime:   start,
			EndTime:     start.Add(time.Second),
			FilesCopied: 2,
		},
	}}
	s := newTestServer(ctrl)

	w := do(t, s, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Outcome)
	assert.Equal(t, "run-1", resp.Outcome.RunID)
	assert.Equal(t, domain.OutcomeFailed, resp.Outcome.Kind)
	assert.Equal(t, "disk full", resp.Outcome.Error)
	assert.Equal(t, uint64(2), resp.Outcome.FilesCopied)
	assert.Zero(t, resp.Percent)
}

func TestCancel(t *testing.T) {
	ctrl := &fakeController{status: domain.Status{Phase: domain.PhaseInProgress}}
	s := newTestServer(ctrl)

	w := do(t, s, http.MethodPost, "/api/v1/backup/cancel")

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"cancelled":true}`, w.Body.String())
	assert.Equal(t, 1, ctrl.cancels)
}

func TestCancel_NothingRunning(t *testing.T) {
	ctrl := &fakeController{status: domain.Status{Phase: domain.PhaseIdle}}
	s := newTestServer(ctrl)

	w := do(t, s, http.MethodPost, "/api/v1/backup/cancel")

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"cancelled":false}`, w.Body.String())
}

func TestReset(t *testing.T) {
	ctrl := &fakeController{status: domain.Status{Phase: domain.PhaseToConfirm}}
	s := newTestServer(ctrl)

	w := do(t, s, http.MethodPost, "/api/v1/gesture/reset")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.PhaseIdle, resp.Phase)
	assert.Equal(t, 1, ctrl.resets)
}

func TestVersion(t *testing.T) {
	s := newTestServer(&fakeController{})

	w := do(t, s, http.MethodGet, "/api/v1/version")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"go_version"`)
}

func TestMethodMismatch(t *testing.T) {
	s := newTestServer(&fakeController{})

	w := do(t, s, http.MethodGet, "/api/v1/backup/cancel")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(&fakeController{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
