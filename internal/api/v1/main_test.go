package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/require"

	"github.com/xailab/xai-review/internal/buildinfo"
	"github.com/xailab/xai-review/internal/datastore"
	"github.com/xailab/xai-review/internal/datastore/entities"
	"github.com/xailab/xai-review/internal/datastore/repository"
	"github.com/xailab/xai-review/internal/ingest"
	"github.com/xailab/xai-review/internal/securefs"
)

// testEnv is a controller on a temp data root and an in-memory database.
type testEnv struct {
	root  string
	e     *echo.Echo
	ctrl  *Controller
	store *repository.Store
	svc   *ingest.Service
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	root := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.MkdirAll(root, 0o750))

	sfs, err := securefs.New(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sfs.Close() })

	m, err := datastore.Open(t.Context(), &datastore.Config{URL: "sqlite://:memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Migrate(t.Context()))

	store := repository.NewStore(m.DB(), m.Dialect())
	sets := cache.New(time.Minute, 2*time.Minute)
	svc := ingest.NewService(sfs, store, 3,
		ingest.WithLockFile(filepath.Join(t.TempDir(), "ingest.lock")),
		ingest.OnRecordsCreated(func(*ingest.Report) { sets.Flush() }))

	e := echo.New()
	opts = append([]Option{
		WithImageSetCache(sets),
		WithPinger(m),
		WithBuildInfo(buildinfo.NewContext("1.2.3", "2026-01-01")),
	}, opts...)
	ctrl, err := New(e, store, sfs, svc, opts...)
	require.NoError(t, err)
	e.HTTPErrorHandler = ctrl.HTTPErrorHandler

	return &testEnv{root: root, e: e, ctrl: ctrl, store: store, svc: svc}
}

// addFiles writes patient/<name> files whose content is the file name.
func (env *testEnv) addFiles(t *testing.T, patient string, names ...string) {
	t.Helper()
	dir := filepath.Join(env.root, patient)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
}

// do serves one request through the router. A non-nil body is sent as JSON.
func (env *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, http.NoBody)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// doRaw serves a request with an arbitrary body and content type.
func (env *testEnv) doRaw(t *testing.T, method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// ingest triggers an incremental run and requires it to succeed.
func (env *testEnv) ingest(t *testing.T) ingest.Report {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/v1/ingest", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report ingest.Report
	decode(t, rec, &report)
	return report
}

// seedTwoPatients ingests patient 001 and then 002, each with a frame and
// two masks. Separate runs make 001's frame the lower id.
func (env *testEnv) seedTwoPatients(t *testing.T) {
	t.Helper()
	env.addFiles(t, "001", "video_0001.jpg", "saliency_colored_video_0001.jpg", "occlusion_colored_video_0001.png")
	report := env.ingest(t)
	require.Equal(t, 1, report.FramesCreated)
	require.Equal(t, 2, report.MasksCreated)

	env.addFiles(t, "002", "video_0002.jpg", "saliency_colored_video_0002.jpg", "layer_gradcam_colored_video_0002.jpg")
	report = env.ingest(t)
	require.Equal(t, []string{"002"}, report.Directories)
	require.Equal(t, 1, report.FramesCreated)
	require.Equal(t, 2, report.MasksCreated)
}

func (env *testEnv) frameOf(t *testing.T, patient string) *entities.Frame {
	t.Helper()
	frame, err := env.store.Frames.FirstByPatient(t.Context(), patient)
	require.NoError(t, err)
	return frame
}

func (env *testEnv) masksOf(t *testing.T, frameID uint) []entities.Mask {
	t.Helper()
	masks, err := env.store.Masks.ListByFrame(t.Context(), frameID)
	require.NoError(t, err)
	return masks
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// requireError checks the status and the ErrorResponse shape.
func requireError(t *testing.T, rec *httptest.ResponseRecorder, code int) ErrorResponse {
	t.Helper()
	require.Equal(t, code, rec.Code, rec.Body.String())
	var resp ErrorResponse
	decode(t, rec, &resp)
	require.Equal(t, code, resp.Code)
	require.NotEmpty(t, resp.CorrelationID)
	require.NotEmpty(t, resp.Message)
	return resp
}
