package ingest

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xailab/xai-review/internal/observability/metrics"
)

// statusRecorder keeps the statuses it was given.
type statusRecorder struct {
	noopRecorder
	mu       sync.Mutex
	statuses []string
	errors   []string
}

func (r *statusRecorder) RecordRun(status string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) RecordError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}

func newTestService(t *testing.T, env *testEnv, opts ...Option) *Service {
	t.Helper()
	lock := filepath.Join(t.TempDir(), "ingest.lock")
	return NewService(env.fs, env.store, 3, append([]Option{WithLockFile(lock)}, opts...)...)
}

func TestServiceRunInvokesHooks(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addFiles(t, "001", "video_0001.jpg", "occlusion_colored_video_0001.jpg")

	var hookCalls atomic.Int32
	svc := newTestService(t, env, OnRecordsCreated(func(r *Report) {
		hookCalls.Add(1)
	}))

	report, err := svc.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, report.RecordsCreated())
	assert.Equal(t, int32(1), hookCalls.Load())

	// Nothing new: the hook stays quiet.
	report, err = svc.Run(t.Context())
	require.NoError(t, err)
	assert.Empty(t, report.Directories)
	assert.Equal(t, int32(1), hookCalls.Load())
}

func TestServiceRecordsMetrics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addFiles(t, "001", "video_0001.jpg", "gradient_shap_colored_video_0001.jpg", "readme.md")

	m, err := metrics.NewIngestMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	svc := newTestService(t, env, WithRecorder(m))
	_, err = svc.Run(t.Context())
	require.NoError(t, err)
	assert.Zero(t, m.RunsInProgress())
}

func TestServiceLockHeldElsewhere(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addFiles(t, "001", "video_0001.jpg")

	rec := &statusRecorder{}
	svc := newTestService(t, env, WithRecorder(rec))

	other := flock.New(svc.LockPath())
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = other.Unlock() })

	report, err := svc.Run(t.Context())
	require.ErrorIs(t, err, ErrIngestionInProgress)
	assert.Nil(t, report)

	frames, _ := env.counts(t)
	assert.Zero(t, frames)

	require.NoError(t, other.Unlock())
	_, err = svc.Run(t.Context())
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{metrics.StatusSuccess}, rec.statuses, "the rejected run is not recorded")
	assert.Empty(t, rec.errors)
}

func TestServiceConcurrentRuns(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	for _, p := range []string{"001", "002", "003"} {
		env.addFiles(t, p, "video_0001.jpg", "saliency_colored_video_0001.jpg")
	}
	svc := newTestService(t, env)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		seen    = make(map[*Report]bool)
	)
	for range callers {
		wg.Go(func() {
			report, err := svc.Run(t.Context())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if !seen[report] {
				seen[report] = true
				created += report.RecordsCreated()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 6, created)
	frames, masks := env.counts(t)
	assert.Equal(t, int64(3), frames)
	assert.Equal(t, int64(3), masks)
}

func TestServiceRunPatients(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addFiles(t, "001", "video_0001.jpg")
	svc := newTestService(t, env)

	_, err := svc.Run(t.Context())
	require.NoError(t, err)

	// 001 is at the high-water mark, so only a fixed run revisits it.
	env.addFiles(t, "001", "integrated_gradients_colored_video_0001.jpg")
	report, err := svc.Run(t.Context())
	require.NoError(t, err)
	assert.Zero(t, report.RecordsCreated())

	report, err = svc.RunPatients(t.Context(), []string{"001"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.MasksCreated)
	assert.Equal(t, 1, report.FramesExisting)
}

func TestServiceRunPatientsRequiresNames(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := newTestService(t, env)

	_, err := svc.RunPatients(t.Context(), []string{" ", ""})
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestServiceRunPatientsRejectsNonPlainNames(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.addFiles(t, "004", "video_0004_0000.jpg", "occlusion_colored_video_0004_0000.jpg")
	env.addFiles(t, "", "video_loose.jpg")
	svc := newTestService(t, env)

	_, err := svc.Run(t.Context())
	require.NoError(t, err)

	for _, names := range [][]string{
		{"./004"},
		{"004/"},
		{"x/../004"},
		{"."},
		{".."},
		{"004", "./004"},
	} {
		report, err := svc.RunPatients(t.Context(), names)
		require.ErrorIs(t, err, ErrInvalidPath, "names %q", names)
		assert.Nil(t, report)
	}

	frames, masks := env.counts(t)
	assert.Equal(t, int64(1), frames)
	assert.Equal(t, int64(1), masks)

	stored, err := env.store.Frames.List(t.Context())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "004", stored[0].PatientNumber)
}

func TestRunStatus(t *testing.T) {
	t.Parallel()
	assert.Equal(t, metrics.StatusFailed, RunStatus(nil, ErrStorage))
	assert.Equal(t, metrics.StatusSuccess, RunStatus(&Report{}, nil))
	assert.Equal(t, metrics.StatusPartial, RunStatus(&Report{Errors: []ReportError{{Kind: KindStorage}}}, nil))
}
