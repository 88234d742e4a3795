package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo)

	log.Debug("hidden")
	log.Info("shown", String("patient", "042"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "patient=042")
}

func TestModuleNamesNest(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug).Module("ingest").Module("scanner")

	log.Debug("listing root")

	assert.Contains(t, buf.String(), "module=ingest.scanner")
}

func TestWithAccumulatesFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogLogger(&buf, LogLevelInfo)
	runLog := base.With(String("run_id", "abc"))

	runLog.Info("first")
	base.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run_id=abc")
	assert.NotContains(t, lines[1], "run_id")
}

func TestWithContextAddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo)

	log.WithContext(WithTraceID(t.Context(), "req-1")).Info("handled")

	assert.Contains(t, buf.String(), "trace_id=req-1")
}

func TestCentralLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path},
		ModuleLevels: map[string]string{"datastore": "trace"},
	})
	require.NoError(t, err)

	cl.Module("datastore").Trace("sql query", Int64("rows_affected", 1))
	cl.Module("api").Debug("dropped")
	cl.Module("api").Info("kept", Duration("elapsed", 1500*time.Millisecond))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "TRACE", first["level"])
	assert.Equal(t, "datastore", first["module"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "kept", second["msg"])
	assert.Equal(t, "1.5s", second["elapsed"])
}

func TestModuleLevelInheritsFromParent(t *testing.T) {
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "warn",
		Console:      &ConsoleOutput{Enabled: false},
		ModuleLevels: map[string]string{"ingest": "debug"},
	})
	require.NoError(t, err)

	assert.Equal(t, parseLogLevel("debug"), cl.moduleLevelLocked("ingest.pipeline"))
	assert.Equal(t, parseLogLevel("warn"), cl.moduleLevelLocked("api"))
}

func TestInvalidTimezone(t *testing.T) {
	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestRedactSensitiveData(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://app:s3cret@db:5432/xai", "postgres://app:[REDACTED]@db:5432/xai"},
		{"app:s3cret@tcp(db:3306)/xai", "app:[REDACTED]@tcp(db:3306)/xai"},
		{"host=db password=s3cret dbname=xai", "host=db password=[REDACTED] dbname=xai"},
		{"file:data/xai.db", "file:data/xai.db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactSensitiveData(tt.in))
	}
}
