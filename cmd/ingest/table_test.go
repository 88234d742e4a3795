package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ingestion "github.com/xailab/xai-review/internal/ingest"
)

func sampleReport() *ingestion.Report {
	return &ingestion.Report{
		RunID:         "run-1",
		Root:          "/data",
		Directories:   []string{"001", "002"},
		FramesCreated: 2,
		MasksCreated:  5,
		Skipped:       1,
		DurationMs:    12,
		Errors:        []ingestion.ReportError{},
	}
}

func TestRenderReportSummary(t *testing.T) {
	out := renderReport(sampleReport())

	assert.Contains(t, out, "Ingestion run-1")
	assert.Contains(t, out, "001, 002")
	assert.Contains(t, out, "Masks created")
	assert.Contains(t, out, "12ms")
	assert.NotContains(t, out, "Message")
}

func TestRenderReportErrors(t *testing.T) {
	report := sampleReport()
	report.Errors = append(report.Errors, ingestion.ReportError{
		Directory: "003",
		File:      "video_0003.jpg",
		Kind:      ingestion.KindNotFound,
		Message:   "file vanished",
	})

	out := renderReport(report)

	assert.Contains(t, out, "Message")
	assert.Contains(t, out, "video_0003.jpg")
	assert.Contains(t, out, ingestion.KindNotFound)
}

func TestRenderReportNoDirectories(t *testing.T) {
	report := sampleReport()
	report.Directories = []string{}

	assert.Contains(t, renderReport(report), "-")
}

func TestPrintReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport(), true))

	var decoded ingestion.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, 5, decoded.MasksCreated)
}

func TestExitError(t *testing.T) {
	clean := sampleReport()
	partial := sampleReport()
	partial.Errors = append(partial.Errors, ingestion.ReportError{Directory: "003", Kind: ingestion.KindNotFound})
	boom := errors.New("boom")

	assert.NoError(t, exitError(clean, nil, true))
	assert.NoError(t, exitError(partial, nil, false))
	assert.Error(t, exitError(partial, nil, true))
	assert.ErrorIs(t, exitError(partial, boom, false), boom)
	assert.Error(t, exitError(nil, nil, false))
}
