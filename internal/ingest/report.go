package ingest

import (
	"time"

	"github.com/google/uuid"
)

// Report summarizes one ingestion run. It is returned even when some
// directories failed; failures are listed in Errors.
type Report struct {
	RunID          string        `json:"run_id"`
	Root           string        `json:"root"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	DurationMs     int64         `json:"duration_ms"`
	Directories    []string      `json:"directories"`
	FramesCreated  int           `json:"frames_created"`
	FramesExisting int           `json:"frames_existing"`
	MasksCreated   int           `json:"masks_created"`
	MasksExisting  int           `json:"masks_existing"`
	Skipped        int           `json:"skipped"`
	Errors         []ReportError `json:"errors"`
}

// ReportError is one recorded failure. File is empty for directory-level
// failures.
type ReportError struct {
	Directory string `json:"directory"`
	File      string `json:"file,omitempty"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

func newReport(root string) *Report {
	return &Report{
		RunID:       uuid.NewString(),
		Root:        root,
		StartedAt:   time.Now(),
		Directories: []string{},
		Errors:      []ReportError{},
	}
}

func (r *Report) addError(directory, file string, err error) {
	r.Errors = append(r.Errors, ReportError{
		Directory: directory,
		File:      file,
		Kind:      ErrorKind(err),
		Message:   err.Error(),
	})
}

func (r *Report) finish() {
	r.FinishedAt = time.Now()
	r.DurationMs = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
}

// RecordsCreated returns the number of frames and masks inserted.
func (r *Report) RecordsCreated() int {
	return r.FramesCreated + r.MasksCreated
}

// HasErrors reports whether any directory or file failed.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// counts accumulates one directory's results so a rolled-back directory
// contributes nothing.
type counts struct {
	framesCreated, framesExisting int
	masksCreated, masksExisting   int
	skipped                       int
}

func (c *counts) addFrame(created bool) {
	if created {
		c.framesCreated++
	} else {
		c.framesExisting++
	}
}

func (c *counts) addMask(res MaskResult) {
	if res.FrameCreated {
		c.framesCreated++
	}
	if res.Created {
		c.masksCreated++
	} else {
		c.masksExisting++
	}
}

func (r *Report) merge(c counts) {
	r.FramesCreated += c.framesCreated
	r.FramesExisting += c.framesExisting
	r.MasksCreated += c.masksCreated
	r.MasksExisting += c.masksExisting
	r.Skipped += c.skipped
}
