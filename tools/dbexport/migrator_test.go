package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xailab/xai-review/internal/datastore"
	"github.com/xailab/xai-review/internal/datastore/entities"
)

// seedSource creates a file-backed SQLite database holding one reviewed frame.
func seedSource(t *testing.T) string {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "source.db")

	m, err := datastore.Open(t.Context(), &datastore.Config{URL: url})
	require.NoError(t, err)
	defer func() { _ = m.Close() }()
	require.NoError(t, m.Migrate(t.Context()))

	db := m.DB()
	user := entities.User{Username: "alice"}
	require.NoError(t, db.Create(&user).Error)
	frame := entities.Frame{PatientNumber: "001", Filename: "video_0001.jpg"}
	require.NoError(t, db.Create(&frame).Error)
	masks := []entities.Mask{
		{FrameID: frame.ID, Kind: entities.MaskSaliency, Filename: "saliency_colored_video_0001.jpg"},
		{FrameID: frame.ID, Kind: entities.MaskOcclusion, Filename: "occlusion_colored_video_0001.jpg"},
	}
	require.NoError(t, db.Create(&masks).Error)
	pref := entities.Preference{UserID: user.ID, FrameID: frame.ID}
	require.NoError(t, db.Create(&pref).Error)
	events := []entities.PreferenceEvent{
		{PreferenceID: pref.ID, MaskID: masks[1].ID, Rank: 1},
		{PreferenceID: pref.ID, MaskID: masks[0].ID, Rank: 2},
	}
	require.NoError(t, db.Create(&events).Error)

	return url
}

func newTestMigrator(t *testing.T, source, target string) (*Migrator, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := &Config{SourceURL: source, TargetURL: target, BatchSize: 1, AutoMigrate: true}
	require.NoError(t, cfg.Load())

	m, err := NewMigrator(t.Context(), cfg, &out)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, &out
}

func TestMigratorCopiesAllTables(t *testing.T) {
	source := seedSource(t)
	target := "sqlite://" + filepath.Join(t.TempDir(), "target.db")

	m, out := newTestMigrator(t, source, target)
	stats, err := m.Run(t.Context())
	require.NoError(t, err)

	require.Len(t, stats.Tables, len(copyOrder))
	migrated := map[string]int64{}
	for _, ts := range stats.Tables {
		migrated[ts.Name] = ts.Migrated
	}
	assert.Equal(t, map[string]int64{
		"users":             1,
		"images":            1,
		"masks":             2,
		"preferences":       1,
		"preference_events": 2,
	}, migrated)
	assert.Zero(t, stats.TotalErrors())

	require.NoError(t, NewVerifier(m.source.DB(), m.target.DB(), out).Verify(t.Context()))

	var copied []entities.PreferenceEvent
	require.NoError(t, m.target.DB().Order("id").Find(&copied).Error)
	require.Len(t, copied, 2)
	var first entities.Mask
	require.NoError(t, m.target.DB().First(&first, copied[0].MaskID).Error)
	assert.Equal(t, entities.MaskOcclusion, first.Kind)

	stats.Print(out)
	assert.Contains(t, out.String(), "preference_events")
}

func TestMigratorSecondRunSkipsExisting(t *testing.T) {
	source := seedSource(t)
	target := "sqlite://" + filepath.Join(t.TempDir(), "target.db")

	m, _ := newTestMigrator(t, source, target)
	_, err := m.Run(t.Context())
	require.NoError(t, err)

	stats, err := m.Run(t.Context())
	require.NoError(t, err)
	for _, ts := range stats.Tables {
		assert.Zero(t, ts.Migrated, ts.Name)
	}
	assert.Equal(t, int64(2), stats.Tables[2].Skipped)
}

func TestMigratorClean(t *testing.T) {
	source := seedSource(t)
	target := "sqlite://" + filepath.Join(t.TempDir(), "target.db")

	m, _ := newTestMigrator(t, source, target)
	_, err := m.Run(t.Context())
	require.NoError(t, err)

	m.cfg.Clean = true
	stats, err := m.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Tables[2].Migrated)
}

func TestVerifierDetectsMissingRows(t *testing.T) {
	source := seedSource(t)
	target := "sqlite://" + filepath.Join(t.TempDir(), "target.db")

	m, out := newTestMigrator(t, source, target)
	require.NoError(t, m.target.Migrate(t.Context()))

	err := NewVerifier(m.source.DB(), m.target.DB(), out).Verify(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record counts do not match")
}

func TestConfigLoad(t *testing.T) {
	source := seedSource(t)

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing target", Config{SourceURL: source, BatchSize: 10}, "--target is required"},
		{"same database", Config{SourceURL: source, TargetURL: source, BatchSize: 10}, "same database"},
		{"missing sqlite source", Config{SourceURL: "sqlite:///nonexistent/x.db", TargetURL: "sqlite://:memory:", BatchSize: 10}, "not found"},
		{"batch too small", Config{SourceURL: source, TargetURL: "sqlite://:memory:"}, "at least 1"},
		{"batch too large", Config{SourceURL: source, TargetURL: "sqlite://:memory:", BatchSize: maxBatchSize + 1}, "too large"},
		{"bad scheme", Config{SourceURL: source, TargetURL: "redis://x", BatchSize: 10}, "unsupported database scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSQLitePath(t *testing.T) {
	assert.Equal(t, "/data/x.db", sqlitePath("/data/x.db?_journal_mode=WAL"))
	assert.Equal(t, "x.db", sqlitePath("file:x.db?mode=rwc"))
}
