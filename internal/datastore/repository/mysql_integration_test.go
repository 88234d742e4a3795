//go:build integration

package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/xailab/xai-review/internal/datastore"
	"github.com/xailab/xai-review/internal/datastore/entities"
)

// TestMySQLDialect runs the dialect-specific queries against a real MySQL.
func TestMySQLDialect(t *testing.T) {
	ctx := t.Context()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("xai"),
		tcmysql.WithUsername("review"),
		tcmysql.WithPassword("review"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	m, err := datastore.Open(ctx, &datastore.Config{
		URL:             fmt.Sprintf("mysql://review:review@%s:%s/xai", host, port.Port()),
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Migrate(ctx))
	require.Equal(t, datastore.DialectMySQL, m.Dialect())

	s := NewStore(m.DB(), m.Dialect())

	for _, patient := range []string{"001", "003", "x12"} {
		created, err := s.Frames.CreateIfAbsent(ctx, &entities.Frame{PatientNumber: patient, Filename: "video_" + patient + ".jpg"})
		require.NoError(t, err)
		require.True(t, created)
	}

	created, err := s.Frames.CreateIfAbsent(ctx, &entities.Frame{PatientNumber: "001", Filename: "video_001.jpg"})
	require.NoError(t, err)
	assert.False(t, created, "duplicate insert is a no-op")

	mark, ok, err := s.Frames.HighWaterMark(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "003", mark)

	frame, err := s.Frames.FirstByPatient(ctx, "001")
	require.NoError(t, err)
	user, err := s.Users.Create(ctx, "mysql-reviewer")
	require.NoError(t, err)
	mask := &entities.Mask{FrameID: frame.ID, Kind: entities.MaskGradientShap, Filename: "gradient_shap_colored_video_001.jpg"}
	_, err = s.Masks.CreateIfAbsent(ctx, mask)
	require.NoError(t, err)

	pref, err := s.Preferences.Replace(ctx, user.ID, frame.ID, []entities.PreferenceEvent{{MaskID: mask.ID, Rank: 1}})
	require.NoError(t, err)
	got, err := s.Preferences.GetByID(ctx, pref.ID)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
}
