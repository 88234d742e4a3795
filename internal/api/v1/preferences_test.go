package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xailab/xai-review/internal/datastore/entities"
)

// prefFixture is a seeded database with one reviewer.
type prefFixture struct {
	env    *testEnv
	user   *entities.User
	first  *entities.Frame
	second *entities.Frame
	masks1 []entities.Mask
	masks2 []entities.Mask
}

func newPrefFixture(t *testing.T) *prefFixture {
	t.Helper()
	env := newTestEnv(t)
	env.seedTwoPatients(t)

	user, err := env.store.Users.Create(t.Context(), "alice")
	require.NoError(t, err)

	f := &prefFixture{env: env, user: user, first: env.frameOf(t, "001"), second: env.frameOf(t, "002")}
	f.masks1 = env.masksOf(t, f.first.ID)
	f.masks2 = env.masksOf(t, f.second.ID)
	require.Len(t, f.masks1, 2)
	require.Len(t, f.masks2, 2)
	return f
}

func TestCreatePreference(t *testing.T) {
	t.Parallel()
	f := newPrefFixture(t)

	rec := f.env.do(t, http.MethodPost, "/preferences", CreatePreferenceRequest{
		UserID:  f.user.ID,
		ImageID: f.first.ID,
		Events: []PreferenceEventInput{
			{MaskID: f.masks1[0].ID, Rank: 2},
			{MaskID: f.masks1[1].ID, Rank: 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got PreferenceWithEvents
	decode(t, rec, &got)
	assert.NotZero(t, got.Preference.ID)
	assert.Equal(t, f.user.ID, got.Preference.UserID)
	assert.Equal(t, f.first.ID, got.Preference.FrameID)
	assert.Nil(t, got.Preference.Events, "events are only listed once")
	require.Len(t, got.Events, 2)
	assert.Equal(t, 1, got.Events[0].Rank)
	assert.Equal(t, f.masks1[1].ID, got.Events[0].MaskID)
	assert.Equal(t, got.Preference.ID, got.Events[0].PreferenceID)
	assert.Equal(t, f.masks1[0].ID, got.Events[1].MaskID)
}

func TestCreatePreferenceReplacesPrevious(t *testing.T) {
	t.Parallel()
	f := newPrefFixture(t)

	for _, mask := range f.masks1 {
		rec := f.env.do(t, http.MethodPost, "/api/v1/preferences", CreatePreferenceRequest{
			UserID:  f.user.ID,
			ImageID: f.first.ID,
			Events:  []PreferenceEventInput{{MaskID: mask.ID, Rank: 1}},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	var prefs []PreferenceWithEvents
	decode(t, f.env.do(t, http.MethodGet, "/preferences", nil), &prefs)
	require.Len(t, prefs, 1)
	require.Len(t, prefs[0].Events, 1)
	assert.Equal(t, f.masks1[1].ID, prefs[0].Events[0].MaskID)
}

func TestCreatePreferenceRejectsForeignMask(t *testing.T) {
	t.Parallel()
	f := newPrefFixture(t)

	rec := f.env.do(t, http.MethodPost, "/preferences", CreatePreferenceRequest{
		UserID:  f.user.ID,
		ImageID: f.first.ID,
		Events:  []PreferenceEventInput{{MaskID: f.masks1[0].ID, Rank: 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var original PreferenceWithEvents
	decode(t, rec, &original)

	rec = f.env.do(t, http.MethodPost, "/preferences", CreatePreferenceRequest{
		UserID:  f.user.ID,
		ImageID: f.first.ID,
		Events: []PreferenceEventInput{
			{MaskID: f.masks1[1].ID, Rank: 1},
			{MaskID: f.masks2[0].ID, Rank: 2},
		},
	})
	requireError(t, rec, http.StatusBadRequest)

	// The rejected submission rolled back; the first ranking is intact.
	rec = f.env.do(t, http.MethodGet, fmt.Sprintf("/preferences/%d", original.Preference.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var kept PreferenceWithEvents
	decode(t, rec, &kept)
	require.Len(t, kept.Events, 1)
	assert.Equal(t, f.masks1[0].ID, kept.Events[0].MaskID)

	requireError(t, f.env.do(t, http.MethodPost, "/preferences", CreatePreferenceRequest{
		UserID:  f.user.ID,
		ImageID: f.first.ID,
		Events:  []PreferenceEventInput{{MaskID: 9999, Rank: 1}},
	}), http.StatusBadRequest)
}

func TestCreatePreferenceDuplicateMaskIDs(t *testing.T) {
	t.Parallel()
	f := newPrefFixture(t)

	rec := f.env.do(t, http.MethodPost, "/preferences", CreatePreferenceRequest{
		UserID:  f.user.ID,
		ImageID: f.first.ID,
		Events: []PreferenceEventInput{
			{MaskID: f.masks1[0].ID, Rank: 1},
			{MaskID: f.masks1[0].ID, Rank: 2},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got PreferenceWithEvents
	decode(t, rec, &got)
	assert.Len(t, got.Events, 2)
}

func TestCreatePreferenceMissingReferences(t *testing.T) {
	t.Parallel()
	f := newPrefFixture(t)

	requireError(t, f.env.do(t, http.MethodPost, "/preferences", CreatePreferenceRequest{
		UserID:  999,
		ImageID: f.first.ID,
	}), http.StatusNotFound)

	requireError(t, f.env.do(t, http.MethodPost, "/preferences", CreatePreferenceRequest{
		UserID:  f.user.ID,
		ImageID: 999,
	}), http.StatusNotFound)

	var prefs []PreferenceWithEvents
	decode(t, f.env.do(t, http.MethodGet, "/preferences", nil), &prefs)
	assert.Empty(t, prefs)
}

func TestCreatePreferenceWithoutEvents(t *testing.T) {
	t.Parallel()
	f := newPrefFixture(t)

	rec := f.env.do(t, http.MethodPost, "/preferences", CreatePreferenceRequest{
		UserID:  f.user.ID,
		ImageID: f.second.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"events":[]`)
}

func TestListPreferencesNewestFirst(t *testing.T) {
	t.Parallel()
	f := newPrefFixture(t)

	for _, frame := range []*entities.Frame{f.first, f.second} {
		rec := f.env.do(t, http.MethodPost, "/preferences", CreatePreferenceRequest{UserID: f.user.ID, ImageID: frame.ID})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var prefs []PreferenceWithEvents
	decode(t, f.env.do(t, http.MethodGet, "/preferences", nil), &prefs)
	require.Len(t, prefs, 2)
	assert.Equal(t, f.second.ID, prefs[0].Preference.FrameID)
	assert.Equal(t, f.first.ID, prefs[1].Preference.FrameID)
}

func TestGetPreferenceErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	requireError(t, env.do(t, http.MethodGet, "/preferences/999", nil), http.StatusNotFound)
	requireError(t, env.do(t, http.MethodGet, "/preferences/x", nil), http.StatusBadRequest)
}
