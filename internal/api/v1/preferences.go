package api

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/xailab/xai-review/internal/datastore/entities"
	"github.com/xailab/xai-review/internal/datastore/repository"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
)

// PreferenceEventInput is one ranked mask in a submission.
type PreferenceEventInput struct {
	MaskID uint `json:"mask_id"`
	Rank   int  `json:"rank"`
}

// CreatePreferenceRequest is the body of POST /preferences.
type CreatePreferenceRequest struct {
	UserID  uint                   `json:"user_id"`
	ImageID uint                   `json:"image_id"`
	Events  []PreferenceEventInput `json:"events"`
}

// PreferenceWithEvents pairs a preference with its events ordered by rank.
type PreferenceWithEvents struct {
	Preference entities.Preference        `json:"preference"`
	Events     []entities.PreferenceEvent `json:"events"`
}

func newPreferenceWithEvents(p *entities.Preference) PreferenceWithEvents {
	events := orEmpty(p.Events)
	pref := *p
	pref.Events = nil
	return PreferenceWithEvents{Preference: pref, Events: events}
}

func (c *Controller) initPreferenceRoutes(g routeGroup) {
	g.POST("/preferences", c.CreatePreference)
	g.GET("/preferences", c.ListPreferences)
	g.GET("/preferences/:id", c.GetPreference)
}

// CreatePreference stores a user's ranking of one image's masks, replacing
// any earlier ranking of the same image. Everything happens in one
// transaction; a rejected submission leaves the old ranking in place.
func (c *Controller) CreatePreference(ctx echo.Context) error {
	var req CreatePreferenceRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	events := make([]entities.PreferenceEvent, len(req.Events))
	maskIDs := make([]uint, 0, len(req.Events))
	for i, e := range req.Events {
		events[i] = entities.PreferenceEvent{MaskID: e.MaskID, Rank: e.Rank}
		maskIDs = append(maskIDs, e.MaskID)
	}
	slices.Sort(maskIDs)
	maskIDs = slices.Compact(maskIDs)

	var pref *entities.Preference
	err := c.Store.Transaction(ctx.Request().Context(), func(tx *repository.Store) error {
		txCtx := ctx.Request().Context()
		if _, err := tx.Users.GetByID(txCtx, req.UserID); err != nil {
			return err
		}
		if _, err := tx.Frames.GetByID(txCtx, req.ImageID); err != nil {
			return err
		}

		if len(maskIDs) > 0 {
			owned, err := tx.Masks.CountOwned(txCtx, req.ImageID, maskIDs)
			if err != nil {
				return err
			}
			if owned != int64(len(maskIDs)) {
				return errors.New(fmt.Errorf("%w: image %d", errMaskNotOwned, req.ImageID)).
					Component("api").
					Category(errors.CategoryValidation).
					Context("owned", owned).
					Context("requested", len(maskIDs)).
					Build()
			}
		}

		var err error
		pref, err = tx.Preferences.Replace(txCtx, req.UserID, req.ImageID, events)
		return err
	})
	if err != nil {
		return c.fail(ctx, err, "Failed to save preference")
	}

	// Replace returns events in submission order.
	slices.SortStableFunc(pref.Events, func(a, b entities.PreferenceEvent) int {
		return a.Rank - b.Rank
	})

	c.log.Info("Preference saved",
		logger.Uint("preference_id", pref.ID),
		logger.Uint("user_id", req.UserID),
		logger.Uint("image_id", req.ImageID),
		logger.Int("events", len(pref.Events)))

	return ctx.JSON(http.StatusCreated, newPreferenceWithEvents(pref))
}

// ListPreferences returns every preference, newest first.
func (c *Controller) ListPreferences(ctx echo.Context) error {
	prefs, err := c.Store.Preferences.List(ctx.Request().Context())
	if err != nil {
		return c.fail(ctx, err, "Failed to list preferences")
	}
	out := make([]PreferenceWithEvents, len(prefs))
	for i := range prefs {
		out[i] = newPreferenceWithEvents(&prefs[i])
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetPreference returns one preference.
func (c *Controller) GetPreference(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}
	pref, err := c.Store.Preferences.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return c.fail(ctx, err, "Preference not found")
	}
	return ctx.JSON(http.StatusOK, newPreferenceWithEvents(pref))
}
