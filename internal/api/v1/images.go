package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/xailab/xai-review/internal/datastore/entities"
	"github.com/xailab/xai-review/internal/logger"
)

// MaskImage is one mask of an ImageSet. ContentType and ImageData are only
// set for inline requests.
type MaskImage struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	ImageURL    string `json:"image_url"`
	ContentType string `json:"content_type,omitempty"`
	ImageData   string `json:"image_data,omitempty"`
}

// ImageSet is a frame with its masks, ready for side-by-side review.
type ImageSet struct {
	ID            uint        `json:"id"`
	PatientNumber string      `json:"patient_nb"`
	OriginalImage string      `json:"original_image"`
	Masks         []MaskImage `json:"masks"`
}

func (c *Controller) initImageRoutes(g routeGroup) {
	g.GET("/images", c.ListImages)
	g.GET("/images/id/:id", c.GetImage)
	g.GET("/images/patient/:patient", c.ListPatientImages)
	g.GET("/images/:id/set", c.GetImageSet)
}

// fileURL builds the /file route for a stored file.
func fileURL(patient, filename string) string {
	return "/file/" + url.PathEscape(patient) + "/" + url.PathEscape(filename)
}

// parseID reads a positive numeric path parameter.
func parseID(ctx echo.Context, name string) (uint, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, raw))
	}
	return uint(id), nil
}

// wantInline reports whether the request asked for embedded mask data.
func wantInline(ctx echo.Context) bool {
	inline, _ := strconv.ParseBool(ctx.QueryParam("inline"))
	return inline
}

// orEmpty keeps empty results encoding as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ListImages returns every frame ordered by id.
func (c *Controller) ListImages(ctx echo.Context) error {
	frames, err := c.Store.Frames.List(ctx.Request().Context())
	if err != nil {
		return c.fail(ctx, err, "Failed to list images")
	}
	return ctx.JSON(http.StatusOK, orEmpty(frames))
}

// GetImage returns one frame.
func (c *Controller) GetImage(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}
	frame, err := c.Store.Frames.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return c.fail(ctx, err, "Image not found")
	}
	return ctx.JSON(http.StatusOK, frame)
}

// ListPatientImages returns the frames of one patient. An unknown patient
// yields an empty list.
func (c *Controller) ListPatientImages(ctx echo.Context) error {
	frames, err := c.Store.Frames.ListByPatient(ctx.Request().Context(), ctx.Param("patient"))
	if err != nil {
		return c.fail(ctx, err, "Failed to list patient images")
	}
	return ctx.JSON(http.StatusOK, orEmpty(frames))
}

// GetImageSet returns a frame and its masks.
func (c *Controller) GetImageSet(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return err
	}
	frame, err := c.Store.Frames.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return c.fail(ctx, err, "Image not found")
	}
	set, err := c.imageSet(ctx.Request().Context(), frame, wantInline(ctx))
	if err != nil {
		return c.fail(ctx, err, "Failed to build image set")
	}
	return ctx.JSON(http.StatusOK, set)
}

// imageSet builds, or fetches from cache, the ImageSet of frame.
func (c *Controller) imageSet(ctx context.Context, frame *entities.Frame, inline bool) (*ImageSet, error) {
	key := fmt.Sprintf("set:%d:%t", frame.ID, inline)
	if cached, found := c.imageSetCache.Get(key); found {
		if set, ok := cached.(*ImageSet); ok {
			return set, nil
		}
	}

	masks, err := c.Store.Masks.ListByFrame(ctx, frame.ID)
	if err != nil {
		return nil, err
	}

	set := &ImageSet{
		ID:            frame.ID,
		PatientNumber: frame.PatientNumber,
		OriginalImage: fileURL(frame.PatientNumber, frame.Filename),
		Masks:         make([]MaskImage, 0, len(masks)),
	}
	for i := range masks {
		m := &masks[i]
		img := MaskImage{
			ID:       strconv.FormatUint(uint64(m.ID), 10),
			Type:     string(m.Kind),
			Label:    m.Kind.Label(),
			ImageURL: fileURL(frame.PatientNumber, m.Filename),
		}
		if inline {
			content, err := c.loader.LoadInline(ctx, frame.PatientNumber, m.Filename)
			if err != nil {
				// The row stays reviewable through image_url.
				c.log.Warn("Failed to inline mask",
					logger.Uint("mask_id", m.ID),
					logger.String("filename", m.Filename),
					logger.Error(err))
			} else {
				img.ContentType = content.ContentType
				img.ImageData = content.Data
			}
		}
		set.Masks = append(set.Masks, img)
	}

	c.imageSetCache.Set(key, set, cache.DefaultExpiration)
	return set, nil
}

// NextImage returns the image set of the lowest-id frame the user has not
// yet ranked.
func (c *Controller) NextImage(ctx echo.Context) error {
	userID, err := parseID(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if _, err := c.Store.Users.GetByID(reqCtx, userID); err != nil {
		return c.fail(ctx, err, "User not found")
	}
	frame, err := c.Store.Frames.NextUnrated(reqCtx, userID)
	if err != nil {
		return c.fail(ctx, err, "No unrated images left")
	}
	set, err := c.imageSet(reqCtx, frame, wantInline(ctx))
	if err != nil {
		return c.fail(ctx, err, "Failed to build image set")
	}
	return ctx.JSON(http.StatusOK, set)
}
