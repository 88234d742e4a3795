package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ImageData is a frame with its file content embedded as base64.
type ImageData struct {
	ID            uint   `json:"id"`
	Filename      string `json:"filename"`
	PatientNumber string `json:"patient_nb"`
	ContentType   string `json:"content_type"`
	Data          string `json:"data"`
}

func (c *Controller) initFileRoutes(g routeGroup) {
	g.GET("/file/:patient", c.GetPatientImageData)
	g.GET("/file/:patient/:filename", c.ServeFile)
}

// ServeFile streams a stored file with a content type derived from its
// extension. Paths escaping the data root are rejected with 400.
func (c *Controller) ServeFile(ctx echo.Context) error {
	content, err := c.loader.Load(ctx.Request().Context(), ctx.Param("patient"), ctx.Param("filename"))
	if err != nil {
		return c.fail(ctx, err, "Failed to read file")
	}
	return ctx.Blob(http.StatusOK, content.ContentType, content.Data)
}

// GetPatientImageData returns the patient's frame with its bytes inline.
// A patient is expected to have one frame; the lowest id wins otherwise.
func (c *Controller) GetPatientImageData(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	patient := ctx.Param("patient")

	frame, err := c.Store.Frames.FirstByPatient(reqCtx, patient)
	if err != nil {
		return c.fail(ctx, err, "No image for patient")
	}

	content, err := c.loader.LoadInline(reqCtx, frame.PatientNumber, frame.Filename)
	if err != nil {
		return c.fail(ctx, err, "Failed to read image")
	}

	return ctx.JSON(http.StatusOK, ImageData{
		ID:            frame.ID,
		Filename:      frame.Filename,
		PatientNumber: frame.PatientNumber,
		ContentType:   content.ContentType,
		Data:          content.Data,
	})
}
