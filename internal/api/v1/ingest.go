package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xailab/xai-review/internal/ingest"
	"github.com/xailab/xai-review/internal/logger"
)

// IngestRequest is the optional body of POST /api/v1/ingest. Without
// patients the run is incremental.
type IngestRequest struct {
	Patients []string `json:"patients"`
}

func (c *Controller) initIngestRoutes() {
	c.Group.POST("/ingest", c.TriggerIngest, c.ingestMiddleware...)
}

// TriggerIngest runs ingestion and returns its report. A run that recorded
// per-directory errors still answers 200; the errors are in the report.
func (c *Controller) TriggerIngest(ctx echo.Context) error {
	var req IngestRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	// A client hanging up must not roll back a run other triggers may share.
	runCtx := context.WithoutCancel(ctx.Request().Context())

	var (
		report *ingest.Report
		err    error
	)
	if len(req.Patients) > 0 {
		report, err = c.Ingest.RunPatients(runCtx, req.Patients)
	} else {
		report, err = c.Ingest.Run(runCtx)
	}
	if err != nil {
		return c.fail(ctx, err, "Ingestion failed")
	}

	c.log.Info("Ingestion triggered over HTTP",
		logger.String("run_id", report.RunID),
		logger.Int("records_created", report.RecordsCreated()),
		logger.Int("errors", len(report.Errors)))

	return ctx.JSON(http.StatusOK, report)
}
