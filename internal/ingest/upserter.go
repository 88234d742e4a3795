package ingest

import (
	"context"

	"github.com/xailab/xai-review/internal/datastore/entities"
	"github.com/xailab/xai-review/internal/datastore/repository"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
)

// FrameResult is the outcome of UpsertFrame.
type FrameResult struct {
	Frame   *entities.Frame
	Created bool
}

// MaskResult is the outcome of UpsertMask. FrameCreated is set when the
// mask's frame did not exist and was created implicitly.
type MaskResult struct {
	Mask         *entities.Mask
	Created      bool
	FrameCreated bool
}

// Upserter get-or-creates frames and masks. Repeated or concurrent calls
// with the same input never produce duplicate rows: inserts are guarded by
// the tables' unique constraints and a lost race falls back to a lookup.
type Upserter struct {
	frames repository.FrameRepository
	masks  repository.MaskRepository
	log    logger.Logger
}

// NewUpserter creates an Upserter on the store's repositories.
func NewUpserter(store *repository.Store) *Upserter {
	return &Upserter{
		frames: store.Frames,
		masks:  store.Masks,
		log:    GetLogger().Module("upsert"),
	}
}

// UpsertFrame returns the frame for (patient, filename), creating it if needed.
func (u *Upserter) UpsertFrame(ctx context.Context, patient, filename string) (FrameResult, error) {
	frame, err := u.frames.GetByPatientAndFilename(ctx, patient, filename)
	switch {
	case err == nil:
		u.log.Debug("Frame already stored",
			logger.String("patient", patient),
			logger.String("filename", filename))
		return FrameResult{Frame: frame}, nil
	case !errors.Is(err, repository.ErrFrameNotFound):
		return FrameResult{}, storageError(err, "find-frame")
	}

	frame = &entities.Frame{PatientNumber: patient, Filename: filename}
	created, err := u.frames.CreateIfAbsent(ctx, frame)
	if err != nil {
		return FrameResult{}, storageError(err, "insert-frame")
	}
	if !created {
		// Another run inserted it between lookup and insert.
		frame, err = u.frames.GetByPatientAndFilename(ctx, patient, filename)
		if err != nil {
			return FrameResult{}, storageError(err, "find-frame")
		}
		return FrameResult{Frame: frame}, nil
	}

	u.log.Debug("Frame created",
		logger.String("patient", patient),
		logger.String("filename", filename),
		logger.Uint("id", frame.ID))
	return FrameResult{Frame: frame, Created: true}, nil
}

// UpsertMask returns the mask for (patient, filename, kind). The owning
// frame is derived from the filename and created when it is not stored yet,
// since directory order may yield a mask before its frame.
func (u *Upserter) UpsertMask(ctx context.Context, patient, filename string, kind entities.MaskKind) (MaskResult, error) {
	frameName, err := DeriveFrameFilename(filename)
	if err != nil {
		return MaskResult{}, err
	}

	frameResult, err := u.UpsertFrame(ctx, patient, frameName)
	if err != nil {
		return MaskResult{}, err
	}
	if frameResult.Created {
		u.log.Info("Created frame implicitly from mask",
			logger.String("patient", patient),
			logger.String("frame", frameName),
			logger.String("mask", filename))
	}
	frameID := frameResult.Frame.ID

	mask, err := u.masks.GetByIdentity(ctx, frameID, kind, filename)
	switch {
	case err == nil:
		u.log.Debug("Mask already stored",
			logger.String("filename", filename),
			logger.String("kind", string(kind)))
		return MaskResult{Mask: mask, FrameCreated: frameResult.Created}, nil
	case !errors.Is(err, repository.ErrMaskNotFound):
		return MaskResult{}, storageError(err, "find-mask")
	}

	mask = &entities.Mask{FrameID: frameID, Kind: kind, Filename: filename}
	created, err := u.masks.CreateIfAbsent(ctx, mask)
	if err != nil {
		return MaskResult{}, storageError(err, "insert-mask")
	}
	if !created {
		mask, err = u.masks.GetByIdentity(ctx, frameID, kind, filename)
		if err != nil {
			return MaskResult{}, storageError(err, "find-mask")
		}
		return MaskResult{Mask: mask, FrameCreated: frameResult.Created}, nil
	}

	return MaskResult{Mask: mask, Created: true, FrameCreated: frameResult.Created}, nil
}
