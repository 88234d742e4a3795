package ingest

import (
	"context"
	"time"

	"github.com/xailab/xai-review/internal/datastore/repository"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/securefs"
)

// Pipeline runs one ingestion pass: source -> classify -> upsert.
// Directories and files are processed sequentially.
type Pipeline struct {
	fs     *securefs.SecureFS
	store  *repository.Store
	source DirectorySource
	log    logger.Logger
}

// NewPipeline creates a pipeline reading from sfs and writing to store.
func NewPipeline(sfs *securefs.SecureFS, store *repository.Store, source DirectorySource) *Pipeline {
	return &Pipeline{
		fs:     sfs,
		store:  store,
		source: source,
		log:    GetLogger().Module("pipeline"),
	}
}

// Run processes every directory the source selects.
//
// Each directory is written in its own transaction. A storage failure rolls
// that directory back and is recorded; a mask without a recoverable frame
// name is recorded and skipped; listing failures skip the directory. Run
// returns an error only when the source itself fails, or with the partial
// report when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := newReport(p.fs.BaseDir())
	log := p.log.WithContext(ctx).With(logger.String("run_id", report.RunID))

	dirs, err := p.source.DirsToProcess(ctx)
	if err != nil {
		log.Error("Directory discovery failed", logger.Error(err))
		return nil, err
	}

	log.Info("Ingestion started",
		logger.String("root", report.Root),
		logger.Int("directories", len(dirs)))

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			report.addError(dir.Name, "", err)
			report.finish()
			log.Warn("Ingestion cancelled", logger.Error(err))
			return report, err
		}

		report.Directories = append(report.Directories, dir.Name)
		p.processDirectory(ctx, dir, report, log)
	}

	report.finish()
	log.Info("Ingestion finished",
		logger.Int("frames_created", report.FramesCreated),
		logger.Int("masks_created", report.MasksCreated),
		logger.Int("skipped", report.Skipped),
		logger.Int("errors", len(report.Errors)),
		logger.Duration("duration", time.Duration(report.DurationMs)*time.Millisecond))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// processDirectory ingests one directory and records its outcome in report.
func (p *Pipeline) processDirectory(ctx context.Context, dir DirectoryCandidate, report *Report, log logger.Logger) {
	files, err := p.listFiles(dir)
	if err != nil {
		log.Warn("Skipping unreadable directory",
			logger.String("directory", dir.Name),
			logger.Error(err))
		report.addError(dir.Name, "", err)
		return
	}

	var c counts
	var fileErrors []ReportError

	err = p.store.Transaction(ctx, func(tx *repository.Store) error {
		upserter := NewUpserter(tx)

		for _, name := range files {
			if err := ctx.Err(); err != nil {
				return err
			}

			kind := Classify(name)
			switch kind.Class {
			case ClassOriginalFrame:
				res, err := upserter.UpsertFrame(ctx, dir.Name, name)
				if err != nil {
					return err
				}
				c.addFrame(res.Created)

			case ClassDerivedMask:
				res, err := upserter.UpsertMask(ctx, dir.Name, name, kind.Mask)
				if errors.Is(err, ErrAmbiguousOrigin) {
					log.Warn("Skipping mask without source frame name",
						logger.String("directory", dir.Name),
						logger.String("file", name))
					fileErrors = append(fileErrors, ReportError{
						Directory: dir.Name,
						File:      name,
						Kind:      KindAmbiguousOrigin,
						Message:   err.Error(),
					})
					continue
				}
				if err != nil {
					return err
				}
				c.addMask(res)

			default:
				log.Debug("Skipping unrecognized file",
					logger.String("directory", dir.Name),
					logger.String("file", name))
				c.skipped++
			}
		}
		return nil
	})

	report.Errors = append(report.Errors, fileErrors...)
	if err != nil {
		log.Error("Directory rolled back",
			logger.String("directory", dir.Name),
			logger.Error(err))
		if !errors.Is(err, ErrStorage) && ctx.Err() == nil {
			err = storageError(err, "transaction")
		}
		report.addError(dir.Name, "", err)
		return
	}

	report.merge(c)
	log.Debug("Directory ingested",
		logger.String("directory", dir.Name),
		logger.Int("files", len(files)),
		logger.Int("frames_created", c.framesCreated),
		logger.Int("masks_created", c.masksCreated))
}

// listFiles returns the names of regular files directly inside dir.
func (p *Pipeline) listFiles(dir DirectoryCandidate) ([]string, error) {
	if !ValidPatientName(dir.Name) {
		return nil, invalidPatientError(dir.Name)
	}
	entries, err := p.fs.ReadDir(dir.Name)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidPath) {
			return nil, err
		}
		return nil, filesystemError(err, dir.Name)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}
