package uploader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/images"
	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/viam"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options routes uploads and controls how the batch runs
type Options struct {
	PartID     string
	OrgID      string
	LocationID string
	DatasetID  string

	// Concurrency is the maximum number of files in flight. 1 keeps the
	// batch strictly sequential in scan order.
	Concurrency int
	// ContinueOnError records per-file failures and keeps going instead of
	// aborting the batch at the first one.
	ContinueOnError bool
	// Limiter paces uploads when set
	Limiter *rate.Limiter
}

// Status is what happened to one scanned file
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusFailed   Status = "failed"
	// StatusSkipped files were never started because the batch aborted
	StatusSkipped Status = "skipped"
)

// Outcome is the per-file result of a batch
type Outcome struct {
	Path     string
	Status   Status
	BinaryID viam.BinaryID
	Err      error
}

// Result describes one batch run
type Result struct {
	Outcomes   []Outcome
	BinaryIDs  []viam.BinaryID
	Failures   []Outcome
	Skipped    int
	Associated bool
}

func newResult(outcomes []Outcome) *Result {
	r := &Result{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case StatusUploaded:
			r.BinaryIDs = append(r.BinaryIDs, o.BinaryID)
		case StatusFailed:
			r.Failures = append(r.Failures, o)
		case StatusSkipped:
			r.Skipped++
		}
	}
	return r
}

// Uploader turns a directory of images into dataset members
type Uploader struct {
	client    viam.Client
	opts      Options
	normalize func(path string) ([]byte, error)
}

// New creates an uploader over an established client
func New(client viam.Client, opts Options) *Uploader {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Uploader{
		client:    client,
		opts:      opts,
		normalize: images.NormalizeFile,
	}
}

// UploadFile normalizes one image, uploads it and returns its binary id
func (u *Uploader) UploadFile(ctx context.Context, path string) (viam.BinaryID, error) {
	if u.opts.Limiter != nil {
		if err := u.opts.Limiter.Wait(ctx); err != nil {
			return viam.BinaryID{}, err
		}
	}

	data, err := u.normalize(path)
	if err != nil {
		return viam.BinaryID{}, err
	}

	fileID, err := u.client.FileUpload(ctx, u.opts.PartID, images.FileExtension, data)
	if err != nil {
		return viam.BinaryID{}, &UploadError{Path: path, Err: err}
	}

	slog.Info("Uploaded image", "path", path, "file_id", fileID, "bytes", len(data))

	return viam.BinaryID{
		FileID:         fileID,
		OrganizationID: u.opts.OrgID,
		LocationID:     u.opts.LocationID,
	}, nil
}

// UploadAll uploads paths with bounded concurrency and returns one outcome
// per path, in the same order. Without ContinueOnError the first failure
// stops any further files from starting and is returned as the error.
func (u *Uploader) UploadAll(ctx context.Context, paths []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(paths))
	for i, path := range paths {
		outcomes[i] = Outcome{Path: path, Status: StatusSkipped}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.Concurrency)

	slog.Info("Processing images", "count", len(paths), "concurrency", u.opts.Concurrency)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// a slot can free up after the batch was aborted
			if gctx.Err() != nil {
				return nil
			}

			slog.Debug("Processing image", "path", path, "progress", fmt.Sprintf("%d/%d", i+1, len(paths)))

			id, err := u.UploadFile(gctx, path)
			if err != nil {
				outcomes[i].Status = StatusFailed
				outcomes[i].Err = err
				if !u.opts.ContinueOnError {
					return err
				}
				slog.Warn("Image failed, continuing", "path", path, "error", err)
				return nil
			}
			outcomes[i].Status = StatusUploaded
			outcomes[i].BinaryID = id
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return outcomes, err
}

// Associate adds every id to the configured dataset in one call
func (u *Uploader) Associate(ctx context.Context, ids []viam.BinaryID) error {
	slog.Info("Adding images to dataset", "dataset_id", u.opts.DatasetID, "count", len(ids))

	if err := u.client.AddBinaryDataToDatasetByIDs(ctx, ids, u.opts.DatasetID); err != nil {
		return &AssociationError{DatasetID: u.opts.DatasetID, Count: len(ids), Err: err}
	}
	return nil
}

// Run scans dir, uploads every image and associates the results with the
// dataset. Uploads are never rolled back, so on error the returned Result
// still lists what reached Viam.
func (u *Uploader) Run(ctx context.Context, dir string) (*Result, error) {
	paths, err := images.Scan(dir)
	if err != nil {
		return nil, err
	}

	outcomes, err := u.UploadAll(ctx, paths)
	result := newResult(outcomes)
	if err != nil {
		if len(result.BinaryIDs) > 0 {
			slog.Warn("Batch aborted, uploaded images were not added to the dataset", "uploaded", len(result.BinaryIDs))
		}
		return result, err
	}

	if len(result.BinaryIDs) == 0 {
		slog.Warn("No images uploaded, skipping dataset association", "dir", dir)
	} else {
		if err := u.Associate(ctx, result.BinaryIDs); err != nil {
			return result, err
		}
		result.Associated = true
	}

	if len(result.Failures) > 0 {
		return result, &BatchError{Failed: len(result.Failures), Total: len(paths)}
	}
	return result, nil
}
