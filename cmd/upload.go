package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/config"
	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/report"
	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/uploader"
	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/viam"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// connect is swapped out in tests
var connect = func(ctx context.Context, apiKey, apiKeyID string) (viam.Client, error) {
	return viam.Connect(ctx, apiKey, apiKeyID)
}

func newUploadCmd() *cobra.Command {
	var configPath string
	var concurrency int
	var onError string
	var uploadRate float64
	var reportPath string

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload every image in the configured directory and add them to the dataset",
		Long: `Scans image_directory for .png, .jpg and .jpeg files, flattens any alpha
channel onto white, re-encodes each image as JPEG and uploads it to the
configured part. Once every file is uploaded the resulting binary ids are
added to dataset_id in a single call.

By default the first failure aborts the run before the dataset call. Files
already uploaded stay in Viam. Use --on-error continue to skip bad files
and still add the rest to the dataset.

If no image is uploaded at all the dataset call is skipped with a warning.`,
		Example: `  # Upload using ./configuration.json
  viam-dataset-uploader upload

  # Four uploads in flight, keep going past bad files, write a report
  viam-dataset-uploader upload --concurrency 4 --on-error continue --report reports/run.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("concurrency") {
				cfg.Concurrency = concurrency
			}
			if flags.Changed("on-error") {
				cfg.OnError = onError
			}
			if flags.Changed("rate") {
				cfg.UploadRate = uploadRate
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if reportPath != "" {
				if err := report.CheckPath(reportPath); err != nil {
					return err
				}
			}

			return executeUpload(cmd.Context(), cmd.OutOrStdout(), cfg, reportPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file (JSON or YAML)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Maximum uploads in flight (1 uploads strictly in filename order)")
	cmd.Flags().StringVar(&onError, "on-error", config.OnErrorAbort, "What to do when an image fails: abort or continue")
	cmd.Flags().Float64Var(&uploadRate, "rate", 0, "Maximum uploads per second (0 for unlimited)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a run report (.yaml, .json or .parquet)")

	return cmd
}

func executeUpload(ctx context.Context, out io.Writer, cfg config.Config, reportPath string) (err error) {
	runID := uuid.NewString()
	startedAt := time.Now()
	slog.Info("Starting upload run", "run_id", runID, "dataset_id", cfg.DatasetID, "dir", cfg.ImageDirectory)

	var result *uploader.Result
	if reportPath != "" {
		defer func() {
			r := report.New(runID, reportConfig(cfg), startedAt, result, err)
			if writeErr := report.Write(reportPath, r); writeErr != nil {
				slog.Error("Failed to write report", "path", reportPath, "error", writeErr)
				if err == nil {
					err = writeErr
				}
			}
		}()
	}

	client, err := connect(ctx, cfg.APIKey, cfg.APIKeyID)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			slog.Warn("Failed to close Viam session", "error", closeErr)
		}
	}()
	fmt.Fprintln(out, client)

	opts := uploader.Options{
		PartID:          cfg.PartID,
		OrgID:           cfg.OrgID,
		LocationID:      cfg.LocationID,
		DatasetID:       cfg.DatasetID,
		Concurrency:     cfg.Concurrency,
		ContinueOnError: cfg.OnError == config.OnErrorContinue,
	}
	if cfg.UploadRate > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.UploadRate), 1)
	}

	result, err = uploader.New(client, opts).Run(ctx, cfg.ImageDirectory)
	if result != nil {
		printSummary(out, runID, cfg.DatasetID, result)
	}
	return err
}

func reportConfig(cfg config.Config) report.Config {
	return report.Config{
		DatasetID:      cfg.DatasetID,
		PartID:         cfg.PartID,
		OrgID:          cfg.OrgID,
		LocationID:     cfg.LocationID,
		ImageDirectory: cfg.ImageDirectory,
		Concurrency:    cfg.Concurrency,
		OnError:        cfg.OnError,
	}
}

func printSummary(out io.Writer, runID, datasetID string, result *uploader.Result) {
	fmt.Fprintln(out, "Binary IDs:")
	for _, id := range result.BinaryIDs {
		fmt.Fprintf(out, "  %s\n", id)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Run:        %s\n", runID)
	fmt.Fprintf(out, "Uploaded:   %d\n", len(result.BinaryIDs))
	fmt.Fprintf(out, "Failed:     %d\n", len(result.Failures))
	fmt.Fprintf(out, "Skipped:    %d\n", result.Skipped)
	if result.Associated {
		fmt.Fprintf(out, "Dataset:    %s (added)\n", datasetID)
	} else {
		fmt.Fprintf(out, "Dataset:    %s (not added)\n", datasetID)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(out, "  failed: %s: %v\n", f.Path, f.Err)
	}
}
