package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "viam-dataset-uploader",
		Short: "Upload a directory of images to a Viam dataset",
		Long: `viam-dataset-uploader normalizes local images to JPEG, uploads them to Viam
data management and adds every uploaded file to a dataset in one call.

Settings are read from configuration.json in the working directory. Any
VIAM_* environment variable (or .env entry) overrides the file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newScanCmd())

	return cmd
}
