package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/config"
	"github.com/lehigh-university-libraries/viam-dataset-uploader/internal/images"
	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the images an upload would pick up",
		Long: `Lists, in upload order, the files in image_directory that the upload
command would send. Nothing is opened, decoded or uploaded and no
connection to Viam is made.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			if cfg.ImageDirectory == "" {
				return &config.MissingConfigurationError{Keys: []string{config.KeyImageDirectory}}
			}

			paths, err := images.Scan(cfg.ImageDirectory)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			fmt.Fprintf(out, "%d images\n", len(paths))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file (JSON or YAML)")

	return cmd
}
