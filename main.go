package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/lehigh-university-libraries/viam-dataset-uploader/cmd"
)

// version is reported by --version and in fang's manpage output
const version = "0.2.0"

func main() {
	root := cmd.NewRootCmd()

	// Interrupt cancels the command context, which aborts in-flight uploads.
	// The deferred session close in the upload command still runs.
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
