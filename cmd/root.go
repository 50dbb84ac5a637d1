package cmd

import (
	"fmt"
	"os"

	"overlay-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "overlay-sync",
	Short: "Overlay Sync Service",
	Long: `Overlay Sync mirrors a desired set of overlay items into an S3/MinIO bucket.
Changes are requested over HTTP or loaded from a database or YAML manifest and applied
asynchronously, touching only the objects that actually change.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with the development config gives readable CLI errors
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
