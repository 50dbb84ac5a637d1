package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"overlay-sync/core/config"
	"overlay-sync/core/logger"
	"overlay-sync/core/metrics"
	"overlay-sync/core/storage"
	"overlay-sync/feature/mirror"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	syncManifest string
	syncPurge    bool
	syncYes      bool
	syncTimeout  time.Duration
)

// syncCmd performs one refresh from the configured source and exits once the bucket has converged.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the configured source into the bucket once",
	Long: `Loads the desired items from the configured source (database or manifest), writes
every item to the bucket and exits once all writes have been applied or have failed.

Examples:
  # Sync from the configured source
  sync

  # Sync from a manifest, overriding the configured source
  sync --manifest overlay.yaml

  # Rehearse a rollout: sync, then remove every object written (with confirmation)
  sync --purge

  # Same, non-interactive
  sync --purge --yes`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncManifest, "manifest", "", "Read items from this YAML manifest instead of the configured source")
	syncCmd.Flags().BoolVar(&syncPurge, "purge", false, "Remove the rendered objects before exiting")
	syncCmd.Flags().BoolVar(&syncYes, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 10*time.Minute, "Give up when the bucket has not converged within this time")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	if syncManifest != "" {
		cfg.Mirror.Source = mirror.SourceManifest
		cfg.Mirror.ManifestPath = syncManifest
	}
	if cfg.Mirror.Source == mirror.SourceNone || cfg.Mirror.Source == "" {
		return fmt.Errorf("no source configured, set MIRROR_SOURCE or pass --manifest")
	}

	if syncPurge {
		if !confirmDestructiveAction() {
			l.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}
		cfg.Mirror.PurgeOnDestroy = true
	}

	source, err := buildSource(cfg, l)
	if err != nil {
		return err
	}

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	svc := mirror.NewService(client, cfg.Storage.Bucket, cfg.Mirror, source, l, metrics.NewMirror(nil))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout())
		defer cancel()
		if err := svc.Close(closeCtx); err != nil {
			l.Warn("Mirror shutdown incomplete", zap.Error(err))
		}
	}()

	if err := svc.Init(ctx); err != nil {
		return err
	}

	start := time.Now()
	report, err := svc.Refresh(ctx)
	if err != nil {
		return err
	}
	l.Info("Applying changes", zap.String("source", report.Source), zap.Int("items", report.Items))

	waitCtx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()
	if err := svc.WaitIdle(waitCtx); err != nil {
		return fmt.Errorf("bucket did not converge: %w", err)
	}

	st := svc.Stats()
	l.Info("Sync finished",
		zap.Int("items", report.Items),
		zap.Int("applied", st.Applied),
		zap.Int("failed", report.Items-st.Applied),
		zap.Duration("elapsed", time.Since(start)),
	)
	if st.Applied < report.Items {
		return fmt.Errorf("%d of %d items could not be applied", report.Items-st.Applied, report.Items)
	}
	return nil
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if syncYes {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
