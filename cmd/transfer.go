package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"pansave/internal"
	"pansave/transfer"
)

var (
	transferLimit    int
	transferPlatform string
	transferDelay    time.Duration
	transferRestN    int
	transferRest     time.Duration
	transferDest     string
	transferDryRun   bool
	transferBrowser  bool
	transferSchedule string
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer queued links into your provider account",
	Long: `Transfer pulls a batch of pending links from the queue and saves each
share into your provider account, pacing requests to stay under the
provider's throttling radar.

Each item's status transition is recorded before the next item starts, so
an interrupted run can be resumed by simply running transfer again.

Examples:
  pansave transfer --limit 10
  pansave transfer --platform quark --delay 3s --rest-every 5 --rest 15s
  pansave transfer --dry-run
  pansave transfer --schedule "0 */2 * * *"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, err := resolvePlatformFlag(transferPlatform)
		if err != nil {
			return err
		}

		limit := transferLimit
		if !cmd.Flags().Changed("limit") {
			limit = config.BatchLimit
		}
		delay := transferDelay
		if !cmd.Flags().Changed("delay") {
			delay = config.ItemDelay
		}
		restEvery := transferRestN
		if !cmd.Flags().Changed("rest-every") {
			restEvery = config.RestEvery
		}
		rest := transferRest
		if !cmd.Flags().Changed("rest") {
			rest = config.RestDuration
		}
		destDir := transferDest
		if destDir == "" {
			destDir = config.DestDirID
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		if transferDryRun {
			return dryRun(s, limit, platform)
		}

		registry, cleanup, err := buildRegistry(transferBrowser)
		if err != nil {
			return err
		}
		defer cleanup()

		pacer := transfer.NewFixedIntervalPacer(delay, restEvery, rest)
		orchestrator := transfer.NewOrchestrator(s, registry, pacer, transfer.OrchestratorOptions{
			DestDirID:    destDir,
			AuditDir:     config.AuditDir,
			ShowProgress: !config.QuietMode,
		})

		ctx, cancel := signalContext()
		defer cancel()

		if transferSchedule != "" {
			return runScheduled(ctx, orchestrator, limit, platform)
		}

		tally, err := orchestrator.Run(ctx, limit, platform)
		printTally(tally)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// resolvePlatformFlag validates the --platform value; empty means all
// platforms
func resolvePlatformFlag(value string) (internal.Platform, error) {
	if value == "" {
		return "", nil
	}
	platform := internal.Platform(value)
	if !platform.IsValid() {
		return "", fmt.Errorf("unknown platform %q (known: %v)", value, internal.AllPlatforms())
	}
	return platform, nil
}

// dryRun prints the batch that a real run would process, without touching
// any record's status
func dryRun(s internal.LinkStore, limit int, platform internal.Platform) error {
	records, err := s.PullPending(limit, platform)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No pending links")
		return nil
	}

	fmt.Printf("Would process %d link(s):\n", len(records))
	for _, record := range records {
		passcode := "-"
		if record.Password != "" {
			passcode = "yes"
		}
		fmt.Printf("  [%d] %-7s %-60s passcode=%s  %q\n",
			record.ID, record.Platform, record.URL, passcode, record.Title)
	}
	return nil
}

// runScheduled runs transfer batches on a cron schedule until interrupted.
// Runs never overlap: a tick that fires while a batch is still going is
// dropped.
func runScheduled(ctx context.Context, orchestrator *transfer.Orchestrator, limit int, platform internal.Platform) error {
	running := make(chan struct{}, 1)

	scheduler := cron.New()
	_, err := scheduler.AddFunc(transferSchedule, func() {
		select {
		case running <- struct{}{}:
			defer func() { <-running }()
		default:
			internal.LogWarn("Previous batch still running, skipping this tick")
			return
		}

		tally, err := orchestrator.Run(ctx, limit, platform)
		if err != nil && !errors.Is(err, context.Canceled) {
			internal.LogError("Scheduled run failed: %v", err)
		}
		printTally(tally)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", transferSchedule, err)
	}

	internal.LogInfo("Scheduler started with spec %q", transferSchedule)
	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	internal.LogInfo("Scheduler stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(transferCmd)
	transferCmd.Flags().IntVarP(&transferLimit, "limit", "l", 5, "Maximum links to process in this batch (env: PANSAVE_BATCH_LIMIT)")
	transferCmd.Flags().StringVarP(&transferPlatform, "platform", "p", "", "Restrict the batch to one platform (e.g. quark)")
	transferCmd.Flags().DurationVar(&transferDelay, "delay", 2*time.Second, "Delay between items (env: PANSAVE_ITEM_DELAY)")
	transferCmd.Flags().IntVar(&transferRestN, "rest-every", 5, "Take a longer rest after this many items (env: PANSAVE_REST_EVERY)")
	transferCmd.Flags().DurationVar(&transferRest, "rest", 10*time.Second, "Rest duration (env: PANSAVE_REST)")
	transferCmd.Flags().StringVar(&transferDest, "dest", "", "Destination directory id in the account (env: PANSAVE_DEST_DIR)")
	transferCmd.Flags().BoolVar(&transferDryRun, "dry-run", false, "List the batch without transferring or changing statuses")
	transferCmd.Flags().BoolVar(&transferBrowser, "browser", false, "Enable page-automation adapters for platforms without a token protocol")
	transferCmd.Flags().StringVar(&transferSchedule, "schedule", "", "Run batches on a cron schedule (e.g. \"0 */2 * * *\") until interrupted")
}
