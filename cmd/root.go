// Package cmd wires the CLI commands: harvest text into the link queue,
// transfer queued links into the account, and inspect queue state.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pansave/internal"
	"pansave/store"
	"pansave/transfer"
	"pansave/utils"
)

var (
	dbPath      string
	cookiesPath string
	proxyURL    string
	quiet       bool
	debug       bool
	logLevel    string
	logFile     string
	config      *internal.Config
)

var rootCmd = &cobra.Command{
	Use:     "pansave",
	Short:   "Harvest netdisk share links and transfer them into your account",
	Version: "v1.0.0",
	Long: `PanSave collects netdisk share links (URL, passcode, title) from raw text,
queues them in a local database, and transfers them into your provider
account in paced batches.

Examples:
  pansave harvest messages.txt --origin telegram:pan_channel
  cat export.txt | pansave harvest --origin manual
  pansave transfer --limit 10 --platform quark
  pansave transfer --schedule "0 */2 * * *"
  pansave stats

Environment Variables:
  PANSAVE_DB          Path to the link database
  PANSAVE_COOKIES     Path to Netscape-format cookie file
  PANSAVE_BATCH_LIMIT Default batch size for transfer runs
  PANSAVE_ITEM_DELAY  Delay between items (e.g. 2s)
  PANSAVE_PROXY       Proxy URL (http, https or socks5)

DISCLAIMER: Respect each provider's Terms of Service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %v", err)
		}
		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %v", err)
		}
		internal.LogDebug("Configuration loaded: db=%s, batch=%d, delay=%s, debug=%v, quiet=%v",
			config.DatabasePath, config.BatchLimit, config.ItemDelay, config.EnableDebug, config.QuietMode)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// loadConfiguration loads configuration from the environment and merges
// the global CLI flags on top
func loadConfiguration() error {
	config = internal.DefaultConfig()
	config.LoadFromEnv()

	if dbPath != "" {
		config.DatabasePath = dbPath
	}
	if cookiesPath != "" {
		config.CookieFile = cookiesPath
	}
	if proxyURL != "" {
		config.ProxyURL = proxyURL
	}
	if debug {
		config.EnableDebug = true
		config.LogLevel = "debug"
	}
	if quiet {
		config.QuietMode = true
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}

	return config.Validate()
}

// openStore opens the link database at the configured path
func openStore() (*store.Store, error) {
	s, err := store.Open(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open link database: %w", err)
	}
	return s, nil
}

// buildRegistry assembles the provider adapters available for a transfer
// run. Quark uses the token protocol; Baidu falls back to page automation
// when enabled.
func buildRegistry(enableBrowser bool) (*transfer.Registry, func(), error) {
	source := transfer.NewCookieSessionSource(config.CookieFile)
	session, err := source.Acquire()
	if err != nil {
		return nil, nil, err
	}

	httpClient := utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{
		Timeout:  config.HTTPTimeout,
		ProxyURL: config.ProxyURL,
	})

	registry := transfer.NewRegistry()
	registry.Register(transfer.NewQuarkAdapter(httpClient, session))

	cleanup := func() {
		source.Cleanup()
	}

	if enableBrowser {
		browser, err := transfer.NewBrowserAdapter(internal.PlatformBaidu, session, transfer.DefaultBrowserAdapterConfig())
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		registry.Register(browser)
		cleanup = func() {
			browser.Close()
			source.Cleanup()
		}
	}

	return registry, cleanup, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		internal.LogInfo("Received signal %v, finishing current item...", sig)
		if !config.QuietMode {
			fmt.Fprintf(os.Stderr, "\nReceived %v, finishing current item before stopping...\n", sig)
		}
		cancel()
	}()

	return ctx, cancel
}

// printTally renders the end-of-run summary
func printTally(tally *internal.TransferTally) {
	if config.QuietMode {
		return
	}
	fmt.Printf("\nRun %s finished in %s\n", tally.RunID, tally.Elapsed.Round(time.Second))
	fmt.Printf("  Total:     %d\n", tally.Total)
	fmt.Printf("  Succeeded: %d\n", tally.Succeeded)
	fmt.Printf("  Failed:    %d\n", tally.Failed)
	fmt.Printf("  Skipped:   %d\n", tally.Skipped)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the link database (env: PANSAVE_DB)")
	rootCmd.PersistentFlags().StringVarP(&cookiesPath, "cookies", "c", "", "Path to Netscape-format cookie file (env: PANSAVE_COOKIES)")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "", "HTTP/SOCKS proxy URL (env: PANSAVE_PROXY)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging with file and line information (env: PANSAVE_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error) (env: PANSAVE_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr (env: PANSAVE_LOG_FILE)")
}

func Execute() error {
	return rootCmd.Execute()
}
