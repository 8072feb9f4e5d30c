package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pansave/extractor"
	"pansave/internal"
)

var (
	harvestOrigin   string
	harvestPatterns string
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [FILE...]",
	Short: "Extract share links from text and queue them for transfer",
	Long: `Harvest scans text for netdisk share links, pairs each link with a
nearby passcode and a title, and queues the results. Re-harvesting the
same text is safe: a link already queued from the same origin is ignored.

Reads the named files, or stdin when no file is given.

Examples:
  pansave harvest messages.txt --origin telegram:pan_channel
  cat export.txt | pansave harvest --origin manual`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ext, err := newExtractor()
		if err != nil {
			return err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		var candidates []*internal.LinkRecord
		for _, text := range readInputs(args) {
			records := ext.Extract(text.content)
			internal.LogDebug("Extracted %d candidate(s) from %s", len(records), text.name)
			for i := range records {
				records[i].Origin = harvestOrigin
				candidates = append(candidates, &records[i])
			}
		}

		if len(candidates) == 0 {
			if !config.QuietMode {
				fmt.Println("No share links found")
			}
			return nil
		}

		inserted, err := s.Insert(candidates)
		if err != nil {
			if te, ok := err.(*internal.TransferError); ok {
				internal.LogTransferError(te)
			}
			return fmt.Errorf("failed to queue links: %w", err)
		}

		internal.LogInfo("Harvest complete: %d candidate(s), %d newly queued", len(candidates), inserted)
		if !config.QuietMode {
			fmt.Printf("Found %d share link(s), queued %d new (%d duplicate(s) ignored)\n",
				len(candidates), inserted, len(candidates)-inserted)
		}
		return nil
	},
}

// namedInput pairs input text with a display name for logging
type namedInput struct {
	name    string
	content string
}

// readInputs reads the named files, or stdin when none are given.
// Unreadable files are reported and skipped so one bad path does not
// discard the rest of the batch.
func readInputs(paths []string) []namedInput {
	if len(paths) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			internal.LogError("Failed to read stdin: %v", err)
			return nil
		}
		return []namedInput{{name: "stdin", content: string(data)}}
	}

	var inputs []namedInput
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			internal.LogError("Failed to read %s: %v", path, err)
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			continue
		}
		inputs = append(inputs, namedInput{name: path, content: string(data)})
	}
	return inputs
}

// newExtractor builds the extractor, applying the pattern overlay file
// when one is configured
func newExtractor() (*extractor.Extractor, error) {
	if harvestPatterns != "" {
		ext, err := extractor.NewWithOverlay(harvestPatterns)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern overlay %s: %w", harvestPatterns, err)
		}
		return ext, nil
	}
	return extractor.New(), nil
}

func init() {
	rootCmd.AddCommand(harvestCmd)
	harvestCmd.Flags().StringVar(&harvestOrigin, "origin", "manual", "Origin tag recorded with each link (e.g. telegram:channel_name)")
	harvestCmd.Flags().StringVar(&harvestPatterns, "patterns", "", "YAML file with additional URL patterns per platform")
}
