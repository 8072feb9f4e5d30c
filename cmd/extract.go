package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract [FILE...]",
	Short: "Show the share links found in text without queueing them",
	Long: `Extract runs the harvest scanner over the input and prints what it
finds. Nothing is written to the queue; use it to check extraction before
harvesting a new source.

Reads the named files, or stdin when no file is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ext, err := newExtractor()
		if err != nil {
			return err
		}

		found := 0
		for _, text := range readInputs(args) {
			for _, record := range ext.Extract(text.content) {
				found++
				if extractJSON {
					enc := json.NewEncoder(os.Stdout)
					if err := enc.Encode(record); err != nil {
						return err
					}
					continue
				}
				passcode := record.Password
				if passcode == "" {
					passcode = "-"
				}
				fmt.Printf("%-7s %-60s passcode=%-8s %q\n", record.Platform, record.URL, passcode, record.Title)
			}
		}

		if found == 0 && !extractJSON {
			fmt.Println("No share links found")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print one JSON object per link")
	extractCmd.Flags().StringVar(&harvestPatterns, "patterns", "", "YAML file with additional URL patterns per platform")
}
