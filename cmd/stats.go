package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pansave/internal"
)

var statsWindow time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue counts by status and platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		byStatus, err := s.CountByStatus()
		if err != nil {
			return err
		}
		byPlatform, err := s.CountByPlatform()
		if err != nil {
			return err
		}
		recent, err := s.CountSince(statsWindow)
		if err != nil {
			return err
		}

		var total int64
		for _, count := range byStatus {
			total += count
		}

		fmt.Printf("Queue: %d link(s) total, %d harvested in the last %s\n\n", total, recent, statsWindow)

		fmt.Println("By status:")
		for _, status := range []internal.Status{
			internal.StatusPending, internal.StatusProcessing,
			internal.StatusCompleted, internal.StatusFailed,
		} {
			fmt.Printf("  %-12s %d\n", status, byStatus[status])
		}

		fmt.Println("\nBy platform:")
		for _, platform := range internal.AllPlatforms() {
			if count, ok := byPlatform[platform]; ok {
				fmt.Printf("  %-12s %d\n", platform, count)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().DurationVar(&statsWindow, "window", 24*time.Hour, "Window for the recent-harvest count")
}
