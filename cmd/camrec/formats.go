package main

import (
	"fmt"

	"github.com/camrec/camrec"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the recording resolutions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, line := range formatLines(cfg.Resolution) {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	},
}

// formatLines describes every resolution, marking selected.
func formatLines(selected string) []string {
	return lo.Map(camrec.Resolutions(), func(label string, _ int) string {
		f, _ := camrec.FormatFor(label)
		mark := " "
		if label == selected {
			mark = "*"
		}
		return fmt.Sprintf("%s %-5s %s", mark, label, f)
	})
}
