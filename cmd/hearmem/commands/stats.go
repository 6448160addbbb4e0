package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nithinv16/hearmem/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show storage and usage statistics",
	Long: `Summarize sessions, references and memory layers, with the
in-process metrics of the current invocation under --verbose.

Examples:
  hearmem stats
  hearmem stats --format json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	sessions := a.Sessions.Sessions()
	messages := 0
	ended := 0
	for _, s := range sessions {
		messages += len(s.Messages)
		if s.EndTime != nil {
			ended++
		}
	}

	refStats := a.References.Statistics()
	layers := a.Memory.LayerSizes()

	if format, _ := cmd.Flags().GetString("format"); format == "json" {
		return printJSON(map[string]interface{}{
			"sessions": map[string]int{
				"total":    len(sessions),
				"ended":    ended,
				"messages": messages,
			},
			"references": refStats,
			"memory":     layers,
		})
	}

	fmt.Println("Sessions")
	fmt.Printf("  Total:    %d (%d ended)\n", len(sessions), ended)
	fmt.Printf("  Messages: %d\n", messages)

	fmt.Println("\nReferences")
	fmt.Printf("  Total:       %d (%d in last 24h)\n", refStats.TotalReferences, refStats.CreatedLast24h)
	fmt.Printf("  Bookmarks:   %d\n", refStats.TotalBookmarks)
	fmt.Printf("  Collections: %d\n", refStats.TotalCollections)
	if len(refStats.TopTags) > 0 {
		fmt.Println("  Top tags:")
		for _, tc := range refStats.TopTags {
			fmt.Printf("    %-20s %d\n", tc.Tag, tc.Count)
		}
	}

	fmt.Println("\nMemory layers")
	for _, layer := range []string{"short_term", "long_term", "emotional", "contextual"} {
		for l, n := range layers {
			if string(l) == layer {
				fmt.Printf("  %-12s %d\n", layer, n)
			}
		}
	}

	if isVerbose() {
		data, err := metrics.Global().Export()
		if err == nil {
			fmt.Printf("\nMetrics\n%s\n", data)
		}
	}
	return nil
}
