package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nithinv16/hearmem/internal/memory"
)

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Retrieve memories relevant to a topic",
	Long: `Rank stored memories across the short-term, long-term, emotional
and contextual layers by relevance to the query.

Examples:
  # Pull everything related to sleep
  hearmem recall "sleep"

  # Only long-term memories
  hearmem recall "work stress" --layers long

  # Show the full user context bundle instead
  hearmem recall --context`,
	RunE: runRecall,
}

func init() {
	rootCmd.AddCommand(recallCmd)

	recallCmd.Flags().StringSlice("layers", nil, "Layers to search (short, long, emotional, contextual; default all)")
	recallCmd.Flags().Int("limit", 0, "Maximum number of memories")
	recallCmd.Flags().Bool("context", false, "Print the full user context bundle")
	recallCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func runRecall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	format, _ := cmd.Flags().GetString("format")

	if showContext, _ := cmd.Flags().GetBool("context"); showContext {
		bundle := a.Memory.Context()
		if format == "json" {
			return printJSON(bundle)
		}
		printUserContext(bundle)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("a query is required (or use --context)")
	}
	query := strings.Join(args, " ")

	opts := memory.RetrievalOptions{}
	if layers, _ := cmd.Flags().GetStringSlice("layers"); len(layers) > 0 {
		for _, l := range layers {
			switch l {
			case "short":
				opts.IncludeShortTerm = true
			case "long":
				opts.IncludeLongTerm = true
			case "emotional":
				opts.IncludeEmotional = true
			case "contextual":
				opts.IncludeContextual = true
			default:
				return fmt.Errorf("unknown layer: %s", l)
			}
		}
	}
	opts.Limit, _ = cmd.Flags().GetInt("limit")

	entries := a.Memory.RelevantMemories(query, opts)
	if format == "json" {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No memories.")
		return nil
	}
	for _, e := range entries {
		extra := ""
		if e.Importance > 0 {
			extra = fmt.Sprintf(" (importance %.2f)", e.Importance)
		}
		fmt.Printf("[%s] %s  %s%s\n", e.Layer, e.Timestamp.Format("2006-01-02"), e.Message, extra)
	}
	return nil
}

func printUserContext(bundle memory.UserContext) {
	p := bundle.Preferences
	if p.DisplayName != "" {
		fmt.Printf("Name: %s\n", p.DisplayName)
	}
	if len(p.Goals) > 0 {
		fmt.Printf("Goals: %s\n", strings.Join(p.Goals, ", "))
	}
	if len(p.Triggers) > 0 {
		fmt.Printf("Triggers: %s\n", strings.Join(p.Triggers, ", "))
	}
	if len(p.CopingStrategies) > 0 {
		fmt.Printf("Coping strategies: %s\n", strings.Join(p.CopingStrategies, ", "))
	}

	if bundle.Emotional.Samples > 0 {
		fmt.Printf("\nEmotional pattern: %s (avg %.2f over %d samples)\n",
			bundle.Emotional.DominantLabel, bundle.Emotional.AverageScore, bundle.Emotional.Samples)
	}

	if len(bundle.RecentMemories) > 0 {
		fmt.Println("\nRecent memories:")
		for _, e := range bundle.RecentMemories {
			fmt.Printf("  [%s] %s\n", e.Layer, e.Message)
		}
	}
}
