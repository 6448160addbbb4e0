package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nithinv16/hearmem/internal/reference"
	"github.com/nithinv16/hearmem/internal/session"
)

const dateFormat = "2006-01-02"

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search conversations or references",
	Long: `Search message history by default, or saved references with --refs.

Examples:
  # Full-text search over conversations
  hearmem search "sleep schedule"

  # Restrict to a session and date range
  hearmem search "boundary" --session sess-123 --since 2026-01-01

  # Search references instead
  hearmem search "breakthrough" --refs --tags anxiety`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Bool("refs", false, "Search references instead of conversations")
	searchCmd.Flags().StringSlice("session", nil, "Filter by session id")
	searchCmd.Flags().String("since", "", "Only results after date (YYYY-MM-DD)")
	searchCmd.Flags().String("until", "", "Only results before date (YYYY-MM-DD)")
	searchCmd.Flags().StringSlice("tags", nil, "Filter references by tag")
	searchCmd.Flags().String("sort", "relevance", "Sort order (relevance, date, importance, access)")
	searchCmd.Flags().Int("limit", 0, "Maximum number of results")
	searchCmd.Flags().Bool("metadata", false, "Score message metadata too")
	searchCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	query := strings.Join(args, " ")

	since, until, err := parseDateRange(cmd)
	if err != nil {
		return err
	}

	sessionIDs, _ := cmd.Flags().GetStringSlice("session")
	sortBy, _ := cmd.Flags().GetString("sort")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	if refs, _ := cmd.Flags().GetBool("refs"); refs {
		tags, _ := cmd.Flags().GetStringSlice("tags")
		results := a.References.SearchReferences(query, reference.SearchOptions{
			Tags:           tags,
			From:           since,
			To:             until,
			SessionIDs:     sessionIDs,
			IncludeContext: true,
			SortBy:         sortBy,
			Limit:          limit,
		})
		if format == "json" {
			return printJSON(results)
		}
		printReferenceResults(results)
		return nil
	}

	includeMeta, _ := cmd.Flags().GetBool("metadata")
	results := a.Sessions.SearchConversations(ctx, query, session.SearchOptions{
		SessionIDs:      sessionIDs,
		From:            since,
		To:              until,
		IncludeMetadata: includeMeta,
		SortBy:          sortBy,
		Limit:           limit,
	})
	if format == "json" {
		return printJSON(results)
	}
	printConversationResults(results)
	return nil
}

func parseDateRange(cmd *cobra.Command) (time.Time, time.Time, error) {
	var since, until time.Time
	if s, _ := cmd.Flags().GetString("since"); s != "" {
		t, err := time.Parse(dateFormat, s)
		if err != nil {
			return since, until, fmt.Errorf("invalid since date: %w", err)
		}
		since = t
	}
	if s, _ := cmd.Flags().GetString("until"); s != "" {
		t, err := time.Parse(dateFormat, s)
		if err != nil {
			return since, until, fmt.Errorf("invalid until date: %w", err)
		}
		until = t
	}
	return since, until, nil
}

func printConversationResults(results []session.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		fmt.Printf("%.1f  [%s] %s\n", r.Score, r.SessionID, r.Message.Content)
		for _, c := range r.Context {
			if c.ID != r.Message.ID {
				fmt.Printf("       | %s\n", c.Content)
			}
		}
	}
}

func printReferenceResults(results []*reference.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		ref := r.Reference
		tags := ""
		if len(ref.Tags) > 0 {
			tags = "  [" + strings.Join(ref.Tags, ", ") + "]"
		}
		fmt.Printf("%.1f  %s (%s/%s)%s\n", r.Score, ref.Title, ref.Type, ref.Importance, tags)
	}
}
