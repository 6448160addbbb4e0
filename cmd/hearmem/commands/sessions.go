package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nithinv16/hearmem/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
	Long: `List, inspect, end and delete conversation sessions.

Examples:
  # List all sessions
  hearmem sessions list

  # Show a session transcript
  hearmem sessions show sess-1712345678000-0042

  # End the active session
  hearmem sessions end`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end [session-id]",
	Short: "End the active session, or a specific one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsEnd,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "rm <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsEndCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)

	sessionsListCmd.Flags().StringP("format", "f", "table", "Output format (table, json)")
	sessionsShowCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	sessions := a.Sessions.Sessions()
	format, _ := cmd.Flags().GetString("format")

	if format == "json" {
		return printJSON(sessions)
	}

	active := a.Sessions.ActiveSession()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTARTED\tMESSAGES\tSTATUS")
	for _, s := range sessions {
		status := "ended"
		if s.EndTime == nil {
			status = "open"
		}
		if active != nil && s.ID == active.ID {
			status = "active"
		}
		title := s.Metadata.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			s.ID, title, s.StartTime.Format("2006-01-02 15:04"), len(s.Messages), status)
	}
	return w.Flush()
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	sess := a.Sessions.GetSession(args[0])
	if sess == nil {
		return fmt.Errorf("session not found: %s", args[0])
	}

	if format, _ := cmd.Flags().GetString("format"); format == "json" {
		return printJSON(sess)
	}

	printSession(sess)
	return nil
}

func printSession(sess *session.Session) {
	title := sess.Metadata.Title
	if title == "" {
		title = sess.ID
	}
	fmt.Printf("%s\n", title)
	fmt.Printf("Started: %s\n", sess.StartTime.Format("2006-01-02 15:04"))
	if sess.EndTime != nil {
		fmt.Printf("Ended:   %s\n", sess.EndTime.Format("2006-01-02 15:04"))
	}
	if sess.Summary != nil {
		fmt.Printf("Trend:   %s (%d messages, %s)\n",
			sess.Summary.EmotionalTrend, sess.Summary.MessageCount, sess.Summary.Duration)
	}
	fmt.Println()

	for _, m := range sess.Messages {
		speaker := "assistant"
		if m.IsUser {
			speaker = "user"
		}
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04"), speaker, m.Content)
	}

	if len(sess.KeyMoments) > 0 {
		fmt.Println("\nKey moments:")
		for _, km := range sess.KeyMoments {
			fmt.Printf("  - %s\n", km.Description)
		}
	}
}

func runSessionsEnd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	id := ""
	if len(args) > 0 {
		id = args[0]
	} else {
		active := a.Sessions.ActiveSession()
		if active == nil {
			return fmt.Errorf("no active session")
		}
		id = active.ID
	}

	a.Sessions.EndSession(ctx, id)
	if !quiet {
		fmt.Printf("Ended session %s\n", id)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	if !a.Sessions.DeleteSession(ctx, args[0]) {
		return fmt.Errorf("session not found: %s", args[0])
	}
	if !quiet {
		fmt.Printf("Deleted session %s\n", args[0])
	}
	return nil
}

// printJSON pretty-prints v to stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
