package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nithinv16/hearmem/internal/reference"
)

var refCmd = &cobra.Command{
	Use:   "ref",
	Short: "Manage saved references",
	Long: `Create, inspect and delete references to conversational moments.

Examples:
  # Save a reference to a message in the active session
  hearmem ref add --message msg-id --title "The realization" --tags anxiety,cbt

  # Show a reference (counts as an access)
  hearmem ref get 2f9c...

  # Remove a reference and everything pointing at it
  hearmem ref rm 2f9c...

  # Bookmark and group references
  hearmem ref bookmark 2f9c... --label "revisit weekly"
  hearmem ref collect "Wins" --refs 2f9c...,81aa...`,
}

var refAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a reference",
	RunE:  runRefAdd,
}

var refGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a reference",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefGet,
}

var refRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a reference",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefRm,
}

var refListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all references",
	RunE:  runRefList,
}

var refBookmarkCmd = &cobra.Command{
	Use:   "bookmark <reference-id>",
	Short: "Bookmark a reference",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefBookmark,
}

var refCollectCmd = &cobra.Command{
	Use:   "collect <name>",
	Short: "Create a collection of references",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefCollect,
}

func init() {
	rootCmd.AddCommand(refCmd)
	refCmd.AddCommand(refAddCmd)
	refCmd.AddCommand(refGetCmd)
	refCmd.AddCommand(refRmCmd)
	refCmd.AddCommand(refListCmd)
	refCmd.AddCommand(refBookmarkCmd)
	refCmd.AddCommand(refCollectCmd)

	refAddCmd.Flags().String("session", "", "Session id (default: active session)")
	refAddCmd.Flags().String("message", "", "Message id within the session")
	refAddCmd.Flags().String("title", "", "Reference title (default: generated)")
	refAddCmd.Flags().String("description", "", "Longer description")
	refAddCmd.Flags().String("type", "message", "Reference type (message, moment, insight, breakthrough, goal)")
	refAddCmd.Flags().String("importance", "medium", "Importance (low, medium, high, critical)")
	refAddCmd.Flags().StringSlice("tags", nil, "Tags")
	refAddCmd.Flags().Bool("private", false, "Mark as private")

	refGetCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	refListCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")

	refBookmarkCmd.Flags().String("label", "", "Bookmark label (default: reference title)")
	refBookmarkCmd.Flags().String("color", "", "Bookmark color")

	refCollectCmd.Flags().StringSlice("refs", nil, "Reference ids to include")
	refCollectCmd.Flags().String("description", "", "Collection description")
	refCollectCmd.Flags().StringSlice("tags", nil, "Collection tags")
}

func runRefAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		if active := a.Sessions.ActiveSession(); active != nil {
			sessionID = active.ID
		}
	}

	messageID, _ := cmd.Flags().GetString("message")
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	typ, _ := cmd.Flags().GetString("type")
	importance, _ := cmd.Flags().GetString("importance")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	private, _ := cmd.Flags().GetBool("private")

	ref, err := a.References.CreateReference(ctx, reference.CreateParams{
		SessionID:   sessionID,
		MessageID:   messageID,
		Title:       title,
		Description: description,
		Type:        reference.Type(typ),
		Importance:  reference.Importance(importance),
		Tags:        tags,
		IsPrivate:   private,
	})
	if err != nil {
		return fmt.Errorf("creating reference: %w", err)
	}

	fmt.Printf("Created reference %s: %s\n", ref.ID, ref.Title)
	if isVerbose() && len(ref.Metadata.LinkedReferences) > 0 {
		fmt.Printf("Linked to %d related references\n", len(ref.Metadata.LinkedReferences))
	}
	return nil
}

func runRefGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	ref := a.References.GetReference(ctx, args[0])
	if ref == nil {
		return fmt.Errorf("reference not found: %s", args[0])
	}

	if format, _ := cmd.Flags().GetString("format"); format == "json" {
		return printJSON(ref)
	}

	fmt.Printf("%s\n", ref.Title)
	fmt.Printf("Type:       %s\n", ref.Type)
	fmt.Printf("Importance: %s\n", ref.Importance)
	if len(ref.Tags) > 0 {
		fmt.Printf("Tags:       %s\n", strings.Join(ref.Tags, ", "))
	}
	fmt.Printf("Session:    %s\n", ref.SessionID)
	fmt.Printf("Created:    %s\n", ref.Metadata.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Accessed:   %d times\n", ref.Metadata.AccessCount)
	if ref.Description != "" {
		fmt.Printf("\n%s\n", ref.Description)
	}
	if len(ref.Metadata.LinkedReferences) > 0 {
		fmt.Printf("\nRelated: %s\n", strings.Join(ref.Metadata.LinkedReferences, ", "))
	}
	return nil
}

func runRefRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	if !a.References.DeleteReference(ctx, args[0]) {
		return fmt.Errorf("reference not found: %s", args[0])
	}
	if !quiet {
		fmt.Printf("Deleted reference %s\n", args[0])
	}
	return nil
}

func runRefList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	refs := a.References.References()
	if format, _ := cmd.Flags().GetString("format"); format == "json" {
		return printJSON(refs)
	}

	if len(refs) == 0 {
		fmt.Println("No references.")
		return nil
	}
	for _, ref := range refs {
		tags := ""
		if len(ref.Tags) > 0 {
			tags = "  [" + strings.Join(ref.Tags, ", ") + "]"
		}
		fmt.Printf("%s  %s (%s/%s)%s\n", ref.ID, ref.Title, ref.Type, ref.Importance, tags)
	}
	return nil
}

func runRefBookmark(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	label, _ := cmd.Flags().GetString("label")
	color, _ := cmd.Flags().GetString("color")

	b, err := a.References.CreateBookmark(ctx, args[0], label, color)
	if err != nil {
		return fmt.Errorf("creating bookmark: %w", err)
	}
	fmt.Printf("Bookmarked as %q (position %d)\n", b.Label, b.Position)
	return nil
}

func runRefCollect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	ids, _ := cmd.Flags().GetStringSlice("refs")
	description, _ := cmd.Flags().GetString("description")
	tags, _ := cmd.Flags().GetStringSlice("tags")

	c, err := a.References.CreateCollection(ctx, args[0], description, ids, tags)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	fmt.Printf("Created collection %s with %d references\n", c.Name, len(c.ReferenceIDs))
	return nil
}
