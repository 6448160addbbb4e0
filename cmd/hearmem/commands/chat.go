package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nithinv16/hearmem/internal/memory"
	"github.com/nithinv16/hearmem/internal/provider"
	"github.com/nithinv16/hearmem/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Record a message in the active session",
	Long: `Append a user message to the active conversation session, starting
one automatically when none is active. The message also feeds the
memory aggregator, which decides whether it is worth keeping long-term.

Examples:
  # Record a message
  hearmem chat "I finally slept eight hours"

  # Attach a sentiment score
  hearmem chat "rough day at work" --sentiment=-0.6 --label=frustrated

  # Also record a canned assistant reply
  hearmem chat "what should I try tonight?" --respond`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Float64("sentiment", 0, "Sentiment score in [-1, 1]")
	chatCmd.Flags().String("label", "", "Sentiment label (e.g. anxious, hopeful)")
	chatCmd.Flags().StringSlice("topics", nil, "Topics to attach to the message")
	chatCmd.Flags().Bool("respond", false, "Record a generated assistant reply")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a)

	content := strings.Join(args, " ")

	meta := session.MessageMetadata{}
	if topics, _ := cmd.Flags().GetStringSlice("topics"); len(topics) > 0 {
		meta.Topics = topics
	}
	var sentiment *session.Sentiment
	if cmd.Flags().Changed("sentiment") || cmd.Flags().Changed("label") {
		score, _ := cmd.Flags().GetFloat64("sentiment")
		label, _ := cmd.Flags().GetString("label")
		sentiment = &session.Sentiment{Score: score, Label: label}
		meta.Sentiment = sentiment
	}

	msg, err := a.Sessions.AddMessage(ctx, content, true, meta)
	if err != nil {
		return fmt.Errorf("recording message: %w", err)
	}

	active := a.Sessions.ActiveSession()
	res := a.Memory.StoreMemory(ctx, memory.StoreInput{
		Message:   content,
		Sentiment: sentiment,
		SessionID: active.ID,
		Timestamp: msg.Timestamp,
	})

	if respond, _ := cmd.Flags().GetBool("respond"); respond {
		mock := provider.NewMock()
		reply, err := mock.Complete(ctx, []provider.Message{
			{Role: provider.RoleUser, Content: content},
		}, provider.CompleteOptions{})
		if err != nil {
			return fmt.Errorf("generating reply: %w", err)
		}
		if _, err := a.Sessions.AddMessage(ctx, reply, false, session.MessageMetadata{}); err != nil {
			return fmt.Errorf("recording reply: %w", err)
		}
		fmt.Println(reply)
	}

	if isVerbose() {
		fmt.Printf("Recorded message %s in session %s\n", msg.ID, active.ID)
		if res.Promoted {
			fmt.Printf("Promoted to long-term memory (importance %.2f)\n", res.Importance)
		}
	}
	return nil
}
