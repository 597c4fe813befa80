package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codescope/internal/api"
	"github.com/codescope/internal/domain"
	"github.com/codescope/pkg/markdown"
)

var chatDir string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the backend about an analyzed upload",
	Long: `Chat opens a question/answer loop against the backend's chat service.
Pass --dir with the upload directory printed by the analyze command to
scope the conversation to that codebase.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatDir, "dir", "",
		"upload directory to scope the conversation to")
}

func runChat(cmd *cobra.Command, args []string) error {
	client := api.New(&cfg.Backend, zapLogger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Chat.Timeout)
	session, err := client.StartChatSession(ctx, chatDir)
	cancel()
	if err != nil {
		return fmt.Errorf("%s", domain.UserMessage(err))
	}

	out := cmd.OutOrStdout()
	if session.CodebaseInfo != "" {
		fmt.Fprintln(out, session.CodebaseInfo)
	}
	fmt.Fprintln(out, "type a question, or /quit to leave")

	renderer := markdown.NewRenderer()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" || text == "/exit" {
			return nil
		}

		msgCtx, cancelMsg := context.WithTimeout(context.Background(), cfg.Chat.Timeout)
		reply, err := client.SendChatMessage(msgCtx, session.SessionID, text)
		cancelMsg()
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", domain.UserMessage(err))
			continue
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, renderer.Render(reply.Content))
	}
}
