package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/quicknotes-agent/internal/app/assistant"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	Long: `Starts an interactive session. Type a message and press enter.
/reset forgets the conversation, /reset all forgets every user's,
/quit (or EOF) exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := build(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.close() }()

		user := chatUser
		if user == "" {
			user = cfg.Auth.DevUserID
		}
		return runChat(cmd.Context(), a.assistant, domain.UserID(user), os.Stdin, cmd.OutOrStdout())
	},
}

func runChat(ctx context.Context, asst *assistant.Service, user domain.UserID, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Hi, I'm Quick. What would you like to do with your notes?")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			asst.Reset(user)
			fmt.Fprintln(out, "Conversation reset.")
			continue
		case "/reset all":
			asst.ResetAll()
			fmt.Fprintln(out, "All conversations reset.")
			continue
		}

		reply := asst.Resolve(ctx, user, line)
		fmt.Fprintln(out, reply.Message)
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatUser, "user", "", "Owner id for the session (defaults to the dev user)")
}
