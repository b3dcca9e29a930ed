package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillmate/quillmate/internal/chat"
	"github.com/quillmate/quillmate/internal/tui"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long: "Opens the selected chat (or the most recent one) and streams replies.\n" +
			"Type /help inside the chat for commands.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
}

// runChat starts the interactive chat (REPL) mode.
func runChat(ctx context.Context) error {
	a, err := newApp(appOptions{providers: true, store: true, quietConsole: useTUI})
	if err != nil {
		return err
	}
	defer a.Close()

	temp := a.settings.Temperature
	svc := chat.NewService(a.dispatcher, a.store, chat.Config{
		Temperature:     &temp,
		MaxTokens:       a.settings.MaxTokens,
		MaxHistory:      a.cfg.Chat.MaxHistory,
		ContextMessages: a.cfg.Chat.ContextMessages,
	}, a.log)

	status := tui.Status{
		Provider: a.dispatcher.Primary().Name(),
		Model:    a.dispatcher.Primary().DefaultModel(),
	}
	if a.dispatcher.FallbackEnabled() {
		status.Provider += " (+fallback)"
	}

	if useTUI {
		current, err := svc.Current()
		if err != nil {
			return err
		}
		tuiCfg := tui.TUIConfig{
			Version:     displayVersion(),
			Status:      tui.Status{Provider: status.Provider, Model: status.Model, Chat: current.Title},
			Commands:    chat.Commands(),
			ShowWelcome: true,
		}
		return tui.RunTUI(ctx, tuiCfg, func(ctx context.Context, ui tui.IO) error {
			return chat.NewREPL(svc, ui, status, a.log).Run(ctx)
		})
	}

	ui := tui.NewPlainIO()
	if a.settings.TestMode {
		fmt.Fprintln(os.Stderr, "Test mode: replies are canned, no provider is called.")
	}
	return chat.NewREPL(svc, ui, status, a.log).Run(ctx)
}

func newChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List, rename or delete saved chats",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved chats, most recent first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withChats(func(svc *chat.Service, a *app) error {
					infos, err := svc.List()
					if err != nil {
						return err
					}
					if len(infos) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No chats yet.")
						return nil
					}
					current, err := a.store.CurrentChatID()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), chat.FormatList(infos, current))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a chat (an id prefix is enough)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withChats(func(svc *chat.Service, _ *app) error {
					if err := svc.Delete(args[0]); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Chat deleted.")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rename ID TITLE",
			Short: "Rename a chat",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withChats(func(svc *chat.Service, _ *app) error {
					c, err := svc.Rename(args[0], args[1])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %q.\n", c.Title)
					return nil
				})
			},
		},
	)
	return cmd
}

// withChats runs fn with a chat service that has no provider behind it;
// only transcript management is available.
func withChats(fn func(svc *chat.Service, a *app) error) error {
	a, err := newApp(appOptions{store: true})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(chat.NewService(nil, a.store, chat.Config{}, a.log), a)
}
