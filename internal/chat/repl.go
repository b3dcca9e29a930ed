package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quillmate/quillmate/internal/provider"
	"github.com/quillmate/quillmate/internal/session"
	"github.com/quillmate/quillmate/internal/tui"
)

// Commands lists the slash commands understood by the REPL.
func Commands() []tui.SlashMenuItem {
	return []tui.SlashMenuItem{
		{Name: "/new", Desc: "Start a new chat"},
		{Name: "/list", Desc: "List chats"},
		{Name: "/switch", Desc: "<id>  Switch to another chat"},
		{Name: "/rename", Desc: "<title>  Rename this chat"},
		{Name: "/delete", Desc: "<id>  Delete a chat"},
		{Name: "/clear", Desc: "Clear this chat's messages"},
		{Name: "/help", Desc: "Show commands"},
		{Name: "/quit", Desc: "Exit"},
	}
}

// REPL reads prompts and slash commands from an IO and streams replies
// back into it.
type REPL struct {
	svc    *Service
	io     tui.IO
	status tui.Status
	log    *zap.Logger
}

// NewREPL creates a REPL. status carries the provider and model shown in the
// status bar; the chat title is filled in as chats change.
func NewREPL(svc *Service, ui tui.IO, status tui.Status, log *zap.Logger) *REPL {
	if log == nil {
		log = zap.NewNop()
	}
	return &REPL{svc: svc, io: ui, status: status, log: log}
}

// Run loops until the input ends, /quit is entered or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	c, err := r.svc.Current()
	if err != nil {
		return err
	}
	r.updateStatus(c)
	if len(c.Messages) > 0 {
		r.io.SystemMessage(fmt.Sprintf("Resumed %q (%d messages). /help for commands.", c.Title, len(c.Messages)))
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := r.io.ReadInput()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := r.handleCommand(input); quit {
				return nil
			}
			continue
		}
		r.send(ctx, input)
	}
}

// send streams one reply. Front ends implementing tui.ReplyCanceller can
// abort it without ending the REPL.
func (r *REPL) send(ctx context.Context, input string) {
	r.io.UserMessage(input)
	r.io.ThinkingStart()

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if rc, ok := r.io.(tui.ReplyCanceller); ok {
		rc.SetReplyCancel(cancel)
		defer rc.ClearReplyCancel()
	}

	reply, err := r.svc.Send(rctx, input, func(snap provider.Snapshot) {
		switch {
		case snap.Err != nil:
		case snap.Done:
			r.io.TextDone(snap.Text)
		default:
			r.io.TextUpdate(snap.Text)
		}
	})
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		if reply != "" {
			r.io.TextDone(reply)
		}
		r.io.SystemMessage("[cancelled]")
	default:
		r.io.Error(err.Error())
	}

	if c, cerr := r.svc.Current(); cerr == nil {
		r.updateStatus(c)
	}
}

// handleCommand runs a slash command and reports whether the REPL should exit.
func (r *REPL) handleCommand(input string) bool {
	parts := strings.SplitN(strings.TrimSpace(input), " ", 2)
	cmd := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		r.io.SystemMessage("Bye.")
		return true
	case "/new":
		c, err := r.svc.NewChat()
		if err != nil {
			r.io.Error(err.Error())
			return false
		}
		r.updateStatus(c)
		r.io.SystemMessage("Started a new chat " + shortID(c.ID) + ".")
	case "/list":
		r.handleList()
	case "/switch":
		if arg == "" {
			r.io.Error("usage: /switch <id>")
			return false
		}
		c, err := r.svc.Switch(arg)
		if err != nil {
			r.io.Error(err.Error())
			return false
		}
		r.updateStatus(c)
		r.io.SystemMessage(fmt.Sprintf("Switched to %q (%d messages).", c.Title, len(c.Messages)))
		if len(c.Messages) > 0 {
			r.io.SystemMessage(formatHistory(c.Messages, 6))
		}
	case "/rename":
		if arg == "" {
			r.io.Error("usage: /rename <title>")
			return false
		}
		c, err := r.svc.Rename("", arg)
		if err != nil {
			r.io.Error(err.Error())
			return false
		}
		r.updateStatus(c)
		r.io.SystemMessage(fmt.Sprintf("Renamed to %q.", c.Title))
	case "/delete":
		if arg == "" {
			r.io.Error("usage: /delete <id>")
			return false
		}
		if err := r.svc.Delete(arg); err != nil {
			r.io.Error(err.Error())
			return false
		}
		r.io.SystemMessage("Chat deleted.")
		if c, err := r.svc.Current(); err == nil {
			r.updateStatus(c)
		}
	case "/clear":
		if err := r.svc.Clear(); err != nil {
			r.io.Error(err.Error())
			return false
		}
		r.io.SystemMessage("Chat cleared.")
	case "/help":
		r.io.SystemMessage(helpText())
	default:
		r.io.Error(fmt.Sprintf("unknown command %s (try /help)", cmd))
	}
	return false
}

func (r *REPL) handleList() {
	infos, err := r.svc.List()
	if err != nil {
		r.io.Error(err.Error())
		return
	}
	if len(infos) == 0 {
		r.io.SystemMessage("No chats yet.")
		return
	}
	currentID := ""
	if c, err := r.svc.Current(); err == nil {
		currentID = c.ID
	}
	r.io.SystemMessage(FormatList(infos, currentID))
}

func (r *REPL) updateStatus(c *session.Chat) {
	st := r.status
	st.Chat = c.Title
	r.io.SetStatus(st)
}

// FormatList renders chat summaries one per line, marking the selected one.
func FormatList(infos []session.ChatInfo, currentID string) string {
	var b strings.Builder
	for i, info := range infos {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := " "
		if info.ID == currentID {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s %s  %-40s  %3d msgs  %s",
			mark, shortID(info.ID), info.Title, info.Messages, info.UpdatedAt.Local().Format(time.DateTime))
	}
	return b.String()
}

func formatHistory(msgs []session.Message, last int) string {
	if len(msgs) > last {
		msgs = msgs[len(msgs)-last:]
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		content := strings.ReplaceAll(m.Content, "\n", " ")
		if r := []rune(content); len(r) > 80 {
			content = string(r[:80]) + "…"
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, content)
	}
	return b.String()
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, c := range Commands() {
		fmt.Fprintf(&b, "\n  %-8s %s", c.Name, c.Desc)
	}
	return b.String()
}

// shortID returns the first 8 characters of a chat id, enough to pass to
// /switch and /delete.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
