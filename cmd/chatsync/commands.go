package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vdavid/chatsync/internal/chat"
	"github.com/vdavid/chatsync/internal/models"
)

var errEmptyInput = errors.New("empty input")

// command is one parsed input line. Plain text parses to "send".
type command struct {
	name string
	args []string
}

type commandSpec struct {
	// arity is the number of arguments; the last one takes the rest of the line.
	arity int
	usage string
}

var commands = map[string]commandSpec{
	"help":       {0, "/help"},
	"quit":       {0, "/quit"},
	"list":       {0, "/list"},
	"status":     {0, "/status"},
	"open":       {1, "/open <conversation-id>"},
	"threads":    {0, "/threads"},
	"thread":     {1, "/thread <thread-id>"},
	"main":       {0, "/main"},
	"new-thread": {2, "/new-thread <MESSAGE|TOPIC|PROJECT|DECISION|DOCUMENTATION> <name>"},
	"reply":      {2, "/reply <message-id> <text>"},
	"edit":       {2, "/edit <message-id> <text>"},
	"delete":     {1, "/delete <message-id>"},
	"react":      {2, "/react <message-id> <emoji>"},
	"unreact":    {2, "/unreact <message-id> <emoji>"},
	"toggle":     {2, "/toggle <message-id> <emoji>"},
	"failed":     {0, "/failed"},
	"retry":      {1, "/retry <message-id>"},
	"discard":    {1, "/discard <message-id>"},
	"typing":     {0, "/typing"},
	"upload":     {1, "/upload <path>"},
	"download":   {2, "/download <file-id> <path>"},
	"classify":   {1, "/classify <message-id>"},
}

func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, errEmptyInput
	}
	if !strings.HasPrefix(line, "/") {
		return command{name: "send", args: []string{line}}, nil
	}

	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return command{}, errEmptyInput
	}

	name := strings.ToLower(fields[0])
	spec, ok := commands[name]
	if !ok {
		return command{}, fmt.Errorf("unknown command /%s, try /help", name)
	}

	rest := fields[1:]
	if len(rest) < spec.arity {
		return command{}, fmt.Errorf("usage: %s", spec.usage)
	}
	if spec.arity == 0 {
		return command{name: name}, nil
	}

	args := make([]string, 0, spec.arity)
	args = append(args, rest[:spec.arity-1]...)
	args = append(args, strings.Join(rest[spec.arity-1:], " "))
	return command{name: name, args: args}, nil
}

// execute runs one command. It reports true when the session should end.
func (a *app) execute(ctx context.Context, cmd command) (bool, error) {
	state := a.store.State()

	switch cmd.name {
	case "quit":
		return true, nil

	case "help":
		a.printf("%s", helpText())

	case "status":
		a.printf("connection: %s, unread: %d\n", chat.ConnectivityLabel(state), chat.TotalUnread(state))

	case "list":
		if _, err := a.commander.LoadConversations(ctx); err != nil {
			return false, err
		}
		for _, line := range conversationLines(a.store.State()) {
			a.printf("%s\n", line)
		}

	case "open":
		if err := a.commander.SelectConversation(ctx, cmd.args[0]); err != nil {
			return false, err
		}

	case "threads":
		if state.ActiveConversationID == "" {
			return false, chat.ErrNoConversation
		}
		if err := a.commander.LoadThreads(ctx, state.ActiveConversationID); err != nil {
			return false, err
		}
		for _, line := range threadLines(a.store.State()) {
			a.printf("%s\n", line)
		}

	case "thread":
		return false, a.commander.SelectThread(ctx, cmd.args[0])

	case "main":
		return false, a.commander.SelectThread(ctx, "")

	case "new-thread":
		_, err := a.commander.CreateThread(ctx, models.CreateThreadRequest{
			ConversationID: state.ActiveConversationID,
			Type:           models.ThreadType(strings.ToUpper(cmd.args[0])),
			Name:           cmd.args[1],
		}, true)
		return false, err

	case "send":
		return false, a.send(ctx, state, cmd.args[0], "")

	case "reply":
		return false, a.send(ctx, state, cmd.args[1], cmd.args[0])

	case "edit":
		return false, a.commander.EditMessage(ctx, cmd.args[0], cmd.args[1])

	case "delete":
		return false, a.commander.DeleteMessage(ctx, cmd.args[0])

	case "react":
		return false, a.commander.AddReaction(ctx, cmd.args[0], cmd.args[1])

	case "unreact":
		return false, a.commander.RemoveReaction(ctx, cmd.args[0], cmd.args[1])

	case "toggle":
		_, err := a.commander.ToggleReaction(ctx, cmd.args[0], cmd.args[1])
		return false, err

	case "failed":
		for _, m := range chat.FailedMessages(state, state.ActiveConversationID) {
			a.printf("%s\n", formatMessage(state, m))
		}

	case "retry":
		_, err := a.commander.RetryMessage(ctx, cmd.args[0])
		return false, err

	case "discard":
		return false, a.commander.DiscardMessage(cmd.args[0])

	case "typing":
		if state.ActiveConversationID == "" {
			return false, chat.ErrNoConversation
		}
		a.typing.Keystroke(state.ActiveConversationID)

	case "upload":
		return false, a.upload(ctx, state, cmd.args[0])

	case "download":
		data, err := a.commander.DownloadAttachment(ctx, cmd.args[0])
		if err != nil {
			return false, err
		}
		if err := os.WriteFile(cmd.args[1], data, 0o600); err != nil {
			return false, fmt.Errorf("failed to write %s: %w", cmd.args[1], err)
		}
		a.printf("saved %d bytes to %s\n", len(data), cmd.args[1])

	case "classify":
		c, err := a.commander.Classification(ctx, cmd.args[0])
		if err != nil {
			return false, err
		}
		a.printf("%s: %s %s\n", c.ResourceID, c.Level, c.Label)
	}

	return false, nil
}

func (a *app) send(ctx context.Context, state *chat.State, text, replyTo string) error {
	a.typing.Stop(state.ActiveConversationID)
	_, err := a.commander.SendMessage(ctx, models.SendMessageRequest{
		ConversationID: state.ActiveConversationID,
		ThreadID:       state.ActiveThreadID,
		ReplyToID:      replyTo,
		Content:        text,
	})
	return err
}

func (a *app) upload(ctx context.Context, state *chat.State, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ref, err := a.commander.UploadAttachment(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	_, err = a.commander.SendMessage(ctx, models.SendMessageRequest{
		ConversationID: state.ActiveConversationID,
		ThreadID:       state.ActiveThreadID,
		Type:           models.MessageFile,
		FileIDs:        []string{ref.ID},
	})
	return err
}

func helpText() string {
	names := []string{
		"list", "open", "status", "threads", "thread", "main", "new-thread",
		"reply", "edit", "delete", "react", "unreact", "toggle",
		"failed", "retry", "discard", "typing", "upload", "download", "classify", "quit",
	}
	var b strings.Builder
	b.WriteString("Type a line to send it to the open conversation. Commands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", commands[name].usage)
	}
	return b.String()
}
