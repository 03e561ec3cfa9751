package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"livechat/internal/chat"
	"livechat/internal/models"
)

const helpText = `commands:
  /rooms                 list rooms
  /who                   list online users
  /room <id>             switch room
  /pm <user-id>          open a private conversation (no id returns to the room)
  /open /close           show or hide the chat
  /minimize /restore     minimize or restore the chat
  /persist on|off        keep polling while hidden
  /quit                  exit
anything else is sent to the active room or conversation`

const moderatorHelpText = `moderation:
  /ban <user-id> <reason> ban a user from chat`

// execute runs one line of user input against sess.
func execute(ctx context.Context, sess *chat.Session, line string, out io.Writer) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		sess.SetDraft(line)
		_, err := sess.SubmitDraft(ctx)
		return false, err
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, helpText)
		if sess.CanModerate() {
			fmt.Fprintln(out, moderatorHelpText)
		}
	case "/rooms":
		for _, r := range sess.Snapshot().Rooms {
			count := "?"
			if r.ParticipantCount != models.UnknownParticipants {
				count = fmt.Sprint(r.ParticipantCount)
			}
			fmt.Fprintf(out, "  %-14s %-20s %s online\n", r.ID, r.Name, count)
		}
	case "/who":
		for _, p := range sess.Snapshot().Presence {
			fmt.Fprintf(out, "  %-14s %-20s %s\n", p.UserID, p.Username, p.Role)
		}
	case "/room":
		if rest == "" {
			return false, fmt.Errorf("usage: /room <id>")
		}
		return false, sess.SelectRoom(rest)
	case "/pm":
		return false, sess.SelectConversation(rest)
	case "/ban":
		if !sess.CanModerate() {
			return false, unknownCommand(cmd)
		}
		userID, reason, _ := strings.Cut(rest, " ")
		if err := sess.BanUser(ctx, userID, reason); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "* %s banned\n", userID)
	case "/open":
		return false, sess.SetOpen(true)
	case "/close":
		return false, sess.SetOpen(false)
	case "/minimize":
		return false, sess.SetMinimized(true)
	case "/restore":
		return false, sess.SetMinimized(false)
	case "/persist":
		switch rest {
		case "on":
			return false, sess.SetPersistentMode(true)
		case "off":
			return false, sess.SetPersistentMode(false)
		default:
			return false, fmt.Errorf("usage: /persist on|off")
		}
	default:
		return false, unknownCommand(cmd)
	}
	return false, nil
}

func unknownCommand(cmd string) error {
	return fmt.Errorf("unknown command %s; try /help", cmd)
}

// printer writes messages the user has not seen yet.
type printer struct {
	mu    sync.Mutex
	out   io.Writer
	state chat.State
	view  string
	seen  map[string]bool
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, seen: map[string]bool{}}
}

func (p *printer) render(snap chat.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.State != p.state {
		p.state = snap.State
		fmt.Fprintf(p.out, "* %s\n", snap.State)
	}

	view, list := "#"+snap.Session.ActiveRoomID, snap.Messages
	if peer := snap.Session.ActivePeerID; peer != "" {
		view, list = "@"+peer, snap.Conversation
	}
	if view != p.view && view != "#" {
		p.view = view
		fmt.Fprintf(p.out, "* now viewing %s\n", view)
	}

	for _, m := range list {
		if p.seen[m.ID] {
			continue
		}
		p.seen[m.ID] = true
		fmt.Fprintln(p.out, formatMessage(m))
	}
}

func formatMessage(m models.Message) string {
	ts := m.Timestamp.Local().Format("15:04:05")
	if m.IsSystem {
		return fmt.Sprintf("[%s] * %s", ts, m.Text)
	}
	return fmt.Sprintf("[%s] <%s> %s", ts, m.SenderUsername, m.Text)
}
