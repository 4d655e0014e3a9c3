package commands

import (
	"Whisper/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrUsage is returned by a command when arguments are invalid and usage should be shown.
var ErrUsage = errors.New("usage")

// Audience says who a command is for. Senders never need an account,
// everything else works on the recipient's inbox.
type Audience int

const (
	ForSender Audience = iota
	ForRecipient
)

// Title is the heading of the audience section in help.
func (a Audience) Title() string {
	if a == ForSender {
		return "Send anonymously (no account needed):"
	}
	return "Your inbox (register or login first):"
}

// Command is one `whisper <name>` subcommand.
type Command interface {
	Name() string
	Description() string
	// Usage is the argument synopsis, e.g. "export <image|video|audio> <message-id> [dir]".
	Usage() string
	Audience() Audience
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

var registry = map[string]Command{}

// Out - общий writer для вывода CLI; тесты подменяют его буфером.
var Out io.Writer = os.Stdout

// RegisterCmd adds a command to the registry from an init().
func RegisterCmd(cmd Command) {
	registry[cmd.Name()] = cmd
}

func Get(name string) (Command, bool) {
	c, ok := registry[name]
	return c, ok
}

// ByAudience returns the commands of one audience sorted by name.
func ByAudience(a Audience) []Command {
	var list []Command
	for _, c := range registry {
		if c.Audience() == a {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// FormatGlobalUsage builds the `whisper help` text: sender commands first,
// then the inbox commands.
func FormatGlobalUsage() string {
	var b strings.Builder
	b.WriteString("Whisper CLI - anonymous messages from the terminal\n\n")
	b.WriteString("Usage:\n  whisper [--base-url <host:port>] [--https] <command> [args]\n")
	for _, a := range []Audience{ForSender, ForRecipient} {
		cmds := ByAudience(a)
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", a.Title())
		for _, c := range cmds {
			fmt.Fprintf(&b, "  %-44s %s\n", c.Usage(), c.Description())
		}
	}
	b.WriteString("\nRun `whisper help <command>` for one command.\n")
	return b.String()
}

// formatCommandUsage is the `whisper help <command>` text.
func formatCommandUsage(c Command) string {
	return fmt.Sprintf("Usage: whisper %s\n\n%s\n", c.Usage(), c.Description())
}
