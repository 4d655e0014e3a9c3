package commands

import (
	"Whisper/internal/config"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Exit codes of the whisper binary.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitNoLogin = 3
)

const loginHint = "Run `whisper login <username> <password>` (or `whisper register` for a new inbox)."

// Dispatch runs the command named by args[0] and returns the process exit code.
func Dispatch(ctx context.Context, cfg *config.Config, args []string) int {
	for _, a := range os.Args[1:] {
		if a == "--help" || a == "-h" {
			fmt.Fprint(Out, FormatGlobalUsage())
			return exitOK
		}
	}
	if !flag.Parsed() {
		flag.Parse()
	}

	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return exitUsage
	}

	name := strings.ToLower(args[0])
	if name == "help" {
		return help(args[1:])
	}
	c, ok := Get(name)
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", name)
		fmt.Fprint(Out, FormatGlobalUsage())
		return exitUsage
	}
	return report(c, cfg, c.Run(ctx, cfg, args[1:]))
}

func help(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(Out, FormatGlobalUsage())
		return exitOK
	}
	c, ok := Get(strings.ToLower(args[0]))
	if !ok {
		fmt.Fprintf(Out, "Unknown command: %s\n\n", args[0])
		fmt.Fprint(Out, FormatGlobalUsage())
		return exitUsage
	}
	fmt.Fprint(Out, formatCommandUsage(c))
	return exitOK
}

// report prints err the way a user can act on it.
func report(c Command, cfg *config.Config, err error) int {
	var (
		srvErr *ServerError
		urlErr *url.Error
	)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrUsage):
		fmt.Fprintf(Out, "Usage: whisper %s\n", c.Usage())
		return exitUsage
	case errors.Is(err, ErrNotLoggedIn):
		fmt.Fprintf(Out, "%s: you are not logged in.\n%s\n", c.Name(), loginHint)
		return exitNoLogin
	case errors.Is(err, ErrSessionExpired):
		// токен больше не принимается сервером
		_ = authStore.Clear()
		fmt.Fprintf(Out, "%s: your session has expired.\n%s\n", c.Name(), loginHint)
		return exitNoLogin
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(Out, "%s: interrupted\n", c.Name())
		return exitFailed
	case errors.As(err, &srvErr) && srvErr.Status >= 500:
		fmt.Fprintf(Out, "%s: the Whisper server failed (%d): %s\n", c.Name(), srvErr.Status, srvErr.Message)
		return exitFailed
	case errors.As(err, &urlErr):
		fmt.Fprintf(Out, "%s: cannot reach the Whisper server at %s\nCheck --base-url and that the server is running.\n", c.Name(), cfg.ServerURL)
		return exitFailed
	}
	fmt.Fprintf(Out, "%s error: %v\n", c.Name(), err)
	return exitFailed
}
