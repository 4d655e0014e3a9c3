package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"Whisper/internal/cli/api"
	"Whisper/internal/config"
	"Whisper/internal/render"
)

type messageResponse struct {
	ID          string    `json:"id"`
	Content     *string   `json:"content"`
	AudioURL    *string   `json:"audio_url"`
	MessageType string    `json:"message_type"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

const previewRunes = 60

func preview(m messageResponse) string {
	text := ""
	if m.Content != nil {
		text = strings.Join(strings.Fields(*m.Content), " ")
	}
	if utf8.RuneCountInString(text) > previewRunes {
		r := []rune(text)
		text = string(r[:previewRunes-1]) + "…"
	}
	if m.AudioURL != nil {
		if text != "" {
			text += " "
		}
		text += "[voice]"
	}
	return text
}

type inboxCmd struct{}

func (inboxCmd) Name() string        { return "inbox" }
func (inboxCmd) Description() string { return "List received messages, newest first (* = unread)" }
func (inboxCmd) Usage() string       { return "inbox" }
func (inboxCmd) Audience() Audience  { return ForRecipient }

func (inboxCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	tok, err := loadToken()
	if err != nil {
		return err
	}
	resp, body, err := api.Get(ctx, endpoint(cfg, "/api/messages"), tok)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return serverError(resp, body)
	}
	var msgs []messageResponse
	if err := json.Unmarshal(body, &msgs); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if len(msgs) == 0 {
		fmt.Fprintln(Out, "No messages yet. Share your link to get some.")
		return nil
	}
	for _, m := range msgs {
		mark := " "
		if !m.IsRead {
			mark = "*"
		}
		fmt.Fprintf(Out, "%s %s  %s  %-5s  %s\n", mark, m.ID, m.CreatedAt.Local().Format("2006-01-02 15:04"), strings.ToUpper(m.MessageType), preview(m))
	}
	return nil
}

// readCmd ставит или снимает отметку о прочтении.
type readCmd struct {
	read bool
}

func (c readCmd) Name() string {
	if c.read {
		return "read"
	}
	return "unread"
}

func (c readCmd) Description() string {
	if c.read {
		return "Mark a message as read"
	}
	return "Mark a message as unread"
}

func (c readCmd) Usage() string    { return c.Name() + " <message-id>" }
func (readCmd) Audience() Audience { return ForRecipient }

func (c readCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return ErrUsage
	}
	tok, err := loadToken()
	if err != nil {
		return err
	}
	path := "/api/messages/" + url.PathEscape(args[0]) + "/read"
	resp, body, err := api.PostJSON(ctx, endpoint(cfg, path), map[string]bool{"read": c.read}, tok)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return serverError(resp, body)
	}
	fmt.Fprintf(Out, "Marked %s as %s\n", args[0], c.Name())
	return nil
}

type sendCmd struct{}

func (sendCmd) Name() string        { return "send" }
func (sendCmd) Description() string { return "Send an anonymous message (text and/or voice file)" }
func (sendCmd) Usage() string       { return "send [-audio <file>] <username> [text]" }
func (sendCmd) Audience() Audience  { return ForSender }

func (sendCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	audioPath := fs.String("audio", "", "voice file to attach")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	rest := fs.Args()
	if len(rest) < 1 || rest[0] == "" {
		return ErrUsage
	}
	text := strings.Join(rest[1:], " ")
	if strings.TrimSpace(text) == "" && *audioPath == "" {
		return ErrUsage
	}
	target := endpoint(cfg, "/api/send/"+url.PathEscape(strings.TrimPrefix(rest[0], "@")))

	var (
		resp *http.Response
		body []byte
		err  error
	)
	if *audioPath != "" {
		data, rerr := os.ReadFile(*audioPath)
		if rerr != nil {
			return fmt.Errorf("read audio: %w", rerr)
		}
		resp, body, err = api.PostAudio(ctx, target, text, *audioPath, data)
	} else {
		resp, body, err = api.PostJSON(ctx, target, map[string]string{"text": text}, "")
	}
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return serverError(resp, body)
	}
	fmt.Fprintln(Out, "Your anonymous message was sent.")
	return nil
}

var exportKinds = map[string]string{
	"image": "jpg",
	"video": "webm",
	"audio": "mp3",
}

type exportCmd struct{}

func (exportCmd) Name() string        { return "export" }
func (exportCmd) Description() string { return "Download a message as image, video or audio file" }
func (exportCmd) Usage() string       { return "export <image|video|audio> <message-id> [dir]" }
func (exportCmd) Audience() Audience  { return ForRecipient }

func (exportCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return ErrUsage
	}
	kind := strings.ToLower(args[0])
	ext, ok := exportKinds[kind]
	if !ok || args[1] == "" {
		return ErrUsage
	}
	dir := "."
	if len(args) == 3 {
		dir = args[2]
	}
	tok, err := loadToken()
	if err != nil {
		return err
	}
	if kind == "video" {
		fmt.Fprintln(Out, "Rendering video, this can take a while...")
	}
	path := "/api/messages/" + url.PathEscape(args[1]) + "/" + kind
	resp, body, err := api.Get(ctx, endpoint(cfg, path), tok)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return serverError(resp, body)
	}
	name, ok := api.AttachmentFilename(resp)
	if !ok {
		name = "whisper-" + args[1] + "." + ext
	}
	sink := render.DirSink{Dir: dir}
	if err := sink.SaveArtifact(ctx, body, name, resp.Header.Get("Content-Type")); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Saved", filepath.Join(dir, name))
	return nil
}

func init() {
	RegisterCmd(inboxCmd{})
	RegisterCmd(readCmd{read: true})
	RegisterCmd(readCmd{read: false})
	RegisterCmd(sendCmd{})
	RegisterCmd(exportCmd{})
}
