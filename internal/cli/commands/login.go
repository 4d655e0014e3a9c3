package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"Whisper/internal/cli/api"
	"Whisper/internal/config"
)

type LoginRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type profileResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	ShareLink   string `json:"share_link"`
	Unread      int64  `json:"unread"`
}

// authenticate - общий путь login/register: POST, сохранение cookie и логина.
func authenticate(ctx context.Context, url string, req LoginRequest) (*profileResponse, error) {
	resp, body, err := api.PostJSON(ctx, url, req, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp, body)
	}
	if err := api.PersistAuthFromResponse(resp); err != nil {
		return nil, fmt.Errorf("saving auth: %w", err)
	}
	var p profileResponse
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := authStore.SaveLogin(p.Username); err != nil {
		return nil, fmt.Errorf("saving login: %w", err)
	}
	return &p, nil
}

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Login and store auth cookie" }
func (loginCmd) Usage() string       { return "login <login> <password>" }
func (loginCmd) Audience() Audience  { return ForRecipient }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	p, err := authenticate(ctx, endpoint(cfg, "/api/user/login"), LoginRequest{Login: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Logged in as @%s\n", p.Username)
	return nil
}

type registerCmd struct{}

func (registerCmd) Name() string        { return "register" }
func (registerCmd) Description() string { return "Create an account and print your share link" }
func (registerCmd) Usage() string       { return "register <login> <password> [display name]" }
func (registerCmd) Audience() Audience  { return ForRecipient }

func (registerCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	req := LoginRequest{Login: args[0], Password: args[1], DisplayName: strings.Join(args[2:], " ")}
	p, err := authenticate(ctx, endpoint(cfg, "/api/user/register"), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Registered @%s\nShare link: %s\n", p.Username, p.ShareLink)
	return nil
}

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "Forget the stored session" }
func (logoutCmd) Usage() string       { return "logout" }
func (logoutCmd) Audience() Audience  { return ForRecipient }

// Run чистит локальную сессию; сервер уведомляется по возможности.
func (logoutCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if tok, err := authStore.Load(); err == nil {
		_, _, _ = api.PostJSON(ctx, endpoint(cfg, "/api/user/logout"), struct{}{}, tok)
	}
	if err := authStore.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Logged out")
	return nil
}

func init() {
	RegisterCmd(loginCmd{})
	RegisterCmd(registerCmd{})
	RegisterCmd(logoutCmd{})
}
