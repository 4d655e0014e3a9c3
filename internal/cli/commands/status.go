package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"Whisper/internal/cli/api"
	"Whisper/internal/config"
)

type dataResponse struct {
	Result string `json:"result"`
}

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Check who the server thinks you are" }
func (statusCmd) Usage() string       { return "status" }
func (statusCmd) Audience() Audience  { return ForRecipient }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	token, _ := authStore.Load()
	resp, body, err := api.PostJSON(ctx, endpoint(cfg, "/api/user/test"), struct{}{}, token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return serverError(resp, body)
	}
	var dr dataResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	fmt.Fprintln(Out, "Status:", dr.Result)
	return nil
}

type meCmd struct{}

func (meCmd) Name() string        { return "me" }
func (meCmd) Description() string { return "Show your profile, share link and unread count" }
func (meCmd) Usage() string       { return "me" }
func (meCmd) Audience() Audience  { return ForRecipient }

func (meCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	tok, err := loadToken()
	if err != nil {
		return err
	}
	resp, body, err := api.Get(ctx, endpoint(cfg, "/api/user/me"), tok)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return serverError(resp, body)
	}
	var p profileResponse
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	fmt.Fprintf(Out, "%s (@%s)\nShare link: %s\nUnread: %d\n", p.DisplayName, p.Username, p.ShareLink, p.Unread)
	return nil
}

func init() {
	RegisterCmd(statusCmd{})
	RegisterCmd(meCmd{})
}
