package commands

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"Whisper/internal/cli/api"
	"Whisper/internal/cli/repo"
	fsrepo "Whisper/internal/cli/repo/fs"
	"Whisper/internal/config"
)

var (
	// ErrNotLoggedIn возвращается командами, которым нужна сессия.
	ErrNotLoggedIn = errors.New("not logged in: run login or register first")
	// ErrSessionExpired - сервер отклонил сохранённый токен.
	ErrSessionExpired = errors.New("session expired: run login again")
)

// ServerError - неуспешный ответ API.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Status < http.StatusInternalServerError {
		return e.Message
	}
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// authStore - хранилище сессии CLI; в тестах остаётся файловым на temp-каталоге.
var authStore repo.AuthStore = fsrepo.AuthFSStore{}

func endpoint(cfg *config.Config, path string) string {
	return strings.TrimRight(cfg.ServerURL, "/") + path
}

func loadToken() (string, error) {
	tok, err := authStore.Load()
	if err != nil || tok == "" {
		return "", ErrNotLoggedIn
	}
	return tok, nil
}

// serverError переводит неуспешный ответ в ошибку команды.
func serverError(resp *http.Response, body []byte) error {
	msg := api.ErrorMessage(body)
	if resp.StatusCode == http.StatusUnauthorized && msg == "unauthorized" {
		return ErrSessionExpired
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ServerError{Status: resp.StatusCode, Message: msg}
}
