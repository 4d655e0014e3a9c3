package handlers

import (
	"Whisper/internal/config"
	"Whisper/internal/middleware"
	"Whisper/internal/model"
	"Whisper/internal/service"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserHandler - регистрация, вход и профили.
type UserHandler struct {
	UserService    *service.UserService
	MessageService *service.MessageService
	Logger         *zap.SugaredLogger
	Config         *config.Config
}

func NewUserHandler(userService *service.UserService, messageService *service.MessageService, logger *zap.SugaredLogger, cfg *config.Config) *UserHandler {
	return &UserHandler{UserService: userService, MessageService: messageService, Logger: logger, Config: cfg}
}

type credentialsRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// ProfileResponse - профиль текущего пользователя.
type ProfileResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	ShareLink   string    `json:"share_link"`
	Unread      int64     `json:"unread"`
	CreatedAt   time.Time `json:"created_at"`
}

// PublicProfileResponse - то, что видит анонимный отправитель.
type PublicProfileResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func (h *UserHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("invalid credentials body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request")
		return req, false
	}
	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "login and password are required")
		return req, false
	}
	return req, true
}

func (h *UserHandler) startSession(w http.ResponseWriter, u *model.User) bool {
	if err := middleware.SetLoginCookie(w, u.ID, h.Config.AuthSecret); err != nil {
		h.Logger.Errorw("failed to set auth cookie", "user_id", u.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	return true
}

// Register регистрирует получателя; профиль создаётся тем же шагом.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	user, err := h.UserService.Register(r.Context(), req.Login, req.Password, req.DisplayName)
	if err != nil {
		respondError(w, h.Logger, "Register", err)
		return
	}
	if !h.startSession(w, user) {
		return
	}
	h.Logger.Infow("user registered", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusOK, h.profile(user, 0))
}

// Login проверяет пароль и выставляет cookie.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}
	user, err := h.UserService.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		respondError(w, h.Logger, "Login", err)
		return
	}
	if !h.startSession(w, user) {
		return
	}
	writeJSON(w, http.StatusOK, h.profile(user, 0))
}

// Logout стирает cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me - профиль, ссылка для шаринга и число непрочитанных.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	user, err := h.UserService.GetProfile(r.Context(), userID)
	if err != nil {
		respondError(w, h.Logger, "Me", err)
		return
	}
	unread, err := h.MessageService.CountUnread(r.Context(), userID)
	if err != nil {
		respondError(w, h.Logger, "Me", err)
		return
	}
	writeJSON(w, http.StatusOK, h.profile(user, unread))
}

// PublicProfile - профиль по username для страницы отправки.
func (h *UserHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetProfileByHandle(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respondError(w, h.Logger, "PublicProfile", err)
		return
	}
	writeJSON(w, http.StatusOK, PublicProfileResponse{Username: user.Username, DisplayName: user.DisplayName})
}

// Status - отладочный эндпоинт: кто я по cookie.
func (h *UserHandler) Status(w http.ResponseWriter, r *http.Request) {
	result := "anonymous"
	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		result = fmt.Sprintf("User ID = %d", userID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

func (h *UserHandler) profile(u *model.User, unread int64) ProfileResponse {
	return ProfileResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		ShareLink:   h.Config.ShareLink(u.Username),
		Unread:      unread,
		CreatedAt:   u.CreatedAt,
	}
}
