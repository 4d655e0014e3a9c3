package handlers

import (
	"Whisper/internal/config"
	"Whisper/internal/middleware"
	"Whisper/internal/model"
	"Whisper/internal/service"
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// ViewHandler - серверные HTML-страницы: отправка, вход/регистрация, входящие.
type ViewHandler struct {
	UserService    *service.UserService
	MessageService *service.MessageService
	Exports        *ExportHandler
	Logger         *zap.SugaredLogger
	Config         *config.Config
}

func NewViewHandler(userService *service.UserService, messageService *service.MessageService, exports *ExportHandler, logger *zap.SugaredLogger, cfg *config.Config) *ViewHandler {
	return &ViewHandler{UserService: userService, MessageService: messageService, Exports: exports, Logger: logger, Config: cfg}
}

type pageData struct {
	Title  string
	Error  string
	Notice string

	// вход
	Username string

	// отправка
	Recipient  *model.User
	Text       string
	MaxLength  int
	AudioMaxMB int

	// входящие
	User      *model.User
	ShareLink string
	Unread    int64
	Messages  []messageView
}

type messageView struct {
	ID          string
	MessageType model.MessageType
	Badge       string
	Text        string
	AudioLink   string
	HasAudio    bool
	IsRead      bool
	Created     string
}

var badgeLabels = map[model.MessageType]string{
	model.MessageTypeText:  "TEXT",
	model.MessageTypeAudio: "AUDIO",
	model.MessageTypeBoth:  "TEXT + AUDIO",
}

func (h *ViewHandler) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.Logger.Errorw("template render failed", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// errorText - текст баннера для ошибки сервиса.
func errorText(err error) (int, string) {
	status := statusFor(err)
	msg := publicMessage(err, status)
	// у 501 и 504 текст понятен пользователю и остаётся как есть
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented && status != http.StatusGatewayTimeout {
		msg = "Something went wrong. Please try again."
	}
	return status, msg
}

// Home - вход и регистрация; залогиненных отправляем во входящие.
func (h *ViewHandler) Home(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "home.html", pageData{Title: "Welcome"})
}

// Login - форма входа.
func (h *ViewHandler) Login(w http.ResponseWriter, r *http.Request) {
	username, password := r.PostFormValue("username"), r.PostFormValue("password")
	user, err := h.UserService.Login(r.Context(), username, password)
	if err != nil {
		status, msg := errorText(err)
		h.Logger.Warnw("Login view: rejected", "status", status, "error", err)
		h.render(w, status, "home.html", pageData{Title: "Welcome", Error: msg, Username: username})
		return
	}
	h.finishAuth(w, r, user)
}

// Signup - форма регистрации.
func (h *ViewHandler) Signup(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	user, err := h.UserService.Register(r.Context(), username, r.PostFormValue("password"), r.PostFormValue("display_name"))
	if err != nil {
		status, msg := errorText(err)
		h.Logger.Warnw("Signup view: rejected", "status", status, "error", err)
		h.render(w, status, "home.html", pageData{Title: "Welcome", Error: msg})
		return
	}
	h.Logger.Infow("user registered", "user_id", user.ID, "username", user.Username)
	h.finishAuth(w, r, user)
}

func (h *ViewHandler) finishAuth(w http.ResponseWriter, r *http.Request, user *model.User) {
	if err := middleware.SetLoginCookie(w, user.ID, h.Config.AuthSecret); err != nil {
		h.Logger.Errorw("failed to set auth cookie", "user_id", user.ID, "error", err)
		h.render(w, http.StatusInternalServerError, "home.html", pageData{Title: "Welcome", Error: "Something went wrong. Please try again."})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout - выход.
func (h *ViewHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ViewHandler) sendPage(recipient *model.User) pageData {
	return pageData{
		Title:      "Send to @" + recipient.Username,
		Recipient:  recipient,
		MaxLength:  model.MaxContentLength,
		AudioMaxMB: h.Config.AudioMaxSizeMB,
	}
}

// SendForm - публичная страница отправки по ссылке.
func (h *ViewHandler) SendForm(w http.ResponseWriter, r *http.Request) {
	recipient, err := h.UserService.GetProfileByHandle(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.renderProfileError(w, err)
		return
	}
	h.render(w, http.StatusOK, "send.html", h.sendPage(recipient))
}

// Send - отправка формы. При ошибке страница возвращается в исходное состояние
// с введённым текстом и баннером.
func (h *ViewHandler) Send(w http.ResponseWriter, r *http.Request) {
	recipient, err := h.UserService.GetProfileByHandle(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.renderProfileError(w, err)
		return
	}
	data := h.sendPage(recipient)

	text, audio, err := readSendRequest(w, r, h.Config.AudioMaxSizeMB)
	if err != nil {
		data.Text = text
		if errors.Is(err, service.ErrAudioTooLarge) {
			data.Error = service.ErrAudioTooLarge.Error()
			h.render(w, http.StatusRequestEntityTooLarge, "send.html", data)
			return
		}
		h.Logger.Warnw("Send view: invalid form", "error", err)
		data.Error = "Could not read the form. Please try again."
		h.render(w, http.StatusBadRequest, "send.html", data)
		return
	}

	if _, err := h.MessageService.Send(r.Context(), recipient.Username, text, audio); err != nil {
		status, msg := errorText(err)
		h.Logger.Warnw("Send view: rejected", "status", status, "error", err)
		data.Text = text
		data.Error = msg
		h.render(w, status, "send.html", data)
		return
	}
	data.Notice = "Your anonymous message was sent."
	h.render(w, http.StatusOK, "send.html", data)
}

func (h *ViewHandler) renderProfileError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrProfileNotFound) {
		h.render(w, http.StatusNotFound, "notfound.html", pageData{Title: "Not found"})
		return
	}
	h.Logger.Errorw("profile lookup failed", "error", err)
	h.render(w, http.StatusInternalServerError, "notfound.html", pageData{Title: "Error", Error: "Something went wrong. Please try again."})
}

// Dashboard - входящие получателя.
func (h *ViewHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, "")
}

func (h *ViewHandler) renderDashboard(w http.ResponseWriter, r *http.Request, status int, banner string) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	user, err := h.UserService.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			// аккаунт удалён, а cookie осталась
			middleware.ClearLoginCookie(w)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		h.Logger.Errorw("Dashboard: profile lookup failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data := pageData{Title: "Inbox", User: user, ShareLink: h.Config.ShareLink(user.Username), Error: banner}
	msgs, err := h.MessageService.List(r.Context(), userID)
	if err != nil {
		h.Logger.Errorw("Dashboard: list failed", "user_id", userID, "error", err)
		data.Error = "Could not load messages. Please refresh."
		h.render(w, http.StatusInternalServerError, "dashboard.html", data)
		return
	}
	for i := range msgs {
		m := &msgs[i]
		if !m.IsRead {
			data.Unread++
		}
		v := messageView{
			ID:          m.ID,
			MessageType: m.MessageType,
			Badge:       badgeLabels[m.MessageType],
			Text:        m.Text(),
			HasAudio:    m.MessageType.HasAudio(),
			IsRead:      m.IsRead,
			Created:     m.CreatedAt.Format("Jan 2, 2006 15:04"),
		}
		if p := m.AudioPath(); p != "" {
			v.AudioLink = h.MessageService.ResolvePublicURL(p)
		}
		data.Messages = append(data.Messages, v)
	}
	h.render(w, status, "dashboard.html", data)
}

// ToggleRead - переключение флага прочтения из входящих.
func (h *ViewHandler) ToggleRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	read := r.PostFormValue("read") != "false"
	if err := h.MessageService.SetRead(r.Context(), userID, chi.URLParam(r, "id"), read); err != nil {
		status, msg := errorText(err)
		h.Logger.Warnw("ToggleRead view: failed", "status", status, "error", err)
		h.renderDashboard(w, r, status, msg)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Export - скачивание image|video|audio из входящих. При ошибке входящие
// перерисовываются в прежнем виде с баннером вместо голого JSON.
func (h *ViewHandler) Export(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	kind := chi.URLParam(r, "kind")
	export, ok := h.Exports.exportKinds()[kind]
	if !ok {
		h.renderDashboard(w, r, http.StatusNotFound, "Unknown export type.")
		return
	}
	id := chi.URLParam(r, "id")
	name, written, err := writeExport(w, r, export)
	if err != nil {
		if written {
			h.Logger.Errorw("Export view: write failed", "kind", kind, "message_id", id, "error", err)
			return
		}
		status, msg := errorText(err)
		h.Logger.Warnw("Export view: failed", "kind", kind, "message_id", id, "status", status, "error", err)
		h.renderDashboard(w, r, status, msg)
		return
	}
	h.Logger.Infow("Export view: sent", "kind", kind, "message_id", id, "filename", name)
}
