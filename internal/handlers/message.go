package handlers

import (
	"Whisper/internal/config"
	"Whisper/internal/middleware"
	"Whisper/internal/model"
	"Whisper/internal/service"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MessageHandler - отправка и входящие.
type MessageHandler struct {
	MessageService *service.MessageService
	Logger         *zap.SugaredLogger
	Config         *config.Config
}

func NewMessageHandler(messageService *service.MessageService, logger *zap.SugaredLogger, cfg *config.Config) *MessageHandler {
	return &MessageHandler{MessageService: messageService, Logger: logger, Config: cfg}
}

// MessageResponse - сообщение в ответах API. audio_url уже публичная ссылка.
type MessageResponse struct {
	ID          string            `json:"id"`
	Content     *string           `json:"content"`
	AudioURL    *string           `json:"audio_url"`
	MessageType model.MessageType `json:"message_type"`
	IsRead      bool              `json:"is_read"`
	CreatedAt   time.Time         `json:"created_at"`
}

type sendRequest struct {
	Text string `json:"text"`
}

type readRequest struct {
	Read *bool `json:"read"`
}

// errBodyTooLarge - тело запроса превысило лимит до разбора.
var errBodyTooLarge = errors.New("request body too large")

func toResponse(m *model.Message, resolve func(string) string) MessageResponse {
	out := MessageResponse{
		ID:          m.ID,
		Content:     m.Content,
		MessageType: m.MessageType,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
	}
	if p := m.AudioPath(); p != "" {
		u := resolve(p)
		out.AudioURL = &u
	}
	return out
}

// readSendRequest разбирает JSON {text} или multipart (text + audio).
func readSendRequest(w http.ResponseWriter, r *http.Request, audioMaxMB int) (string, *service.AudioUpload, error) {
	limit := int64(audioMaxMB)*1024*1024 + 1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			return "", nil, bodyError(err)
		}
		text := r.FormValue("text")
		file, fh, err := r.FormFile("audio")
		if errors.Is(err, http.ErrMissingFile) {
			return text, nil, nil
		}
		if err != nil {
			return "", nil, bodyError(err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, bodyError(err)
		}
		return text, &service.AudioUpload{Data: data, ContentType: fh.Header.Get("Content-Type")}, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return "", nil, bodyError(err)
		}
		return r.PostFormValue("text"), nil, nil
	default:
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", nil, bodyError(err)
		}
		return req.Text, nil, nil
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: %w", service.ErrAudioTooLarge, errBodyTooLarge)
	}
	return fmt.Errorf("invalid request: %w", err)
}

// Send - анонимная отправка сообщения по username. Аутентификация не нужна.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "username")
	text, audio, err := readSendRequest(w, r, h.Config.AudioMaxSizeMB)
	if err != nil {
		if errors.Is(err, service.ErrAudioTooLarge) {
			respondError(w, h.Logger, "Send", service.ErrAudioTooLarge)
			return
		}
		h.Logger.Warnw("Send: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	msg, err := h.MessageService.Send(r.Context(), handle, text, audio)
	if err != nil {
		respondError(w, h.Logger, "Send", err)
		return
	}
	// отправителю не раскрываем ничего, кроме факта доставки
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           msg.ID,
		"message_type": msg.MessageType,
		"created_at":   msg.CreatedAt,
	})
}

// List - входящие текущего пользователя, новые первыми.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	msgs, err := h.MessageService.List(r.Context(), userID)
	if err != nil {
		respondError(w, h.Logger, "List", err)
		return
	}
	out := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, toResponse(&msgs[i], h.MessageService.ResolvePublicURL))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get - одно сообщение текущего пользователя.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	msg, err := h.MessageService.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.Logger, "Get", err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(msg, h.MessageService.ResolvePublicURL))
}

// SetRead - флаг прочтения; пустое тело означает read=true.
func (h *MessageHandler) SetRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	read := true
	var req readRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.Logger.Warnw("SetRead: invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Read != nil {
		read = *req.Read
	}
	id := chi.URLParam(r, "id")
	if err := h.MessageService.SetRead(r.Context(), userID, id, read); err != nil {
		respondError(w, h.Logger, "SetRead", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_read": read})
}
