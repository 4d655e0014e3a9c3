package handlers

import (
	"Whisper/internal/middleware"
	"Whisper/internal/render"
	"Whisper/internal/service"
	"context"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ExportHandler отдаёт артефакты сообщения как вложения.
type ExportHandler struct {
	ExportService *service.ExportService
	Logger        *zap.SugaredLogger
}

func NewExportHandler(exportService *service.ExportService, logger *zap.SugaredLogger) *ExportHandler {
	return &ExportHandler{ExportService: exportService, Logger: logger}
}

// attachmentSink пишет артефакт прямо в HTTP-ответ с Content-Disposition: attachment.
type attachmentSink struct {
	w       http.ResponseWriter
	written bool
}

var _ render.ArtifactSink = (*attachmentSink)(nil)

func (s *attachmentSink) SaveArtifact(ctx context.Context, data []byte, filename, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := s.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", "no-store")
	s.w.WriteHeader(http.StatusOK)
	s.written = true
	_, err := s.w.Write(data)
	return err
}

type exportFunc func(ctx context.Context, recipientID int64, id string, sink render.ArtifactSink) (string, error)

// exportKinds - артефакты, которые можно скачать из входящих.
func (h *ExportHandler) exportKinds() map[string]exportFunc {
	return map[string]exportFunc{
		"image": h.ExportService.ExportImage,
		"video": h.ExportService.ExportVideo,
		"audio": h.ExportService.ExportAudio,
	}
}

// writeExport пишет артефакт прямо в ответ. written сообщает, что заголовки уже ушли
// и ответить ошибкой больше нельзя.
func writeExport(w http.ResponseWriter, r *http.Request, export exportFunc) (name string, written bool, err error) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	sink := &attachmentSink{w: w}
	name, err = export(r.Context(), userID, chi.URLParam(r, "id"), sink)
	return name, sink.written, err
}

func (h *ExportHandler) serve(w http.ResponseWriter, r *http.Request, op string, export exportFunc) {
	id := chi.URLParam(r, "id")
	name, written, err := writeExport(w, r, export)
	if err != nil {
		if written {
			// заголовки уже ушли, остаётся только лог
			h.Logger.Errorw(op+": write failed", "message_id", id, "error", err)
			return
		}
		respondError(w, h.Logger, op, err)
		return
	}
	h.Logger.Infow(op+": sent", "message_id", id, "filename", name)
}

// Audio - исходное аудио сообщения.
func (h *ExportHandler) Audio(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "ExportAudio", h.ExportService.ExportAudio)
}

// Image - JPEG-карточка 1080×1080.
func (h *ExportHandler) Image(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "ExportImage", h.ExportService.ExportImage)
}

// Video - WebM с анимированной волной под аудио.
func (h *ExportHandler) Video(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "ExportVideo", h.ExportService.ExportVideo)
}
