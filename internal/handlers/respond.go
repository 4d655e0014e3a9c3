package handlers

import (
	"Whisper/internal/render"
	"Whisper/internal/service"
	"Whisper/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor переводит ошибки сервисов в HTTP-коды.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrAudioNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrLoginTaken),
		errors.Is(err, service.ErrExportInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPasswordTooLong),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, service.ErrNoAudio):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, render.ErrInvalidDuration),
		errors.Is(err, render.ErrAudioTooLong):
		return http.StatusUnprocessableEntity
	case errors.Is(err, render.ErrEncodingUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// publicMessage - текст ошибки для клиента; внутренние детали не раскрываются.
func publicMessage(err error, status int) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "export timed out"
	case status >= http.StatusInternalServerError && status != http.StatusNotImplemented:
		return "internal error"
	}
	return rootCause(err).Error()
}

// rootCause снимает обёртки fmt.Errorf и возвращает исходную sentinel-ошибку.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// respondError логирует и отвечает JSON-ошибкой со статусом по её типу.
func respondError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorw(op+": failed", "error", err)
	} else {
		logger.Warnw(op+": rejected", "status", status, "error", err)
	}
	writeError(w, status, publicMessage(err, status))
}
