package service

import (
	"Whisper/internal/render"
	"Whisper/internal/storage"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrExportInProgress - видео этого сообщения уже рендерится.
var ErrExportInProgress = errors.New("export already in progress")

// ExportService собирает артефакты сообщения (картинка, видео, аудио) и
// отдаёт их в ArtifactSink: HTTP-ответ на сервере или каталог в CLI.
type ExportService struct {
	messages *MessageService
	renderer *render.Renderer
	encoder  render.VideoEncoder
	logger   *zap.SugaredLogger

	fps     int
	timeout time.Duration

	mu   sync.Mutex
	busy map[string]struct{}
}

func NewExportService(messages *MessageService, renderer *render.Renderer, encoder render.VideoEncoder, fps int, timeout time.Duration, logger *zap.SugaredLogger) *ExportService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if timeout > 0 && timeout < render.MinExportTimeout {
		logger.Warnw("export timeout too short for the longest video, raising",
			"timeout", timeout, "min", render.MinExportTimeout)
		timeout = render.MinExportTimeout
	}
	return &ExportService{
		messages: messages,
		renderer: renderer,
		encoder:  encoder,
		logger:   logger,
		fps:      fps,
		timeout:  timeout,
		busy:     make(map[string]struct{}),
	}
}

// ExportImage рендерит карточку 1080×1080 в JPEG.
func (s *ExportService) ExportImage(ctx context.Context, recipientID int64, id string, sink render.ArtifactSink) (string, error) {
	m, err := s.messages.Get(ctx, recipientID, id)
	if err != nil {
		return "", err
	}
	data, err := s.renderer.RenderImage(m)
	if err != nil {
		return "", fmt.Errorf("render image: %w", err)
	}
	name := render.ImageFilename(m.CreatedAt)
	if err := sink.SaveArtifact(ctx, data, name, render.ImageContentType); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	s.logger.Infow("image exported", "message_id", m.ID, "bytes", len(data))
	return name, nil
}

// ExportVideo рендерит анимированную карточку, синхронизированную с аудио, в WebM.
// Для одного сообщения одновременно идёт не больше одного экспорта видео.
func (s *ExportService) ExportVideo(ctx context.Context, recipientID int64, id string, sink render.ArtifactSink) (string, error) {
	m, err := s.messages.Get(ctx, recipientID, id)
	if err != nil {
		return "", err
	}
	if !m.MessageType.HasAudio() || m.AudioPath() == "" {
		return "", ErrNoAudio
	}
	if !s.acquire(m.ID) {
		return "", ErrExportInProgress
	}
	defer s.release(m.ID)

	obj, err := s.messages.LoadAudio(ctx, m)
	if err != nil {
		return "", err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := s.renderer.RenderVideo(ctx, m, obj.Data, storage.ExtensionOf(m.AudioPath()), s.encoder, s.fps)
	if err != nil {
		s.logger.Warnw("video export failed", "message_id", m.ID, "error", err)
		return "", err
	}
	name := render.VideoFilename(m.CreatedAt)
	if err := sink.SaveArtifact(ctx, data, name, render.VideoContentType); err != nil {
		return "", fmt.Errorf("save video: %w", err)
	}
	s.logger.Infow("video exported", "message_id", m.ID, "bytes", len(data), "took", time.Since(start))
	return name, nil
}

// ExportAudio отдаёт исходное аудио сообщения.
func (s *ExportService) ExportAudio(ctx context.Context, recipientID int64, id string, sink render.ArtifactSink) (string, error) {
	f, err := s.messages.OpenAudio(ctx, recipientID, id)
	if err != nil {
		return "", err
	}
	if err := sink.SaveArtifact(ctx, f.Data, f.Filename, f.ContentType); err != nil {
		return "", fmt.Errorf("save audio: %w", err)
	}
	return f.Filename, nil
}

func (s *ExportService) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[id]; ok {
		return false
	}
	s.busy[id] = struct{}{}
	return true
}

func (s *ExportService) release(id string) {
	s.mu.Lock()
	delete(s.busy, id)
	s.mu.Unlock()
}
