package service

import (
	"Whisper/internal/model"
	"Whisper/internal/render"
	"Whisper/internal/repo"
	"Whisper/internal/storage"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrEmptyMessage    = errors.New("message must contain text or audio")
	ErrMessageTooLong  = fmt.Errorf("message text exceeds %d characters", model.MaxContentLength)
	ErrAudioTooLarge   = errors.New("audio file is too large")
	ErrMessageNotFound = errors.New("message not found")
	ErrAudioNotFound   = errors.New("audio object not found")
	// ErrNoAudio - у сообщения нет аудио (экспорт видео и скачивание аудио невозможны).
	ErrNoAudio = render.ErrNoAudio
)

// попыток подобрать свободный путь объекта при совпадении миллисекунд
const maxPutAttempts = 3

// AudioUpload - аудиофайл от анонимного отправителя.
type AudioUpload struct {
	Data        []byte
	ContentType string
}

// AudioFile - аудио сообщения, готовое к скачиванию.
type AudioFile struct {
	Data        []byte
	ContentType string
	Filename    string
}

// MessageService - отправка анонимных сообщений и работа получателя со входящими.
type MessageService struct {
	users    repo.UserRepository
	messages repo.MessageRepository
	store    storage.ObjectStore
	logger   *zap.SugaredLogger

	maxAudioBytes int64
	now           func() time.Time
}

func NewMessageService(users repo.UserRepository, messages repo.MessageRepository, store storage.ObjectStore, maxAudioBytes int64, logger *zap.SugaredLogger) *MessageService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MessageService{
		users:         users,
		messages:      messages,
		store:         store,
		logger:        logger,
		maxAudioBytes: maxAudioBytes,
		now:           time.Now,
	}
}

// normalizeText обрезает пробелы; пустой текст - nil.
func normalizeText(text string) (*string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(text) > model.MaxContentLength {
		return nil, ErrMessageTooLong
	}
	return &text, nil
}

// SendText отправляет текстовое сообщение получателю handle.
func (s *MessageService) SendText(ctx context.Context, handle, text string) (*model.Message, error) {
	return s.Send(ctx, handle, text, nil)
}

// SendAudio отправляет аудио, опционально с текстом.
func (s *MessageService) SendAudio(ctx context.Context, handle, text string, audio AudioUpload) (*model.Message, error) {
	return s.Send(ctx, handle, text, &audio)
}

// Send проверяет ввод, загружает аудио в хранилище и вставляет сообщение.
// Тип сообщения выводится из того, что реально присутствует.
func (s *MessageService) Send(ctx context.Context, handle, text string, audio *AudioUpload) (*model.Message, error) {
	content, err := normalizeText(text)
	if err != nil {
		return nil, err
	}
	if audio != nil && len(audio.Data) == 0 {
		audio = nil
	}
	if audio != nil && s.maxAudioBytes > 0 && int64(len(audio.Data)) > s.maxAudioBytes {
		return nil, ErrAudioTooLarge
	}
	typ := model.TypeFor(content != nil, audio != nil)
	if typ == "" {
		return nil, ErrEmptyMessage
	}

	recipient, err := s.users.GetUserByLogin(ctx, NormalizeUsername(handle))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}
	if recipient == nil {
		return nil, ErrProfileNotFound
	}

	msg := &model.Message{
		ID:          uuid.NewString(),
		RecipientID: recipient.ID,
		Content:     content,
		MessageType: typ,
	}
	if audio != nil {
		p, err := s.putAudio(ctx, recipient.ID, *audio)
		if err != nil {
			return nil, err
		}
		msg.AudioURL = &p
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		if msg.AudioURL != nil {
			s.logger.Warnw("message insert failed, audio object left orphaned", "path", *msg.AudioURL, "error", err)
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}
	s.logger.Infow("message sent", "recipient_id", recipient.ID, "message_id", msg.ID, "type", msg.MessageType)
	return msg, nil
}

func (s *MessageService) putAudio(ctx context.Context, recipientID int64, audio AudioUpload) (string, error) {
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "audio/webm"
	}
	now := s.now()
	for attempt := 0; ; attempt++ {
		p := storage.AudioObjectPath(now.Add(time.Duration(attempt)*time.Millisecond), recipientID, contentType)
		err := s.store.Put(ctx, p, audio.Data, contentType)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, storage.ErrObjectExists) || attempt+1 >= maxPutAttempts {
			return "", fmt.Errorf("upload audio: %w", err)
		}
	}
}

// List возвращает входящие получателя, новые первыми.
func (s *MessageService) List(ctx context.Context, recipientID int64) ([]model.Message, error) {
	msgs, err := s.messages.ListForRecipient(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Get возвращает сообщение получателя; чужие сообщения неотличимы от несуществующих.
func (s *MessageService) Get(ctx context.Context, recipientID int64, id string) (*model.Message, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrMessageNotFound
	}
	m, err := s.messages.GetByID(ctx, recipientID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// MarkRead помечает сообщение прочитанным.
func (s *MessageService) MarkRead(ctx context.Context, recipientID int64, id string) error {
	return s.SetRead(ctx, recipientID, id, true)
}

// SetRead меняет флаг прочтения в обе стороны.
func (s *MessageService) SetRead(ctx context.Context, recipientID int64, id string, read bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrMessageNotFound
	}
	if err := s.messages.SetRead(ctx, recipientID, id, read); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("set read: %w", err)
	}
	return nil
}

// CountUnread - число непрочитанных сообщений.
func (s *MessageService) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	n, err := s.messages.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// LoadAudio загружает аудио сообщения из хранилища.
func (s *MessageService) LoadAudio(ctx context.Context, m *model.Message) (storage.Object, error) {
	p := m.AudioPath()
	if !m.MessageType.HasAudio() || p == "" {
		return storage.Object{}, ErrNoAudio
	}
	obj, err := s.store.Get(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.Object{}, ErrAudioNotFound
		}
		return storage.Object{}, fmt.Errorf("fetch audio: %w", err)
	}
	if obj.ContentType == "" {
		obj.ContentType = storage.ContentTypeForPath(p)
	}
	return obj, nil
}

// OpenAudio возвращает аудио сообщения с именем файла для скачивания.
// Расширение берётся из сохранённого объекта, mp3 - только если его нет.
func (s *MessageService) OpenAudio(ctx context.Context, recipientID int64, id string) (*AudioFile, error) {
	m, err := s.Get(ctx, recipientID, id)
	if err != nil {
		return nil, err
	}
	obj, err := s.LoadAudio(ctx, m)
	if err != nil {
		return nil, err
	}
	return &AudioFile{
		Data:        obj.Data,
		ContentType: obj.ContentType,
		Filename:    render.AudioFilename(m.CreatedAt, storage.ExtensionOf(m.AudioPath())),
	}, nil
}

// ResolvePublicURL превращает путь объекта в публичную ссылку.
func (s *MessageService) ResolvePublicURL(p string) string {
	if p == "" {
		return ""
	}
	return s.store.PublicURL(p)
}
