package repo

import (
	"Whisper/internal/model"
	"context"

	"gorm.io/gorm"
)

// MessageRepository определяет контракт доступа к сообщениям для слоя сервиса.
// Все операции чтения и изменения ограничены получателем.
type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	// ListForRecipient возвращает сообщения получателя, новые первыми.
	ListForRecipient(ctx context.Context, recipientID int64) ([]model.Message, error)
	GetByID(ctx context.Context, recipientID int64, id string) (*model.Message, error)
	// SetRead меняет флаг прочтения. Нет такого сообщения у получателя - gorm.ErrRecordNotFound.
	SetRead(ctx context.Context, recipientID int64, id string, read bool) error
	CountUnread(ctx context.Context, recipientID int64) (int64, error)
}

type messageRepo struct {
	db *gorm.DB
}

// NewMessageRepository создаёт реализацию репозитория для Message.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *messageRepo) ListForRecipient(ctx context.Context, recipientID int64) ([]model.Message, error) {
	var out []model.Message
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Order("id").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) GetByID(ctx context.Context, recipientID int64, id string) (*model.Message, error) {
	var m model.Message
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) SetRead(ctx context.Context, recipientID int64, id string, read bool) error {
	// RowsAffected не отличает «нет записи» от «значение не изменилось»
	if _, err := r.GetByID(ctx, recipientID, id); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("is_read", read).Error
}

func (r *messageRepo) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}
