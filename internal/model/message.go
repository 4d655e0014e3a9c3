package model

import (
	"strings"
	"time"
)

// MessageType tags what a message carries.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeAudio MessageType = "audio"
	MessageTypeBoth  MessageType = "both"
)

// MaxContentLength is the number of runes a message body may hold.
const MaxContentLength = 1000

// HasAudio reports whether messages of this type reference an audio object.
func (t MessageType) HasAudio() bool {
	return t == MessageTypeAudio || t == MessageTypeBoth
}

// Valid reports whether t is one of the known type tags.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeAudio, MessageTypeBoth:
		return true
	}
	return false
}

// TypeFor derives the tag from which parts are present. Empty string when neither is.
func TypeFor(hasText, hasAudio bool) MessageType {
	switch {
	case hasText && hasAudio:
		return MessageTypeBoth
	case hasAudio:
		return MessageTypeAudio
	case hasText:
		return MessageTypeText
	}
	return ""
}

// Message - анонимное сообщение получателю.
// Отправитель может только вставить строку; получатель меняет лишь флаг прочтения.
type Message struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID int64  `gorm:"not null;index" json:"recipient_id"` // ссылка на users.id

	// Связи
	Recipient *User `gorm:"foreignKey:RecipientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`

	Content     *string     `json:"content"`
	AudioURL    *string     `json:"audio_url"` // путь объекта в хранилище
	MessageType MessageType `gorm:"not null;size:8" json:"message_type"`
	IsRead      bool        `gorm:"not null;default:false" json:"is_read"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Text returns the message body or "" when there is none.
func (m *Message) Text() string {
	if m == nil || m.Content == nil {
		return ""
	}
	return strings.TrimSpace(*m.Content)
}

// AudioPath returns the storage path of the attached audio or "".
func (m *Message) AudioPath() string {
	if m == nil || m.AudioURL == nil {
		return ""
	}
	return *m.AudioURL
}
