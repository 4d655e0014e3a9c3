package service

import (
	"Whisper/internal/model"
	"Whisper/internal/repo"
	"Whisper/internal/storage"
	"context"

	"github.com/stretchr/testify/mock"
)

// мок для repo.UserRepository
type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ repo.UserRepository = (*mockUserRepo)(nil)

// мок для repo.MessageRepository
type mockMessageRepo struct{ mock.Mock }

func (m *mockMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageRepo) ListForRecipient(ctx context.Context, recipientID int64) ([]model.Message, error) {
	args := m.Called(ctx, recipientID)
	if v, ok := args.Get(0).([]model.Message); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepo) GetByID(ctx context.Context, recipientID int64, id string) (*model.Message, error) {
	args := m.Called(ctx, recipientID, id)
	if v, ok := args.Get(0).(*model.Message); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageRepo) SetRead(ctx context.Context, recipientID int64, id string, read bool) error {
	return m.Called(ctx, recipientID, id, read).Error(0)
}

func (m *mockMessageRepo) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

var _ repo.MessageRepository = (*mockMessageRepo)(nil)

// мок для storage.ObjectStore
type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, p string, data []byte, contentType string) error {
	return m.Called(ctx, p, data, contentType).Error(0)
}

func (m *mockStore) Get(ctx context.Context, p string) (storage.Object, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(storage.Object), args.Error(1)
}

func (m *mockStore) PublicURL(p string) string {
	return m.Called(p).String(0)
}

var _ storage.ObjectStore = (*mockStore)(nil)

// memSink собирает сохранённые артефакты в памяти.
type memSink struct {
	data        []byte
	filename    string
	contentType string
	err         error
}

func (s *memSink) SaveArtifact(_ context.Context, data []byte, filename, contentType string) error {
	if s.err != nil {
		return s.err
	}
	s.data, s.filename, s.contentType = data, filename, contentType
	return nil
}

func strPtr(s string) *string { return &s }
