package handlers_test

import (
	"Whisper/internal/config"
	"Whisper/internal/handlers"
	"Whisper/internal/middleware"
	"Whisper/internal/model"
	"Whisper/internal/render"
	"Whisper/internal/repo"
	"Whisper/internal/service"
	"Whisper/internal/storage"
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Local light mocks
type hMockUserRepo struct{ mock.Mock }

func (m *hMockUserRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockUserRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

var _ repo.UserRepository = (*hMockUserRepo)(nil)

type hMockMessageRepo struct{ mock.Mock }

func (m *hMockMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	return m.Called(ctx, msg).Error(0)
}
func (m *hMockMessageRepo) ListForRecipient(ctx context.Context, recipientID int64) ([]model.Message, error) {
	args := m.Called(ctx, recipientID)
	if v, ok := args.Get(0).([]model.Message); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockMessageRepo) GetByID(ctx context.Context, recipientID int64, id string) (*model.Message, error) {
	args := m.Called(ctx, recipientID, id)
	if v, ok := args.Get(0).(*model.Message); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockMessageRepo) SetRead(ctx context.Context, recipientID int64, id string, read bool) error {
	return m.Called(ctx, recipientID, id, read).Error(0)
}
func (m *hMockMessageRepo) CountUnread(ctx context.Context, recipientID int64) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

var _ repo.MessageRepository = (*hMockMessageRepo)(nil)

// fakeSession/fakeEncoder подменяют ffmpeg в тестах экспорта видео.
type fakeSession struct{ duration float64 }

func (s fakeSession) Duration() float64 {
	if s.duration == 0 {
		return 0.3
	}
	return s.duration
}
func (fakeSession) WriteFrame(image.Image) error { return nil }
func (fakeSession) Finish() ([]byte, error)      { return []byte("webm"), nil }
func (fakeSession) Abort()                       {}

type fakeEncoder struct {
	err      error
	duration float64
}

func (e fakeEncoder) Start(context.Context, []byte, string, int) (render.VideoSession, error) {
	if e.err != nil {
		return nil, e.err
	}
	return fakeSession{duration: e.duration}, nil
}

type testEnv struct {
	router   http.Handler
	cfg      *config.Config
	users    *hMockUserRepo
	messages *hMockMessageRepo
	store    *storage.FSStore
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithEncoder(t, fakeEncoder{})
}

func newTestEnvWithEncoder(t *testing.T, enc render.VideoEncoder) *testEnv {
	t.Helper()
	cfg := &config.Config{
		AuthSecret:     "test-secret",
		AudioMaxSizeMB: 1,
		PublicURL:      "http://whisper.test",
		VideoFPS:       10,
		ExportTimeout:  time.Minute,
	}
	logger := zap.NewNop().Sugar()
	users := &hMockUserRepo{}
	messages := &hMockMessageRepo{}
	store, err := storage.NewFSStore(t.TempDir(), cfg.PublicURL+"/objects")
	require.NoError(t, err)
	renderer, err := render.NewRenderer(render.DefaultTheme(), time.UTC)
	require.NoError(t, err)

	userSvc := service.NewUserService(users)
	msgSvc := service.NewMessageService(users, messages, store, int64(cfg.AudioMaxSizeMB)*1024*1024, logger)
	exportSvc := service.NewExportService(msgSvc, renderer, enc, cfg.VideoFPS, cfg.ExportTimeout, logger)
	h := handlers.NewHandler(userSvc, msgSvc, exportSvc, store, logger, cfg)
	return &testEnv{router: h.Router, cfg: cfg, users: users, messages: messages, store: store}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64, secret string) {
	t.Helper()
	rr := httptest.NewRecorder()
	_ = middleware.SetLoginCookie(rr, userID, secret)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

func hasAuthCookie(rr *httptest.ResponseRecorder) bool {
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.CookieName && c.Value != "" {
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }
