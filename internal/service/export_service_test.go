package service

import (
	"Whisper/internal/model"
	"Whisper/internal/render"
	"Whisper/internal/storage"
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeSession принимает кадры и возвращает фиксированный контейнер.
type fakeSession struct {
	duration float64
	frames   int
	aborted  bool
}

func (s *fakeSession) Duration() float64            { return s.duration }
func (s *fakeSession) WriteFrame(image.Image) error { s.frames++; return nil }
func (s *fakeSession) Finish() ([]byte, error)      { return []byte("webm-bytes"), nil }
func (s *fakeSession) Abort()                       { s.aborted = true }

// fakeEncoder может задержать Start, пока тест не отпустит gate.
type fakeEncoder struct {
	duration float64
	started  chan struct{}
	gate     chan struct{}
	audio    []byte
	ext      string
}

func (e *fakeEncoder) Start(ctx context.Context, audio []byte, ext string, _ int) (render.VideoSession, error) {
	e.audio, e.ext = audio, ext
	if e.started != nil {
		close(e.started)
	}
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &fakeSession{duration: e.duration}, nil
}

type exportFixture struct {
	msgs    *mockMessageRepo
	store   *mockStore
	svc     *ExportService
	enc     *fakeEncoder
	audioID string
	textID  string
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	users, msgs, store := new(mockUserRepo), new(mockMessageRepo), new(mockStore)
	messages := newMessageService(users, msgs, store)
	r, err := render.NewRenderer(render.DefaultTheme(), time.UTC)
	require.NoError(t, err)

	enc := &fakeEncoder{duration: 0.5}
	f := &exportFixture{
		msgs:    msgs,
		store:   store,
		enc:     enc,
		svc:     NewExportService(messages, r, enc, 10, time.Minute, nil),
		audioID: uuid.NewString(),
		textID:  uuid.NewString(),
	}
	created := time.Date(2024, 5, 17, 15, 4, 0, 0, time.UTC)
	msgs.On("GetByID", mock.Anything, int64(7), f.audioID).Return(&model.Message{
		ID: f.audioID, RecipientID: 7, MessageType: model.MessageTypeAudio,
		AudioURL: strPtr("audio-messages/1-7.ogg"), CreatedAt: created,
	}, nil)
	msgs.On("GetByID", mock.Anything, int64(7), f.textID).Return(&model.Message{
		ID: f.textID, RecipientID: 7, MessageType: model.MessageTypeText,
		Content: strPtr("hi there"), CreatedAt: created,
	}, nil)
	store.On("Get", mock.Anything, "audio-messages/1-7.ogg").Return(storage.Object{Data: []byte("ogg-bytes"), ContentType: "audio/ogg"}, nil)
	return f
}

func TestExportService_Image(t *testing.T) {
	f := newExportFixture(t)
	sink := &memSink{}

	name, err := f.svc.ExportImage(context.Background(), 7, f.textID, sink)
	require.NoError(t, err)
	assert.Equal(t, "message-2024-05-17.jpg", name)
	assert.Equal(t, name, sink.filename)
	assert.Equal(t, "image/jpeg", sink.contentType)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(sink.data))
	require.NoError(t, err)
	assert.Equal(t, render.Size, cfg.Width)
	assert.Equal(t, render.Size, cfg.Height)
}

func TestExportService_ImageNotFoundAndSinkError(t *testing.T) {
	f := newExportFixture(t)
	other := uuid.NewString()
	f.msgs.On("GetByID", mock.Anything, int64(7), other).Return((*model.Message)(nil), ErrMessageNotFound)

	_, err := f.svc.ExportImage(context.Background(), 7, other, &memSink{})
	assert.ErrorIs(t, err, ErrMessageNotFound)

	boom := errors.New("disk full")
	_, err = f.svc.ExportImage(context.Background(), 7, f.textID, &memSink{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestExportService_Video(t *testing.T) {
	f := newExportFixture(t)
	sink := &memSink{}

	name, err := f.svc.ExportVideo(context.Background(), 7, f.audioID, sink)
	require.NoError(t, err)
	assert.Equal(t, "audio-message-video-2024-05-17-1504.webm", name)
	assert.Equal(t, []byte("webm-bytes"), sink.data)
	assert.Equal(t, "video/webm", sink.contentType)
	assert.Equal(t, []byte("ogg-bytes"), f.enc.audio)
	assert.Equal(t, "ogg", f.enc.ext)
}

func TestExportService_VideoRequiresAudio(t *testing.T) {
	f := newExportFixture(t)
	_, err := f.svc.ExportVideo(context.Background(), 7, f.textID, &memSink{})
	assert.ErrorIs(t, err, ErrNoAudio)
	f.store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestExportService_VideoInvalidDuration(t *testing.T) {
	f := newExportFixture(t)
	f.enc.duration = 0
	sink := &memSink{}
	_, err := f.svc.ExportVideo(context.Background(), 7, f.audioID, sink)
	assert.ErrorIs(t, err, render.ErrInvalidDuration)
	assert.Nil(t, sink.data)
}

func TestExportService_VideoTooLong(t *testing.T) {
	f := newExportFixture(t)
	f.enc.duration = render.MaxVideoDuration.Seconds() + 1
	sink := &memSink{}
	_, err := f.svc.ExportVideo(context.Background(), 7, f.audioID, sink)
	assert.ErrorIs(t, err, render.ErrAudioTooLong)
	assert.Nil(t, sink.data)
}

func TestNewExportService_RaisesShortTimeout(t *testing.T) {
	short := NewExportService(nil, nil, nil, 30, 2*time.Minute, nil)
	assert.Equal(t, render.MinExportTimeout, short.timeout)

	long := NewExportService(nil, nil, nil, 30, time.Hour, nil)
	assert.Equal(t, time.Hour, long.timeout)

	// 0 - без дедлайна
	none := NewExportService(nil, nil, nil, 30, 0, nil)
	assert.Zero(t, none.timeout)
}

func TestExportService_VideoBusyFlag(t *testing.T) {
	f := newExportFixture(t)
	f.enc.started = make(chan struct{})
	f.enc.gate = make(chan struct{})

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = f.svc.ExportVideo(context.Background(), 7, f.audioID, &memSink{})
	}()
	<-f.enc.started

	_, err := f.svc.ExportVideo(context.Background(), 7, f.audioID, &memSink{})
	assert.ErrorIs(t, err, ErrExportInProgress)

	close(f.enc.gate)
	wg.Wait()
	require.NoError(t, firstErr)

	// после завершения флаг снят
	f.enc.started, f.enc.gate = nil, nil
	_, err = f.svc.ExportVideo(context.Background(), 7, f.audioID, &memSink{})
	assert.NoError(t, err)
}

func TestExportService_Audio(t *testing.T) {
	f := newExportFixture(t)
	sink := &memSink{}

	name, err := f.svc.ExportAudio(context.Background(), 7, f.audioID, sink)
	require.NoError(t, err)
	assert.Equal(t, "audio-message-2024-05-17-1504.ogg", name)
	assert.Equal(t, []byte("ogg-bytes"), sink.data)
	assert.Equal(t, "audio/ogg", sink.contentType)

	_, err = f.svc.ExportAudio(context.Background(), 7, f.textID, sink)
	assert.ErrorIs(t, err, ErrNoAudio)
}
