package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"Whisper/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFmpegEncoder_MissingBinary(t *testing.T) {
	enc := NewFFmpegEncoder("whisper-test-no-such-ffmpeg", "whisper-test-no-such-ffprobe")
	_, err := enc.Start(context.Background(), []byte("audio"), "webm", 30)
	assert.ErrorIs(t, err, ErrEncodingUnsupported)
}

func TestParseFormatDuration(t *testing.T) {
	assert.Equal(t, 12.5, parseFormatDuration("12.500000\n"))
	assert.True(t, math.IsNaN(parseFormatDuration("N/A\n")))
	assert.True(t, math.IsNaN(parseFormatDuration("")))
}

func TestParsePacketDuration(t *testing.T) {
	out := "0.000000,0.020000\n0.020000,0.020000\n3.980000,0.020000\n\n"
	assert.InDelta(t, 4.0, parsePacketDuration(out), 1e-9)

	// без duration_time берётся pts
	assert.InDelta(t, 2.5, parsePacketDuration("1.0,\n2.5,N/A\n"), 1e-9)

	assert.True(t, math.IsNaN(parsePacketDuration("")))
	assert.True(t, math.IsNaN(parsePacketDuration("N/A,N/A\n")))
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs(24, "/tmp/a/audio.webm", "/tmp/a/out.webm")
	assert.Contains(t, args, "image2pipe")
	assert.Contains(t, args, "libvpx-vp9")
	assert.Contains(t, args, "libopus")
	assert.Contains(t, args, "-shortest")
	assert.Subset(t, args, []string{"-framerate", "24", "-i", "pipe:0", "/tmp/a/audio.webm"})
	assert.Equal(t, "/tmp/a/out.webm", args[len(args)-1])
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "fatal", lastLine("warn\nfatal\n"))
	assert.Equal(t, "only", lastLine("only"))
	assert.Equal(t, "", lastLine(""))
}

func TestFFmpegError(t *testing.T) {
	base := errors.New("write frame: broken pipe")

	err := ffmpegError(base, "[vost#0:0] Unknown encoder 'libvpx-vp9'\n")
	assert.ErrorIs(t, err, ErrEncodingUnsupported)
	assert.Contains(t, err.Error(), "libvpx-vp9")

	err = ffmpegError(base, "Encoder not found\n")
	assert.ErrorIs(t, err, ErrEncodingUnsupported)

	err = ffmpegError(base, "pipe:0: Invalid data found when processing input\n")
	assert.ErrorIs(t, err, base)
	assert.NotErrorIs(t, err, ErrEncodingUnsupported)
	assert.Contains(t, err.Error(), "Invalid data found")

	assert.Equal(t, base, ffmpegError(base, ""))
}

// fakeTools пишет shell-скрипты вместо ffmpeg/ffprobe.
func fakeTools(t *testing.T, ffmpegScript string) *FFmpegEncoder {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	bin := t.TempDir()
	ffprobe := filepath.Join(bin, "ffprobe")
	ffmpeg := filepath.Join(bin, "ffmpeg")
	require.NoError(t, os.WriteFile(ffprobe, []byte("#!/bin/sh\necho 1.000000\n"), 0o755))
	require.NoError(t, os.WriteFile(ffmpeg, []byte("#!/bin/sh\n"+ffmpegScript+"\n"), 0o755))
	return NewFFmpegEncoder(ffmpeg, ffprobe)
}

// isolateTemp направляет os.MkdirTemp в отдельный каталог теста.
func isolateTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	return tmp
}

func assertNoSessionDirs(t *testing.T, tmp string) {
	t.Helper()
	left, err := filepath.Glob(filepath.Join(tmp, "whisper-video-*"))
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestFFmpegSession_EarlyExitKeepsStderr(t *testing.T) {
	tmp := isolateTemp(t)
	enc := fakeTools(t, `echo "[vost#0:0] Unknown encoder 'libvpx-vp9'" >&2; exit 1`)

	sess, err := enc.Start(context.Background(), []byte("audio"), "webm", 10)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sess.Duration())
	dir := sess.(*ffmpegSession).dir
	assert.DirExists(t, dir)

	frame := image.NewRGBA(image.Rect(0, 0, Size, Size))
	for i := 0; i < 200 && err == nil; i++ {
		err = sess.WriteFrame(frame)
	}
	if err == nil {
		_, err = sess.Finish()
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncodingUnsupported)
	assert.Contains(t, err.Error(), "libvpx-vp9")

	sess.Abort()
	assert.NoDirExists(t, dir)
	assertNoSessionDirs(t, tmp)
}

func TestFFmpegSession_FailureWithoutCodecMarker(t *testing.T) {
	tmp := isolateTemp(t)
	enc := fakeTools(t, `cat >/dev/null; echo "out.webm: No space left on device" >&2; exit 1`)

	sess, err := enc.Start(context.Background(), []byte("audio"), "ogg", 10)
	require.NoError(t, err)
	require.NoError(t, sess.WriteFrame(image.NewRGBA(image.Rect(0, 0, 8, 8))))

	_, err = sess.Finish()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEncodingUnsupported)
	assert.Contains(t, err.Error(), "No space left on device")
	assertNoSessionDirs(t, tmp)
}

func TestFFmpegSession_AbortRemovesTempDir(t *testing.T) {
	tmp := isolateTemp(t)
	enc := fakeTools(t, `exec cat >/dev/null`)

	sess, err := enc.Start(context.Background(), []byte("audio"), "../../etc", 10)
	require.NoError(t, err)
	dir := sess.(*ffmpegSession).dir
	assert.FileExists(t, filepath.Join(dir, "audio.webm"))

	sess.Abort()
	sess.Abort()
	assert.NoDirExists(t, dir)
	assertNoSessionDirs(t, tmp)

	_, err = sess.Finish()
	assert.Error(t, err)
}

// silentWAV возвращает PCM 16-bit mono заданной длины.
func silentWAV(seconds float64) []byte {
	const rate = 8000
	samples := int(seconds * rate)
	dataLen := uint32(samples * 2)

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, 36+dataLen)
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, dataLen)
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}

func TestFFmpegEncoder_RealClip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
	tmp := isolateTemp(t)
	r := newTestRenderer(t)

	out, err := r.RenderVideo(context.Background(), testMessage(model.MessageTypeAudio, ""),
		silentWAV(1), "wav", NewFFmpegEncoder("ffmpeg", "ffprobe"), 5)
	if errors.Is(err, ErrEncodingUnsupported) {
		t.Skipf("ffmpeg build lacks VP9/Opus: %v", err)
	}
	require.NoError(t, err)
	require.Greater(t, len(out), 4)
	// EBML header
	assert.Equal(t, []byte{0x1A, 0x45, 0xDF, 0xA3}, out[:4])
	assertNoSessionDirs(t, tmp)
}
