package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// FFmpegEncoder encodes WebM (VP9 + Opus) by piping MJPEG frames into ffmpeg.
type FFmpegEncoder struct {
	FFmpegPath  string
	FFprobePath string
	// FrameQuality is the JPEG quality of frames handed to ffmpeg.
	FrameQuality int
}

// NewFFmpegEncoder returns an encoder using the given binaries.
func NewFFmpegEncoder(ffmpegPath, ffprobePath string) *FFmpegEncoder {
	return &FFmpegEncoder{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath, FrameQuality: 90}
}

var safeExt = regexp.MustCompile(`^[a-z0-9]{1,5}$`)

func ffmpegArgs(fps int, audioPath, outPath string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "image2pipe", "-framerate", strconv.Itoa(fps), "-c:v", "mjpeg", "-i", "pipe:0",
		"-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "libvpx-vp9", "-deadline", "realtime", "-cpu-used", "8", "-row-mt", "1",
		"-b:v", "1500k", "-pix_fmt", "yuv420p",
		"-c:a", "libopus", "-b:a", "96k",
		"-shortest",
		"-f", "webm", outPath,
	}
}

// Start writes the audio to a temp dir, probes its length and launches ffmpeg.
func (e *FFmpegEncoder) Start(ctx context.Context, audio []byte, audioExt string, fps int) (VideoSession, error) {
	ffmpeg, err := exec.LookPath(e.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingUnsupported, err)
	}
	ffprobe, err := exec.LookPath(e.FFprobePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingUnsupported, err)
	}
	if fps <= 0 {
		fps = 30
	}
	audioExt = strings.ToLower(strings.TrimPrefix(audioExt, "."))
	if !safeExt.MatchString(audioExt) {
		audioExt = "webm"
	}

	dir, err := os.MkdirTemp("", "whisper-video-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	audioPath := filepath.Join(dir, "audio."+audioExt)
	if err := os.WriteFile(audioPath, audio, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("write audio: %w", err)
	}

	duration, err := ProbeDuration(ctx, ffprobe, audioPath)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	outPath := filepath.Join(dir, "out.webm")
	cmd := exec.CommandContext(ctx, ffmpeg, ffmpegArgs(fps, audioPath, outPath)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: start ffmpeg: %v", ErrEncodingUnsupported, err)
	}

	quality := e.FrameQuality
	if quality <= 0 {
		quality = 90
	}
	return &ffmpegSession{
		cmd:      cmd,
		stdin:    stdin,
		stderr:   stderr,
		dir:      dir,
		outPath:  outPath,
		duration: duration,
		quality:  quality,
	}, nil
}

type ffmpegSession struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stderr   *bytes.Buffer
	dir      string
	outPath  string
	duration float64
	quality  int

	once sync.Once
}

func (s *ffmpegSession) Duration() float64 { return s.duration }

func (s *ffmpegSession) WriteFrame(img image.Image) error {
	if err := jpeg.Encode(s.stdin, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return s.exited(fmt.Errorf("write frame: %w", err))
	}
	return nil
}

// exited is called when ffmpeg stopped reading frames. It waits for the
// process so the reason in stderr is not lost, and releases the temp dir.
func (s *ffmpegSession) exited(err error) error {
	s.once.Do(func() {
		_ = s.stdin.Close()
		_ = s.cmd.Wait()
		_ = os.RemoveAll(s.dir)
	})
	return ffmpegError(err, s.stderr.String())
}

// unsupportedMarkers are ffmpeg messages of a build lacking a codec we need.
var unsupportedMarkers = []string{
	"Unknown encoder",
	"Encoder not found",
	"Unknown decoder",
	"Decoder not found",
}

// ffmpegError adds the last stderr line to err. A missing codec becomes
// ErrEncodingUnsupported.
func ffmpegError(err error, stderr string) error {
	line := lastLine(stderr)
	for _, marker := range unsupportedMarkers {
		if strings.Contains(stderr, marker) {
			return fmt.Errorf("%w: %s", ErrEncodingUnsupported, line)
		}
	}
	if line == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, line)
}

func (s *ffmpegSession) Finish() ([]byte, error) {
	var (
		out []byte
		err error
	)
	s.once.Do(func() {
		defer os.RemoveAll(s.dir)
		_ = s.stdin.Close()
		if werr := s.cmd.Wait(); werr != nil {
			err = ffmpegError(fmt.Errorf("ffmpeg: %w", werr), s.stderr.String())
			return
		}
		out, err = os.ReadFile(s.outPath)
		if err != nil {
			err = fmt.Errorf("read encoded video: %w", err)
		}
	})
	if out == nil && err == nil {
		err = fmt.Errorf("encoding session already closed")
	}
	return out, err
}

func (s *ffmpegSession) Abort() {
	s.once.Do(func() {
		_ = s.stdin.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
		_ = os.RemoveAll(s.dir)
	})
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ProbeDuration returns the audio length in seconds. Containers without a
// duration header (typical for browser-recorded WebM) fall back to the end
// of the last audio packet. NaN means the length is unknown.
func ProbeDuration(ctx context.Context, ffprobe, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return math.NaN(), fmt.Errorf("probe audio: %w", err)
	}
	if d := parseFormatDuration(string(out)); ValidDuration(d) {
		return d, nil
	}

	out, err = exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "packet=pts_time,duration_time",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return math.NaN(), fmt.Errorf("probe audio packets: %w", err)
	}
	return parsePacketDuration(string(out)), nil
}

func parseFormatDuration(out string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parsePacketDuration reads "pts_time,duration_time" rows and returns the
// furthest packet end.
func parsePacketDuration(out string) float64 {
	end := math.NaN()
	for _, row := range strings.Split(out, "\n") {
		parts := strings.Split(strings.TrimSpace(row), ",")
		if len(parts) == 0 || parts[0] == "" {
			continue
		}
		pts, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		if len(parts) > 1 {
			if d, err := strconv.ParseFloat(parts[1], 64); err == nil {
				pts += d
			}
		}
		if math.IsNaN(end) || pts > end {
			end = pts
		}
	}
	return end
}
