package render

import (
	"Whisper/internal/model"
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"
)

// VideoEncoder starts encoding sessions that mux frames with an audio track.
type VideoEncoder interface {
	// Start loads the audio track and prepares to receive frames at fps.
	Start(ctx context.Context, audio []byte, audioExt string, fps int) (VideoSession, error)
}

// VideoSession is one running encode.
type VideoSession interface {
	// Duration is the audio length in seconds as probed at Start.
	Duration() float64
	WriteFrame(img image.Image) error
	// Finish flushes the encoder and returns the encoded container.
	Finish() ([]byte, error)
	// Abort stops the encoder and discards any output.
	Abort()
}

// RenderVideo renders the animated card for m synchronised to its audio and
// returns the encoded video. Nothing is returned unless encoding completed.
func (r *Renderer) RenderVideo(ctx context.Context, m *model.Message, audio []byte, audioExt string, enc VideoEncoder, fps int) ([]byte, error) {
	if !m.MessageType.HasAudio() || len(audio) == 0 {
		return nil, ErrNoAudio
	}
	if r == nil || r.regular == nil {
		return nil, ErrSurfaceUnavailable
	}
	if enc == nil {
		return nil, ErrEncodingUnsupported
	}

	session, err := enc.Start(ctx, audio, audioExt, fps)
	if err != nil {
		return nil, err
	}
	duration := session.Duration()
	if !ValidDuration(duration) {
		session.Abort()
		return nil, ErrInvalidDuration
	}
	if duration > MaxVideoDuration.Seconds() {
		session.Abort()
		return nil, fmt.Errorf("%w: %.1fs > %s", ErrAudioTooLong, duration, MaxVideoDuration)
	}

	card := r.Card(m, ModeAnimated)
	base := r.FrameBase(card)
	loop := NewFrameLoop(fps, duration)

	frames := make(chan image.Image, 2)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(frames)
		_, _, err := loop.Run(gctx, func(_ int, elapsed float64) error {
			img := r.RenderFrame(base, card, elapsed, duration)
			select {
			case frames <- img:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		return err
	})
	g.Go(func() error {
		for img := range frames {
			if err := session.WriteFrame(img); err != nil {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		session.Abort()
		return nil, err
	}
	return session.Finish()
}
