package render

import (
	"context"
	"math"
	"time"
)

const (
	// FlushDelay keeps recording briefly after the audio ends so trailing frames land.
	FlushDelay = 100 * time.Millisecond
	// SafetyMargin bounds recording to duration+1s even if the end is never observed.
	SafetyMargin = time.Second
	// MaxVideoDuration caps the length of exported videos. Longer audio is
	// rejected before the first frame is drawn.
	MaxVideoDuration = 3 * time.Minute
	// MinExportTimeout is the smallest export deadline that lets a
	// MaxVideoDuration clip finish.
	MinExportTimeout = 4 * MaxVideoDuration
)

// StopReason says why a frame loop ended.
type StopReason int

const (
	StopNone StopReason = iota
	// StopEnded: audio reached its natural end and the flush delay passed.
	StopEnded
	// StopTimeout: elapsed exceeded duration plus the safety margin.
	StopTimeout
	// StopMaxFrames: the frame budget was exhausted.
	StopMaxFrames
)

// ShouldStop evaluates the stop condition at elapsed seconds. audioEnded
// reports whether the end of playback has been observed.
func ShouldStop(elapsed, duration float64, audioEnded bool) StopReason {
	if audioEnded && elapsed >= duration+FlushDelay.Seconds() {
		return StopEnded
	}
	if elapsed > duration+SafetyMargin.Seconds() {
		return StopTimeout
	}
	return StopNone
}

// FrameLoop drives frame generation on a virtual clock of i/FPS seconds.
type FrameLoop struct {
	FPS       int
	Duration  float64 // seconds
	MaxFrames int
	// Ended reports whether playback finished at elapsed. Defaults to elapsed >= Duration.
	Ended func(elapsed float64) bool
}

// NewFrameLoop builds a loop for duration seconds, bounded by MaxVideoDuration.
func NewFrameLoop(fps int, duration float64) *FrameLoop {
	if fps <= 0 {
		fps = 30
	}
	limit := math.Min(duration, MaxVideoDuration.Seconds()) + SafetyMargin.Seconds()
	return &FrameLoop{
		FPS:       fps,
		Duration:  duration,
		MaxFrames: int(math.Ceil(limit*float64(fps))) + 1,
	}
}

// Run calls draw for every frame until a stop condition holds, draw fails or
// ctx is cancelled. Cancellation is checked before every frame.
func (l *FrameLoop) Run(ctx context.Context, draw func(frame int, elapsed float64) error) (int, StopReason, error) {
	ended := l.Ended
	if ended == nil {
		ended = func(elapsed float64) bool { return elapsed >= l.Duration }
	}
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return i, StopNone, err
		}
		if l.MaxFrames > 0 && i >= l.MaxFrames {
			return i, StopMaxFrames, nil
		}
		elapsed := float64(i) / float64(l.FPS)
		if reason := ShouldStop(elapsed, l.Duration, ended(elapsed)); reason != StopNone {
			return i, reason, nil
		}
		if err := draw(i, elapsed); err != nil {
			return i, StopNone, err
		}
	}
}
