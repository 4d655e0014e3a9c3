package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArtifactNames(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 0, 0, time.UTC)
	assert.Equal(t, "message-2024-03-09.jpg", ImageFilename(ts))
	assert.Equal(t, "audio-message-2024-03-09-0705.mp3", AudioFilename(ts, ""))
	assert.Equal(t, "audio-message-2024-03-09-0705.m4a", AudioFilename(ts, ".m4a"))
	assert.Equal(t, "audio-message-video-2024-03-09-0705.webm", VideoFilename(ts))
}
