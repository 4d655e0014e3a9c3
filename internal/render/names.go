package render

import (
	"strings"
	"time"
)

const (
	ImageContentType = "image/jpeg"
	VideoContentType = "video/webm"
)

// ImageFilename is message-YYYY-MM-DD.jpg.
func ImageFilename(t time.Time) string {
	return "message-" + t.Format("2006-01-02") + ".jpg"
}

// AudioFilename is audio-message-YYYY-MM-DD-HHmm.<ext>; ext defaults to mp3.
func AudioFilename(t time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "mp3"
	}
	return "audio-message-" + t.Format("2006-01-02-1504") + "." + ext
}

// VideoFilename is audio-message-video-YYYY-MM-DD-HHmm.webm.
func VideoFilename(t time.Time) string {
	return "audio-message-video-" + t.Format("2006-01-02-1504") + ".webm"
}
