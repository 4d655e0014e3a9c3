package render

import (
	"Whisper/internal/model"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// JPEGQuality is the quality of still exports.
const JPEGQuality = 92

var (
	// ErrSurfaceUnavailable means the raster surface (or its fonts) could not be set up.
	ErrSurfaceUnavailable = errors.New("raster surface unavailable")
	// ErrNoAudio is returned when a video is requested for a message without audio.
	ErrNoAudio = errors.New("message has no audio")
	// ErrInvalidDuration means the audio length could not be determined.
	ErrInvalidDuration = errors.New("audio duration is unknown")
	// ErrAudioTooLong means the audio is longer than MaxVideoDuration.
	ErrAudioTooLong = errors.New("audio is too long for a video export")
	// ErrEncodingUnsupported means the video encoder is not available at runtime.
	ErrEncodingUnsupported = errors.New("video encoding unsupported")
)

// Renderer paints message cards. It is safe for concurrent use: font faces
// are created per call.
type Renderer struct {
	Theme    Theme
	Location *time.Location

	regular *truetype.Font
	bold    *truetype.Font
}

// NewRenderer parses the embedded Go fonts.
func NewRenderer(theme Theme, loc *time.Location) (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("%w: regular font: %v", ErrSurfaceUnavailable, err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("%w: bold font: %v", ErrSurfaceUnavailable, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{Theme: theme, Location: loc, regular: regular, bold: bold}, nil
}

func (r *Renderer) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}

func (r *Renderer) bodyFace(size float64) font.Face {
	return r.face(r.regular, size)
}

// Card lays out m for the given mode using the renderer's fonts and theme.
func (r *Renderer) Card(m *model.Message, mode CardMode) *Card {
	return BuildCard(m, mode, r.Theme, r.Location, r.bodyFace)
}

// RenderImage produces the still JPEG export of m.
func (r *Renderer) RenderImage(m *model.Message) ([]byte, error) {
	if r == nil || r.regular == nil {
		return nil, ErrSurfaceUnavailable
	}
	card := r.Card(m, ModeStill)
	dc := gg.NewContext(Size, Size)
	r.drawBase(dc, card)
	if card.Waveform {
		r.drawStaticWaveform(dc, card)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBase paints everything that does not change between frames.
func (r *Renderer) drawBase(dc *gg.Context, c *Card) {
	// фон: диагональный градиент и точки
	g := gg.NewLinearGradient(0, 0, Size, Size)
	g.AddColorStop(0, r.Theme.Primary)
	g.AddColorStop(1, r.Theme.Accent)
	dc.SetFillStyle(g)
	dc.DrawRectangle(0, 0, Size, Size)
	dc.Fill()
	for _, d := range c.Dots {
		dc.SetRGBA(1, 1, 1, d.Alpha)
		dc.DrawCircle(d.X, d.Y, d.R)
		dc.Fill()
	}

	// тень карточки: несколько полупрозрачных смещённых слоёв
	for i := 1; i <= 5; i++ {
		off := float64(i) * 4
		dc.SetRGBA(0, 0, 0, 0.04)
		dc.DrawRoundedRectangle(cardX-off/2, cardY+off, cardW+off, cardH, cardRadius+off/2)
		dc.Fill()
	}
	dc.SetColor(r.Theme.Card)
	dc.DrawRoundedRectangle(cardX, cardY, cardW, cardH, cardRadius)
	dc.Fill()

	dc.SetFontFace(r.face(r.bold, titleSize))
	dc.SetColor(r.Theme.Foreground)
	dc.DrawStringAnchored(c.Title, Size/2, titleY, 0.5, 0.5)

	r.drawBadge(dc, c.Badge)

	dc.SetFontFace(r.bodyFace(c.FontSize))
	dc.SetColor(r.Theme.Foreground)
	for i, line := range c.Lines {
		y := c.BodyTop + float64(i)*c.LineHeight + c.LineHeight/2
		dc.DrawStringAnchored(line, Size/2, y, 0.5, 0.5)
	}

	dc.SetFontFace(r.face(r.regular, footerSize))
	dc.SetColor(withAlpha(r.Theme.Foreground, 0.6))
	dc.DrawStringAnchored(c.Footer, Size/2, footerY, 0.5, 0.5)

	dc.SetFontFace(r.face(r.bold, brandSize))
	dc.SetRGBA(1, 1, 1, 0.9)
	dc.DrawStringAnchored("Sent anonymously via Whisper", Size/2, brandY, 0.5, 0.5)
}

func (r *Renderer) drawBadge(dc *gg.Context, b Badge) {
	dc.SetFontFace(r.face(r.bold, badgeSize))
	w, _ := dc.MeasureString(b.Label)
	pillW := w + 48
	dc.SetColor(b.Color)
	dc.DrawRoundedRectangle(Size/2-pillW/2, badgeY, pillW, badgeH, badgeH/2)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(b.Label, Size/2, badgeY+badgeH/2, 0.5, 0.5)
}

// drawMicIcon draws a small microphone glyph inside an accent circle.
func (r *Renderer) drawMicIcon(dc *gg.Context, cx, cy float64) {
	dc.SetColor(r.Theme.Accent)
	dc.DrawCircle(cx, cy, 34)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.DrawRoundedRectangle(cx-8, cy-20, 16, 26, 8)
	dc.Fill()
	dc.SetLineWidth(3)
	dc.DrawArc(cx, cy-2, 13, 0, math.Pi)
	dc.Stroke()
	dc.DrawLine(cx, cy+11, cx, cy+19)
	dc.Stroke()
}

// drawStaticWaveform paints the decorative bars of a still audio card.
func (r *Renderer) drawStaticWaveform(dc *gg.Context, c *Card) {
	iconX := cardX + cardPadding + 34
	r.drawMicIcon(dc, iconX, staticWaveY)

	x0 := iconX + 70
	x1 := cardX + cardW - cardPadding
	n := len(c.Bars)
	if n == 0 {
		return
	}
	step := (x1 - x0) / float64(n)
	barW := step * 0.6
	dc.SetColor(withAlpha(r.Theme.Primary, 0.85))
	for i, h := range c.Bars {
		bh := h * staticWaveMaxH
		x := x0 + float64(i)*step + (step-barW)/2
		dc.DrawRoundedRectangle(x, staticWaveY-bh/2, barW, bh, barW/2)
		dc.Fill()
	}
}

// BarHeight is the animated height of bar i at elapsed seconds: a sinusoid
// phase-shifted per bar and scaled by the bar's envelope.
func BarHeight(i int, envelope, elapsed float64) float64 {
	wave := 0.5 + 0.5*math.Sin(elapsed*6+float64(i)*0.45)
	return animWaveMinH + (animWaveMaxH-animWaveMinH)*wave*envelope
}

// BarPlayed reports whether progress has passed the centre of bar i of n.
func BarPlayed(i, n int, progress float64) bool {
	if n <= 0 {
		return false
	}
	return progress >= (float64(i)+0.5)/float64(n)
}

// FrameBase renders the static part of every video frame once.
func (r *Renderer) FrameBase(c *Card) *image.RGBA {
	dc := gg.NewContext(Size, Size)
	r.drawBase(dc, c)
	return dc.Image().(*image.RGBA)
}

// RenderFrame draws one video frame on top of a copy of base.
func (r *Renderer) RenderFrame(base *image.RGBA, c *Card, elapsed, duration float64) *image.RGBA {
	img := image.NewRGBA(base.Rect)
	copy(img.Pix, base.Pix)
	dc := gg.NewContextForRGBA(img)

	progress := Progress(elapsed, duration)
	played := r.Theme.Accent
	unplayed := withAlpha(r.Theme.Foreground, 0.25)

	x0 := cardX + cardPadding
	n := len(c.Bars)
	if n > 0 {
		step := innerWidth / float64(n)
		barW := step * 0.6
		for i, env := range c.Bars {
			bh := BarHeight(i, env, elapsed)
			x := x0 + float64(i)*step + (step-barW)/2
			if BarPlayed(i, n, progress) {
				dc.SetColor(played)
			} else {
				dc.SetColor(unplayed)
			}
			dc.DrawRoundedRectangle(x, animWaveY-bh/2, barW, bh, barW/2)
			dc.Fill()
		}
	}

	dc.SetColor(withAlpha(r.Theme.Foreground, 0.12))
	dc.DrawRoundedRectangle(x0, progressY, innerWidth, progressH, progressH/2)
	dc.Fill()
	if w := innerWidth * progress; w > 0 {
		dc.SetColor(played)
		dc.DrawRoundedRectangle(x0, progressY, w, progressH, progressH/2)
		dc.Fill()
	}

	total := duration
	if !ValidDuration(total) {
		total = 0
	}
	dc.SetFontFace(r.face(r.regular, clockSize))
	dc.SetColor(withAlpha(r.Theme.Foreground, 0.7))
	dc.DrawStringAnchored(FormatClock(math.Min(elapsed, total))+" / "+FormatClock(total), Size/2, clockY, 0.5, 0.5)

	return img
}
