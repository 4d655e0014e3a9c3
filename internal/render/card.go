package render

import (
	"Whisper/internal/model"
	"hash/fnv"
	"image/color"
	"math/rand"
	"time"

	"golang.org/x/image/font"
)

// Size is the edge length of the square canvas.
const Size = 1080

// Card geometry. Everything is laid out on the fixed Size×Size canvas.
const (
	cardX       = 90.0
	cardY       = 150.0
	cardW       = 900.0
	cardH       = 780.0
	cardRadius  = 40.0
	cardPadding = 70.0
	innerWidth  = cardW - 2*cardPadding

	titleY     = 250.0
	titleSize  = 42.0
	badgeY     = 292.0
	badgeH     = 46.0
	badgeSize  = 22.0
	bodyTop    = 380.0
	footerY    = 885.0
	footerSize = 24.0
	brandY     = 1010.0
	brandSize  = 26.0

	staticWaveY    = 720.0
	staticWaveMaxH = 100.0

	animWaveY    = 700.0
	animWaveMaxH = 110.0
	animWaveMinH = 12.0
	progressY    = 790.0
	progressH    = 8.0
	clockY       = 835.0
	clockSize    = 26.0

	dotCount        = 60
	staticBarCount  = 32
	animatedBars    = 48
	lineHeightRatio = 1.4
)

// bodySizes are tried largest first. At the smallest size a message of
// model.MaxContentLength runes fits every body area when wrapped by rune.
var bodySizes = []float64{44, 38, 32, 28, 24, 21, 18, 16, 14, 12, 11, 10}

// Placeholder bodies for messages without text.
const (
	AudioPlaceholder = "Sent you a voice message"
	TextPlaceholder  = "No message content"
)

// CardMode selects which variant of the card is laid out.
type CardMode int

const (
	// ModeStill is the JPEG export. Audio messages get a decorative waveform.
	ModeStill CardMode = iota
	// ModeAnimated is the video frame, which always reserves room for the
	// animated waveform, the progress bar and the clock.
	ModeAnimated
)

// Dot is one decorative background circle.
type Dot struct {
	X, Y, R, Alpha float64
}

// Badge is the coloured pill naming the message type.
type Badge struct {
	Label string
	Color color.Color
}

// Card is the fully laid out content of one export, independent of drawing.
type Card struct {
	Mode       CardMode
	Title      string
	Badge      Badge
	Lines      []string
	FontSize   float64
	LineHeight float64
	BodyTop    float64
	Dots       []Dot
	// Waveform is set when the still card shows the decorative bars.
	Waveform bool
	// Bars are pseudo-random heights in [0.2,1]. The animated card uses them as
	// per-bar amplitude envelopes.
	Bars   []float64
	Footer string
}

// titleFor picks the heading by message type.
func titleFor(t model.MessageType) string {
	switch t {
	case model.MessageTypeAudio:
		return "New anonymous voice message"
	case model.MessageTypeBoth:
		return "New anonymous message + voice"
	}
	return "New anonymous message"
}

func badgeFor(t model.MessageType, theme Theme) Badge {
	switch t {
	case model.MessageTypeAudio:
		return Badge{Label: "AUDIO", Color: theme.Accent}
	case model.MessageTypeBoth:
		return Badge{Label: "TEXT + AUDIO", Color: mix(theme.Primary, theme.Accent, 0.5)}
	}
	return Badge{Label: "TEXT", Color: theme.Primary}
}

// bodyText returns the text to print, falling back to a placeholder.
func bodyText(m *model.Message) string {
	if txt := m.Text(); txt != "" {
		return txt
	}
	if m.MessageType == model.MessageTypeAudio {
		return AudioPlaceholder
	}
	return TextPlaceholder
}

// seedFor derives a stable RNG seed so re-exporting a message gives the same picture.
func seedFor(m *model.Message) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(m.ID))
	_, _ = h.Write([]byte(m.CreatedAt.UTC().Format(time.RFC3339Nano)))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func bodyBottom(mode CardMode, waveform bool) float64 {
	switch {
	case mode == ModeAnimated:
		return 620
	case waveform:
		return 640
	}
	return 820
}

// BuildCard lays out a message. faceAt returns a body font face of the given size.
func BuildCard(m *model.Message, mode CardMode, theme Theme, loc *time.Location, faceAt func(size float64) font.Face) *Card {
	if loc == nil {
		loc = time.UTC
	}
	rng := rand.New(rand.NewSource(seedFor(m)))

	c := &Card{
		Mode:   mode,
		Title:  titleFor(m.MessageType),
		Badge:  badgeFor(m.MessageType, theme),
		Footer: m.CreatedAt.In(loc).Format("January 2, 2006 · 3:04 PM"),
	}

	c.Dots = make([]Dot, dotCount)
	for i := range c.Dots {
		c.Dots[i] = Dot{
			X:     rng.Float64() * Size,
			Y:     rng.Float64() * Size,
			R:     2 + rng.Float64()*7,
			Alpha: 0.08 + rng.Float64()*0.22,
		}
	}

	c.Waveform = mode == ModeStill && m.MessageType == model.MessageTypeAudio
	n := staticBarCount
	if mode == ModeAnimated {
		n = animatedBars
	}
	if c.Waveform || mode == ModeAnimated {
		c.Bars = make([]float64, n)
		for i := range c.Bars {
			c.Bars[i] = 0.2 + rng.Float64()*0.8
		}
	}

	text := bodyText(m)
	bottom := bodyBottom(mode, c.Waveform)
	for _, size := range bodySizes {
		measure := measureWith(faceAt(size))
		lineHeight := size * lineHeightRatio
		maxLines := int((bottom - bodyTop) / lineHeight)
		lines := Wrap(text, innerWidth, measure)
		if len(lines) <= maxLines && linesFit(lines, innerWidth, measure) {
			c.setBody(lines, size, bottom)
			return c
		}
	}

	// Слова не влезают даже мелким кеглем: переносим по символам.
	size := bodySizes[len(bodySizes)-1]
	measure := measureWith(faceAt(size))
	maxLines := int((bottom - bodyTop) / (size * lineHeightRatio))
	lines := FillRunes(text, innerWidth, measure)
	// обрезка возможна только для текста длиннее model.MaxContentLength
	c.setBody(truncateLines(lines, maxLines, innerWidth, measure), size, bottom)
	return c
}

func measureWith(face font.Face) MeasureFunc {
	return func(s string) float64 { return float64(font.MeasureString(face, s)) / 64 }
}

func linesFit(lines []string, maxWidth float64, measure MeasureFunc) bool {
	for _, l := range lines {
		if measure(l) > maxWidth {
			return false
		}
	}
	return true
}

// setBody stores the body lines centred vertically between bodyTop and bottom.
func (c *Card) setBody(lines []string, size, bottom float64) {
	c.Lines = lines
	c.FontSize = size
	c.LineHeight = size * lineHeightRatio
	c.BodyTop = bodyTop + ((bottom-bodyTop)-float64(len(lines))*c.LineHeight)/2
}
