package render

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

// фиксированная ширина символа: 10px
func monoMeasure(s string) float64 { return float64(utf8.RuneCountInString(s)) * 10 }

func TestWrap_FitsOnOneLine(t *testing.T) {
	texts := []string{"hi", "hello world", "  padded   text  ", "ünïcödé wörds"}
	for _, txt := range texts {
		width := monoMeasure(strings.Join(strings.Fields(txt), " "))
		lines := Wrap(txt, width, monoMeasure)
		assert.Len(t, lines, 1, "text %q", txt)
	}
}

func TestWrap_GreedyBreaks(t *testing.T) {
	lines := Wrap("aaa bbb ccc dddd", 70, monoMeasure)
	assert.Equal(t, []string{"aaa bbb", "ccc", "dddd"}, lines)

	// слово длиннее строки остаётся целым на своей строке
	lines = Wrap("a verylongword b", 50, monoMeasure)
	assert.Equal(t, []string{"a", "verylongword", "b"}, lines)

	assert.Nil(t, Wrap("   \n\t ", 100, monoMeasure))
}

func TestWrap_JoinRestoresNormalisedText(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	alphabet := []rune("abcdefghijklmnopqrstuvwxyzäöü")
	seps := []string{" ", "  ", "\n", "\t", " \n "}
	for iter := 0; iter < 200; iter++ {
		var b strings.Builder
		words := rng.Intn(40)
		for w := 0; w < words; w++ {
			n := 1 + rng.Intn(15)
			for i := 0; i < n; i++ {
				b.WriteRune(alphabet[rng.Intn(len(alphabet))])
			}
			b.WriteString(seps[rng.Intn(len(seps))])
		}
		text := b.String()
		width := float64(20 + rng.Intn(300))

		lines := Wrap(text, width, monoMeasure)
		assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(lines, " "))
		for _, l := range lines {
			if strings.Contains(l, " ") {
				assert.LessOrEqual(t, monoMeasure(l), width, "multi-word line %q exceeds width", l)
			}
		}
	}
}

func TestTruncateLines(t *testing.T) {
	lines := []string{"one two", "three four", "five six"}
	assert.Equal(t, lines, truncateLines(lines, 3, 100, monoMeasure))

	out := truncateLines(lines, 2, 200, monoMeasure)
	assert.Equal(t, []string{"one two", "three four…"}, out)

	out = truncateLines(lines, 2, 60, monoMeasure)
	if assert.Len(t, out, 2) {
		assert.True(t, strings.HasSuffix(out[1], "…"))
		assert.LessOrEqual(t, monoMeasure(out[1]), 60.0)
	}
	assert.Nil(t, truncateLines(lines, 0, 100, monoMeasure))
}

func TestFillRunes(t *testing.T) {
	assert.Nil(t, FillRunes("   ", 50, monoMeasure))

	out := FillRunes("abcdefghijkl", 50, monoMeasure)
	assert.Equal(t, []string{"abcde", "fghij", "kl"}, out)

	// пробел на месте переноса отбрасывается
	out = FillRunes("abcd  efgh", 40, monoMeasure)
	assert.Equal(t, []string{"abcd", "efgh"}, out)
	for _, l := range FillRunes(strings.Repeat("xy ", 30), 70, monoMeasure) {
		assert.LessOrEqual(t, monoMeasure(l), 70.0)
		assert.False(t, strings.HasPrefix(l, " "))
	}
}
