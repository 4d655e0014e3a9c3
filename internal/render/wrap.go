package render

import "strings"

// MeasureFunc returns the rendered width of s in pixels.
type MeasureFunc func(s string) float64

// Wrap splits text into lines no wider than maxWidth using a greedy fill.
// Whitespace is normalised to single spaces. A word wider than maxWidth on
// its own is kept whole on its own line.
func Wrap(text string, maxWidth float64, measure MeasureFunc) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		candidate := line + " " + w
		if measure(candidate) > maxWidth {
			lines = append(lines, line)
			line = w
			continue
		}
		line = candidate
	}
	return append(lines, line)
}

// FillRunes breaks whitespace-normalised text at any rune so that every line
// fits maxWidth. A space at a break point is dropped. Used when single words
// are too wide for Wrap.
func FillRunes(text string, maxWidth float64, measure MeasureFunc) []string {
	norm := strings.Join(strings.Fields(text), " ")
	if norm == "" {
		return nil
	}
	var lines []string
	var line []rune
	for _, r := range norm {
		if len(line) == 0 && r == ' ' {
			continue
		}
		if len(line) > 0 && measure(string(line)+string(r)) > maxWidth {
			lines = append(lines, strings.TrimRight(string(line), " "))
			line = line[:0]
			if r == ' ' {
				continue
			}
		}
		line = append(line, r)
	}
	if len(line) > 0 {
		lines = append(lines, strings.TrimRight(string(line), " "))
	}
	return lines
}

// truncateLines keeps at most n lines and marks the cut with an ellipsis that
// still fits into maxWidth.
func truncateLines(lines []string, n int, maxWidth float64, measure MeasureFunc) []string {
	if n <= 0 {
		return nil
	}
	if len(lines) <= n {
		return lines
	}
	out := append([]string(nil), lines[:n]...)
	last := []rune(out[n-1])
	for len(last) > 0 && measure(string(last)+"…") > maxWidth {
		last = last[:len(last)-1]
	}
	out[n-1] = strings.TrimRight(string(last), " ") + "…"
	return out
}
