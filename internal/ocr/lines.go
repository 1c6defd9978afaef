package ocr

import (
	"sort"
	"strings"
)

// Token is one OCR word with its pixel-space position on the page image.
type Token struct {
	Text   string
	Left   int
	Top    int
	Width  int
	Height int
	Conf   float64

	Block int
	Par   int
	Line  int
	Word  int
}

// Line is the set of tokens the OCR engine put on one (block, paragraph, line).
type Line struct {
	Top   int
	Left  int
	Text  string
	Words []Token
}

type lineKey struct {
	block, par, line int
}

// GroupLines groups tokens by the engine's own block/paragraph/line identifiers and
// returns the lines in reading order (sorted by top, then left). Blank tokens are dropped.
func GroupLines(tokens []Token) []Line {
	groups := make(map[lineKey][]Token)
	var order []lineKey
	for _, t := range tokens {
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			continue
		}
		k := lineKey{t.Block, t.Par, t.Line}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], t)
	}

	lines := make([]Line, 0, len(order))
	for _, k := range order {
		words := groups[k]
		sort.SliceStable(words, func(i, j int) bool { return words[i].Left < words[j].Left })

		ln := Line{Top: words[0].Top, Left: words[0].Left, Words: words}
		texts := make([]string, len(words))
		for i, w := range words {
			texts[i] = w.Text
			if w.Top < ln.Top {
				ln.Top = w.Top
			}
		}
		ln.Text = strings.Join(texts, " ")
		lines = append(lines, ln)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Top != lines[j].Top {
			return lines[i].Top < lines[j].Top
		}
		return lines[i].Left < lines[j].Left
	})
	return lines
}

// ShiftLeft moves every line and word right by dx pixels. Used to put tokens from a
// cropped image back into page coordinates.
func ShiftLeft(lines []Line, dx int) {
	for i := range lines {
		lines[i].Left += dx
		for j := range lines[i].Words {
			lines[i].Words[j].Left += dx
		}
	}
}
