// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scanner finds math-marker spans in page text.
//
// Two delimiter forms are recognized: $$...$$ (block) and $...$ (inline).
// Block pairs are resolved first; inline pairs are searched only in text the
// block pass did not consume. The scan is ordered, left to right, and
// non-overlapping.
package scanner

import (
	"sort"
	"strings"

	"github.com/pdiddy/notion-eqfix/pkg/types"
)

// Result holds the spans found in one piece of text plus the positions of
// markers that could not be paired.
type Result struct {
	Spans []types.MathSpan

	// Unmatched lists byte offsets of opening markers left without a
	// closing partner. They produce no span and are left untouched.
	Unmatched []int
}

// Scan finds all math spans in text. Block spans may cross lines; inline
// spans must open and close on the same line. A backslash-escaped marker
// never delimits. Pairs with empty or whitespace-only content are degenerate
// markup and emit no span.
//
// Three consecutive markers ($$$) have no block pair, so the inline pass
// pairs the first and third, yielding an inline span whose body is a single
// marker. This mirrors the lazy-match behavior the conversion previously
// relied on and is the documented resolution of the ambiguity.
func Scan(text string) Result {
	var res Result
	consumed := make([]bool, len(text))

	// Block pass: $$...$$ first, so nested single markers inside a block
	// body never open inline spans.
	i := 0
	for {
		open := findDouble(text, consumed, i)
		if open < 0 {
			break
		}
		close_ := findDouble(text, consumed, open+2)
		if close_ < 0 {
			break
		}
		body := text[open+2 : close_]
		for k := open; k < close_+2; k++ {
			consumed[k] = true
		}
		if strings.TrimSpace(body) != "" {
			res.Spans = append(res.Spans, types.MathSpan{
				Kind:  types.DelimiterBlock,
				Raw:   text[open : close_+2],
				Body:  body,
				Start: open,
				End:   close_ + 2,
			})
		}
		i = close_ + 2
	}

	// Inline pass over whatever the block pass left behind.
	open := -1
	for j := 0; j < len(text); j++ {
		if consumed[j] {
			continue
		}
		if text[j] == '\n' {
			if open >= 0 {
				res.Unmatched = append(res.Unmatched, open)
				open = -1
			}
			continue
		}
		if text[j] != '$' || escaped(text, j) {
			continue
		}
		if open < 0 {
			open = j
			continue
		}
		if j == open+1 {
			// Adjacent marker: part of the body, not a closer.
			continue
		}
		body := text[open+1 : j]
		for k := open; k <= j; k++ {
			consumed[k] = true
		}
		if strings.TrimSpace(body) != "" {
			res.Spans = append(res.Spans, types.MathSpan{
				Kind:  types.DelimiterInline,
				Raw:   text[open : j+1],
				Body:  body,
				Start: open,
				End:   j + 1,
			})
		}
		open = -1
	}
	if open >= 0 {
		res.Unmatched = append(res.Unmatched, open)
	}

	sort.Slice(res.Spans, func(a, b int) bool {
		return res.Spans[a].Start < res.Spans[b].Start
	})
	return res
}

// ScanBlock scans one container's text and stamps every span with its ref.
func ScanBlock(ref, text string) Result {
	res := Scan(text)
	for i := range res.Spans {
		res.Spans[i].BlockRef = ref
	}
	return res
}

// findDouble returns the offset of the next unconsumed, unescaped $$ pair at
// or after from.
func findDouble(text string, consumed []bool, from int) int {
	for j := from; j+1 < len(text); j++ {
		if text[j] != '$' || text[j+1] != '$' {
			continue
		}
		if consumed[j] || consumed[j+1] || escaped(text, j) {
			continue
		}
		return j
	}
	return -1
}

// escaped reports whether the character at pos sits behind an odd number of
// backslashes.
func escaped(text string, pos int) bool {
	n := 0
	for k := pos - 1; k >= 0 && text[k] == '\\'; k-- {
		n++
	}
	return n%2 == 1
}
