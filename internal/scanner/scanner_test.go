// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/notion-eqfix/pkg/types"
)

func TestScan_BlockBeforeInline(t *testing.T) {
	res := Scan("$$a+b$$ and $c$")

	require.Len(t, res.Spans, 2)
	assert.Equal(t, types.DelimiterBlock, res.Spans[0].Kind)
	assert.Equal(t, "$$a+b$$", res.Spans[0].Raw)
	assert.Equal(t, "a+b", res.Spans[0].Body)
	assert.Equal(t, types.DelimiterInline, res.Spans[1].Kind)
	assert.Equal(t, "$c$", res.Spans[1].Raw)
	assert.Equal(t, "c", res.Spans[1].Body)
	assert.Empty(t, res.Unmatched)
}

func TestScan_TrailingUnmatchedMarker(t *testing.T) {
	res := Scan("price is $x")

	assert.Empty(t, res.Spans)
	assert.Equal(t, []int{9}, res.Unmatched)
}

func TestScan_UnmatchedDoesNotCrossLines(t *testing.T) {
	res := Scan("a $x\nb$ c")

	assert.Empty(t, res.Spans)
	// One opener per line, neither closed on its own line.
	assert.Equal(t, []int{2, 6}, res.Unmatched)
}

func TestScan_BlockSpansLines(t *testing.T) {
	res := Scan("$$\n\\frac{a}{b}\n$$")

	require.Len(t, res.Spans, 1)
	assert.Equal(t, types.DelimiterBlock, res.Spans[0].Kind)
	assert.Equal(t, "\n\\frac{a}{b}\n", res.Spans[0].Body)
}

func TestScan_EmptyPairsAreDegenerate(t *testing.T) {
	for _, text := range []string{"$$$$", "$$  $$", "before $$$$ after"} {
		res := Scan(text)
		assert.Empty(t, res.Spans, "input %q", text)
	}
}

func TestScan_TripleMarker(t *testing.T) {
	// No block pair exists, so the inline pass pairs the outer markers.
	res := Scan("$$$")

	require.Len(t, res.Spans, 1)
	assert.Equal(t, types.DelimiterInline, res.Spans[0].Kind)
	assert.Equal(t, "$$$", res.Spans[0].Raw)
	assert.Equal(t, "$", res.Spans[0].Body)
}

func TestScan_EscapedMarkersDoNotDelimit(t *testing.T) {
	res := Scan(`costs \$5 or \$10`)
	assert.Empty(t, res.Spans)
	assert.Empty(t, res.Unmatched)

	res = Scan(`costs \$5, area $b$`)
	require.Len(t, res.Spans, 1)
	assert.Equal(t, "$b$", res.Spans[0].Raw)
	assert.Empty(t, res.Unmatched)

	// A pair whose body is only whitespace is degenerate markup.
	res = Scan("$ $")
	assert.Empty(t, res.Spans)
}

func TestScan_MultipleInlineOnOneLine(t *testing.T) {
	res := Scan("$a$ then $b$ then $c$")

	require.Len(t, res.Spans, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, res.Spans[i].Body)
		assert.Equal(t, types.DelimiterInline, res.Spans[i].Kind)
	}
}

func TestScan_InlineBetweenBlocks(t *testing.T) {
	res := Scan("$$x$$ $m$ $$y$$")

	require.Len(t, res.Spans, 3)
	assert.Equal(t, types.DelimiterBlock, res.Spans[0].Kind)
	assert.Equal(t, types.DelimiterInline, res.Spans[1].Kind)
	assert.Equal(t, types.DelimiterBlock, res.Spans[2].Kind)
	// Document order.
	assert.True(t, res.Spans[0].Start < res.Spans[1].Start)
	assert.True(t, res.Spans[1].Start < res.Spans[2].Start)
}

func TestScan_SingleMarkersInsideBlockAreConsumed(t *testing.T) {
	res := Scan("$$rate in $/h$$")

	require.Len(t, res.Spans, 1)
	assert.Equal(t, types.DelimiterBlock, res.Spans[0].Kind)
	assert.Equal(t, "rate in $/h", res.Spans[0].Body)
}

func TestScan_NoMarkers(t *testing.T) {
	res := Scan("nothing to see here")
	assert.Empty(t, res.Spans)
	assert.Empty(t, res.Unmatched)
}

func TestScanBlock_StampsRef(t *testing.T) {
	res := ScanBlock("block-7", "$a$ and $$b$$")

	require.Len(t, res.Spans, 2)
	for _, s := range res.Spans {
		assert.Equal(t, "block-7", s.BlockRef)
	}
}
