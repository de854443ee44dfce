// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package traverse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/notion-eqfix/pkg/types"
)

func init() {
	// Settle delays are real-page concerns; skip them in tests.
	sleep = func(time.Duration) {}
}

// fakeBlock is one text container. hidden counts the collapsed toggles still
// concealing it; each expansion sweep peels one level.
type fakeBlock struct {
	ref    string
	text   string
	orig   string
	hidden int
}

type selection struct {
	ref string
	raw string
	occ int
}

// fakeSurface is an in-memory page. Convert removes the selected raw text,
// the way a committed equation removes its literal markup.
type fakeSurface struct {
	blocks []*fakeBlock

	failConvert    map[string]bool // raws whose shortcut never yields an editor
	vanishOnSelect map[string]bool // raws that disappear between scan and select
	revert         bool            // page restores converted text before the next read

	sel        *selection
	selections []selection
	sweeps     int
	converted  []string
}

func newFakeSurface(blocks ...*fakeBlock) *fakeSurface {
	for _, b := range blocks {
		b.orig = b.text
	}
	return &fakeSurface{
		blocks:         blocks,
		failConvert:    make(map[string]bool),
		vanishOnSelect: make(map[string]bool),
	}
}

func (f *fakeSurface) block(ref string) *fakeBlock {
	for _, b := range f.blocks {
		if b.ref == ref {
			return b
		}
	}
	return nil
}

func (f *fakeSurface) ExpandCollapsed(_ context.Context) (int, error) {
	f.sweeps++
	opened := 0
	for _, b := range f.blocks {
		if b.hidden > 0 {
			b.hidden--
			opened++
		}
	}
	return opened, nil
}

func (f *fakeSurface) TextBlocks(_ context.Context) ([]Block, error) {
	if f.revert {
		for _, b := range f.blocks {
			b.text = b.orig
		}
	}
	var out []Block
	for _, b := range f.blocks {
		if b.hidden == 0 {
			out = append(out, Block{Ref: b.ref, Text: b.text})
		}
	}
	return out, nil
}

func (f *fakeSurface) Select(_ context.Context, ref, raw string, occ int) error {
	b := f.block(ref)
	if b == nil {
		return ErrSpanNotFound
	}
	if f.vanishOnSelect[raw] {
		b.text = strings.Replace(b.text, raw, "", 1)
		return ErrSpanNotFound
	}
	if strings.Count(b.text, raw) <= occ {
		return ErrSpanNotFound
	}
	f.sel = &selection{ref: ref, raw: raw, occ: occ}
	f.selections = append(f.selections, *f.sel)
	return nil
}

func (f *fakeSurface) Convert(_ context.Context) error {
	if f.sel == nil {
		return errors.New("nothing selected")
	}
	if f.failConvert[f.sel.raw] {
		return errors.New("equation editor did not appear")
	}
	b := f.block(f.sel.ref)
	b.text = removeOccurrence(b.text, f.sel.raw, f.sel.occ)
	f.converted = append(f.converted, f.sel.raw)
	f.sel = nil
	return nil
}

func (f *fakeSurface) CountLiteral(_ context.Context, ref, raw string) (int, error) {
	b := f.block(ref)
	if b == nil || b.hidden > 0 {
		return 0, nil
	}
	return strings.Count(b.text, raw), nil
}

func removeOccurrence(text, raw string, occ int) string {
	idx := -1
	from := 0
	for k := 0; k <= occ; k++ {
		idx = strings.Index(text[from:], raw)
		if idx < 0 {
			return text
		}
		idx += from
		from = idx + 1
	}
	return text[:idx] + text[idx+len(raw):]
}

func testCfg() types.TraversalConfig {
	return types.TraversalConfig{
		MaxCycles:       50,
		StallCycles:     3,
		MaxExpandPasses: 10,
	}
}

func TestRun_ConvertsAllSpans(t *testing.T) {
	surface := newFakeSurface(
		&fakeBlock{ref: "b1", text: "intro $a$ mid $$b+b$$ end"},
		&fakeBlock{ref: "b2", text: "tail $c$"},
	)
	ctrl := New(surface, testCfg(), io.Discard)

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusDone, sum.Status)
	assert.Equal(t, 3, sum.Converted)
	assert.Empty(t, sum.Skipped)
	// One conversion per cycle, document order, then one clean scan.
	assert.Equal(t, []string{"$a$", "$$b+b$$", "$c$"}, surface.converted)
	assert.Equal(t, 4, sum.Cycles)
	assert.Equal(t, "intro  mid  end", surface.block("b1").text)
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	surface := newFakeSurface(&fakeBlock{ref: "b1", text: "$a$ and $$b$$"})

	sum, err := New(surface, testCfg(), io.Discard).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sum.Converted)

	// Converted equations left no literal markup behind, so a second run
	// finds nothing on its first scan.
	sum, err = New(surface, testCfg(), io.Discard).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, sum.Status)
	assert.Equal(t, 0, sum.Converted)
	assert.Equal(t, 1, sum.Cycles)
}

func TestRun_NestedTogglesExpandToFixedPoint(t *testing.T) {
	// A toggle inside a toggle: two sweeps must land before the span is
	// scannable at all.
	surface := newFakeSurface(&fakeBlock{ref: "deep", text: "$z$", hidden: 2})
	ctrl := New(surface, testCfg(), io.Discard)

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusDone, sum.Status)
	assert.Equal(t, 1, sum.Converted)
	// Sweeps within the first cycle: opened, opened, zero (fixed point).
	assert.GreaterOrEqual(t, surface.sweeps, 3)
}

func TestRun_FailedSpanIsRetriedThenSkipped(t *testing.T) {
	surface := newFakeSurface(&fakeBlock{ref: "b1", text: "$bad$ and $good$"})
	surface.failConvert["$bad$"] = true
	ctrl := New(surface, testCfg(), io.Discard)

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusPartial, sum.Status)
	assert.Equal(t, 1, sum.Converted)
	require.Len(t, sum.Skipped, 1)
	assert.Equal(t, "$bad$", sum.Skipped[0].Raw)
	assert.Contains(t, sum.Skipped[0].Reason, "editor did not appear")
	// The failing span was attempted exactly twice: once plus one retry.
	attempts := 0
	for _, s := range surface.selections {
		if s.raw == "$bad$" {
			attempts++
		}
	}
	assert.Equal(t, 2, attempts)
}

func TestRun_SkipBudgetIsPerOccurrence(t *testing.T) {
	surface := newFakeSurface(&fakeBlock{ref: "b1", text: "$x$ plus $x$"})
	surface.failConvert["$x$"] = true
	ctrl := New(surface, testCfg(), io.Discard)

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusPartial, sum.Status)
	assert.Len(t, sum.Skipped, 2)
	// The second attempt targeted the second occurrence, not the first
	// again.
	last := surface.selections[len(surface.selections)-1]
	assert.Equal(t, 1, last.occ)
}

func TestRun_StallAborts(t *testing.T) {
	surface := newFakeSurface(&fakeBlock{ref: "b1", text: "sticky $s$"})
	surface.revert = true // page re-renders the literal text back every cycle
	ctrl := New(surface, testCfg(), io.Discard)

	sum, err := ctrl.Run(context.Background())
	require.ErrorIs(t, err, ErrStallDetected)

	assert.Equal(t, types.StatusAborted, sum.Status)
	assert.LessOrEqual(t, sum.Cycles, 5)
	require.NotEmpty(t, sum.Skipped)
	assert.Equal(t, "$s$", sum.Skipped[len(sum.Skipped)-1].Raw)
}

func TestRun_MaxCyclesIsHardCeiling(t *testing.T) {
	surface := newFakeSurface(&fakeBlock{ref: "b1", text: "$s$"})
	surface.revert = true
	cfg := testCfg()
	cfg.MaxCycles = 5
	cfg.StallCycles = 100
	ctrl := New(surface, cfg, io.Discard)

	sum, err := ctrl.Run(context.Background())
	require.ErrorIs(t, err, ErrStallDetected)
	assert.Equal(t, types.StatusAborted, sum.Status)
	assert.Equal(t, 5, sum.Cycles)
}

func TestRun_TrailingMarkerReachesDone(t *testing.T) {
	surface := newFakeSurface(&fakeBlock{ref: "b1", text: "costs $5, no pair"})
	ctrl := New(surface, testCfg(), io.Discard)

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusDone, sum.Status)
	assert.Equal(t, 0, sum.Converted)
	assert.Equal(t, 1, sum.Unmatched)
	assert.Equal(t, 1, sum.Cycles)
}

func TestRun_VanishedSpanIsBenign(t *testing.T) {
	surface := newFakeSurface(&fakeBlock{ref: "b1", text: "$gone$"})
	surface.vanishOnSelect["$gone$"] = true
	ctrl := New(surface, testCfg(), io.Discard)

	sum, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StatusDone, sum.Status)
	assert.Equal(t, 0, sum.Converted)
	assert.Empty(t, sum.Skipped)
}

func TestRun_CancelledBetweenCycles(t *testing.T) {
	surface := newFakeSurface(&fakeBlock{ref: "b1", text: "$a$"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := New(surface, testCfg(), io.Discard).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StatusAborted, sum.Status)
	assert.Equal(t, 0, sum.Converted)
}
