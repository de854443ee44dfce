// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package traverse runs the scan/convert loop over a live page surface.
//
// The page mutates under the loop: every conversion deletes literal text and
// inserts a rendered equation, shifting everything after it. The controller
// therefore never trusts a span beyond the cycle that discovered it. Each
// cycle expands collapsed toggles to a fixed point, re-scans the whole page,
// converts exactly one span, and starts over. Positions are always
// re-resolved from content identity (the span's raw text), never from cached
// offsets.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/notion-eqfix/internal/scanner"
	"github.com/pdiddy/notion-eqfix/pkg/types"
)

var (
	// ErrSpanNotFound means a scanned span could not be re-located at use
	// time. The document resolved it already; callers treat this as
	// success by absence.
	ErrSpanNotFound = errors.New("span no longer present in its container")

	// ErrStallDetected means the outstanding span count stopped
	// decreasing; continuing would loop forever.
	ErrStallDetected = errors.New("stall detected: outstanding span count not decreasing")

	// ErrSessionUnready means the page never became usable; nothing was
	// converted.
	ErrSessionUnready = errors.New("session not ready")
)

// sleep is swappable so tests do not wait out real settle delays.
var sleep = time.Sleep

// Block is one visible text container on the page at a moment in time. Ref
// is only valid until the next mutation.
type Block struct {
	Ref  string
	Text string
}

// Surface is the live document the traversal reads and mutates. The
// controller owns the surface exclusively for the duration of a run; all
// operations are strictly sequential through one focus point.
type Surface interface {
	// ExpandCollapsed performs one sweep over the page, opening every
	// collapsed toggle it can reach, and reports how many it opened.
	// Opening a toggle can reveal further collapsed toggles, so callers
	// sweep repeatedly until a sweep opens none.
	ExpandCollapsed(ctx context.Context) (int, error)

	// TextBlocks returns the page's current visible text containers.
	// Text inside already-rendered equation blocks is excluded so their
	// delimiters are never re-matched.
	TextBlocks(ctx context.Context) ([]Block, error)

	// Select re-resolves raw inside the referenced container by a fresh
	// text search and selects exactly that range. occurrence counts equal
	// raws within the container, in order. Returns ErrSpanNotFound when
	// the raw text is gone.
	Select(ctx context.Context, ref, raw string, occurrence int) error

	// Convert dispatches the equation shortcut against the current
	// selection and commits the resulting editor.
	Convert(ctx context.Context) error

	// CountLiteral reports how many times raw still appears as literal
	// text in the referenced container. A missing container counts zero.
	CountLiteral(ctx context.Context, ref, raw string) (int, error)
}

// spanKey identifies a span for skip accounting. Refs drift between cycles,
// so failed spans are tracked by content, with an occurrence budget so one
// poisoned span does not skip later identical ones.
type spanKey struct {
	raw  string
	kind types.DelimiterKind
}

// candidate is one outstanding span from the current scan.
type candidate struct {
	span       types.MathSpan
	occurrence int // among equal raws in the same container
}

// Controller orchestrates expansion, scanning, and conversion for one run.
type Controller struct {
	surface Surface
	cfg     types.TraversalConfig
	w       io.Writer

	skipped  map[spanKey]int
	skipList []types.SkippedSpan
}

// New returns a Controller over surface. Progress lines go to w.
func New(surface Surface, cfg types.TraversalConfig, w io.Writer) *Controller {
	return &Controller{
		surface: surface,
		cfg:     cfg,
		w:       w,
		skipped: make(map[spanKey]int),
	}
}

// Run drives the loop until a scan finds nothing convertible, the context is
// cancelled, or a stall is detected. The run may be stopped only between
// cycles; a half-committed conversion is never abandoned.
func (c *Controller) Run(ctx context.Context) (types.RunSummary, error) {
	start := time.Now()
	sum := types.RunSummary{StartedAt: start}

	bestOutstanding := -1
	stalls := 0

	for cycle := 1; cycle <= c.cfg.MaxCycles; cycle++ {
		sum.Cycles = cycle

		select {
		case <-ctx.Done():
			sum.Status = types.StatusAborted
			sum.Skipped = c.skipList
			sum.Elapsed = time.Since(start)
			return sum, ctx.Err()
		default:
		}

		// Expanding: open collapsed toggles to a fixed point so nested
		// content becomes scannable. Expansion is monotonic; nothing is
		// ever re-collapsed.
		if err := c.expandAll(ctx); err != nil {
			sum.Status = types.StatusAborted
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("expanding toggles: %w", err)
		}

		// Scanning: re-derive the span list from the live page.
		blocks, err := c.surface.TextBlocks(ctx)
		if err != nil {
			sum.Status = types.StatusAborted
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("reading page blocks: %w", err)
		}
		outstanding, unmatched := c.collect(blocks)
		sum.Unmatched = unmatched

		if len(outstanding) == 0 {
			sum.Status = types.StatusDone
			if len(c.skipList) > 0 {
				sum.Status = types.StatusPartial
			}
			sum.Skipped = c.skipList
			sum.Elapsed = time.Since(start)
			return sum, nil
		}

		if bestOutstanding >= 0 && len(outstanding) >= bestOutstanding {
			stalls++
		} else {
			bestOutstanding = len(outstanding)
			stalls = 0
		}
		if stalls >= c.cfg.StallCycles {
			for _, cand := range outstanding {
				c.skipList = append(c.skipList, types.SkippedSpan{
					Raw:    cand.span.Raw,
					Kind:   cand.span.Kind,
					Reason: "unconverted at abort",
				})
			}
			sum.Status = types.StatusAborted
			sum.Skipped = c.skipList
			sum.Elapsed = time.Since(start)
			return sum, ErrStallDetected
		}

		// Converting: exactly one span, then back to Scanning. Batching
		// is disallowed because this conversion may invalidate every
		// other span in the list.
		attempt := c.convertOne(ctx, outstanding[0])
		switch attempt.Outcome {
		case types.OutcomeConverted:
			sum.Converted++
			fmt.Fprintf(c.w, "converted %s span %q\n", attempt.Span.Kind, attempt.Span.Raw)
		case types.OutcomeNotFound:
			fmt.Fprintf(c.w, "span %q resolved itself, moving on\n", attempt.Span.Raw)
		case types.OutcomeFailed:
			key := spanKey{raw: attempt.Span.Raw, kind: attempt.Span.Kind}
			c.skipped[key]++
			c.skipList = append(c.skipList, types.SkippedSpan{
				Raw:    attempt.Span.Raw,
				Kind:   attempt.Span.Kind,
				Reason: attempt.Error,
			})
			fmt.Fprintf(c.w, "warning: skipping %q: %s\n", attempt.Span.Raw, attempt.Error)
		}
	}

	sum.Status = types.StatusAborted
	sum.Skipped = c.skipList
	sum.Elapsed = time.Since(start)
	return sum, fmt.Errorf("%w: %d cycles exhausted", ErrStallDetected, c.cfg.MaxCycles)
}

// expandAll sweeps the page until one full sweep opens zero toggles, bounded
// by MaxExpandPasses.
func (c *Controller) expandAll(ctx context.Context) error {
	for pass := 0; pass < c.cfg.MaxExpandPasses; pass++ {
		opened, err := c.surface.ExpandCollapsed(ctx)
		if err != nil {
			return err
		}
		if opened == 0 {
			return nil
		}
		fmt.Fprintf(c.w, "expanded %d toggle(s)\n", opened)
		sleep(c.cfg.ExpandSettle)
	}
	return nil
}

// collect scans every block and filters out spans whose occurrence budget
// was consumed by earlier failures. Skipped spans stay in the page as
// literal text, so they still advance the occurrence counters used by the
// locator.
func (c *Controller) collect(blocks []Block) ([]candidate, int) {
	var out []candidate
	unmatched := 0
	skipLeft := make(map[spanKey]int, len(c.skipped))
	for k, v := range c.skipped {
		skipLeft[k] = v
	}

	for _, b := range blocks {
		res := scanner.ScanBlock(b.Ref, b.Text)
		unmatched += len(res.Unmatched)

		perRaw := make(map[string]int)
		for _, span := range res.Spans {
			occ := perRaw[span.Raw]
			perRaw[span.Raw]++

			key := spanKey{raw: span.Raw, kind: span.Kind}
			if skipLeft[key] > 0 {
				skipLeft[key]--
				continue
			}
			out = append(out, candidate{span: span, occurrence: occ})
		}
	}
	return out, unmatched
}

// convertOne runs the select, shortcut, commit, verify sequence for a single
// span, retrying the whole sequence once. Verification is absence-based: the
// literal occurrence count in the container must drop.
func (c *Controller) convertOne(ctx context.Context, cand candidate) types.ConversionAttempt {
	span := cand.span
	attempt := types.ConversionAttempt{Span: span}

	before, err := c.surface.CountLiteral(ctx, span.BlockRef, span.Raw)
	if err != nil {
		attempt.Outcome = types.OutcomeFailed
		attempt.Error = err.Error()
		return attempt
	}
	if before == 0 {
		attempt.Outcome = types.OutcomeNotFound
		return attempt
	}

	var lastErr error
	for try := 0; try < 2; try++ {
		if err := c.surface.Select(ctx, span.BlockRef, span.Raw, cand.occurrence); err != nil {
			if errors.Is(err, ErrSpanNotFound) {
				attempt.Outcome = types.OutcomeNotFound
				return attempt
			}
			lastErr = fmt.Errorf("selection: %w", err)
			continue
		}

		if err := c.surface.Convert(ctx); err != nil {
			lastErr = fmt.Errorf("conversion: %w", err)
			continue
		}

		after, err := c.surface.CountLiteral(ctx, span.BlockRef, span.Raw)
		if err != nil {
			lastErr = err
			continue
		}
		if after < before {
			attempt.Outcome = types.OutcomeConverted
			return attempt
		}
		lastErr = errors.New("commit did not register, raw markup still present")
	}

	attempt.Outcome = types.OutcomeFailed
	attempt.Error = lastErr.Error()
	return attempt
}
