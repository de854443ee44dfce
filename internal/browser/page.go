// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"

	"github.com/pdiddy/notion-eqfix/internal/traverse"
	"github.com/pdiddy/notion-eqfix/pkg/types"
)

// Page implements traverse.Surface against a live rendered document. Every
// operation re-reads the DOM at call time; nothing here caches positions.
type Page struct {
	page *rod.Page
	cfg  types.TraversalConfig
}

// ExpandCollapsed performs one expansion sweep over the canvas.
func (p *Page) ExpandCollapsed(ctx context.Context) (int, error) {
	res, err := p.page.Context(ctx).Eval(jsExpandToggles)
	if err != nil {
		return 0, fmt.Errorf("toggle sweep: %w", err)
	}
	return res.Value.Int(), nil
}

// TextBlocks reads the current visible text containers holding marker
// characters. Equation-token internals are already filtered out page-side.
func (p *Page) TextBlocks(ctx context.Context) ([]traverse.Block, error) {
	res, err := p.page.Context(ctx).Eval(jsCollectBlocks)
	if err != nil {
		return nil, fmt.Errorf("collecting blocks: %w", err)
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("decoding block list: %w", err)
	}
	var items []struct {
		Path string `json:"path"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding block list: %w", err)
	}

	blocks := make([]traverse.Block, 0, len(items))
	for _, it := range items {
		blocks = append(blocks, traverse.Block{Ref: it.Path, Text: it.Text})
	}
	return blocks, nil
}

// Select re-finds raw inside the container and sets the window selection to
// exactly that range, focusing the surrounding editable so shortcuts apply.
func (p *Page) Select(ctx context.Context, ref, raw string, occurrence int) error {
	res, err := p.page.Context(ctx).Eval(jsSelectSpan, ref, raw, occurrence)
	if err != nil {
		return fmt.Errorf("selecting span: %w", err)
	}

	out, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("decoding selection result: %w", err)
	}
	var sel struct {
		OK       bool   `json:"ok"`
		NotFound bool   `json:"notFound"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(out, &sel); err != nil {
		return fmt.Errorf("decoding selection result: %w", err)
	}

	if sel.NotFound {
		return fmt.Errorf("%w: %s", traverse.ErrSpanNotFound, sel.Error)
	}
	if !sel.OK {
		return errors.New("selection failed: " + sel.Error)
	}
	return nil
}

// Convert turns the current selection into an equation: the platform
// shortcut, a wait for the equation editor overlay, then the commit key.
func (p *Page) Convert(ctx context.Context) error {
	mod := input.ControlLeft
	if runtime.GOOS == "darwin" {
		mod = input.MetaLeft
	}

	page := p.page.Context(ctx)
	if err := page.KeyActions().Press(mod, input.ShiftLeft).Type(input.KeyE).Do(); err != nil {
		return fmt.Errorf("dispatching shortcut: %w", err)
	}

	if err := p.waitEditor(ctx); err != nil {
		return err
	}

	time.Sleep(p.cfg.CommitDelay)
	if err := page.Keyboard.Type(input.Enter); err != nil {
		return fmt.Errorf("committing equation: %w", err)
	}

	// Give the page time to apply the conversion before anyone re-reads it.
	time.Sleep(p.cfg.ConvertSettle)
	return nil
}

// waitEditor polls for the equation editor overlay until EditorTimeout.
func (p *Page) waitEditor(ctx context.Context) error {
	deadline := time.Now().Add(p.cfg.EditorTimeout)
	for {
		res, err := p.page.Context(ctx).Eval(jsEditorOpen)
		if err == nil && res.Value.Bool() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("equation editor did not appear within %s", p.cfg.EditorTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// CountLiteral counts how many times raw still appears as literal text in
// the container. A vanished container counts zero.
func (p *Page) CountLiteral(ctx context.Context, ref, raw string) (int, error) {
	res, err := p.page.Context(ctx).Eval(jsCountLiteral, ref, raw)
	if err != nil {
		return 0, fmt.Errorf("counting literal text: %w", err)
	}
	return res.Value.Int(), nil
}
