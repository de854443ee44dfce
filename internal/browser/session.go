// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser owns the Chrome session hosting a run: bootstrap, the
// Notion login gate, and the live-page surface the traversal drives.
package browser

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/pdiddy/notion-eqfix/internal/traverse"
	"github.com/pdiddy/notion-eqfix/pkg/types"
)

const canvasSelector = ".notion-page-content"

// Session is one authenticated, rendered page in a dedicated Chrome
// instance. It is owned by a single run and never shared.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	w        io.Writer
}

// Open launches Chrome, navigates to url, and waits for the document to
// load. The page canvas may still be behind the login gate; call
// EnsureLoggedIn before handing the session to a traversal.
func Open(ctx context.Context, url string, cfg types.BrowserConfig, w io.Writer) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set(flags.Flag("disable-infobars")).
		Set(flags.Flag("disable-notifications")).
		Set(flags.Flag("disable-extensions")).
		Set(flags.Flag("disable-dev-shm-usage")).
		Set(flags.Flag("start-maximized")).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}

	s := &Session{launcher: l, browser: b, w: w}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	s.page = page

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
	}).Call(page); err != nil {
		fmt.Fprintf(w, "warning: could not set viewport: %v\n", err)
	}

	// Best effort; login still works without the mask.
	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{
		Source: jsHideAutomation,
	}).Call(page); err != nil {
		fmt.Fprintf(w, "warning: automation mask not installed: %v\n", err)
	}

	if err := page.Timeout(cfg.NavTimeout).Navigate(url); err != nil {
		s.Close()
		return nil, fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := page.Timeout(cfg.NavTimeout).WaitLoad(); err != nil {
		s.Close()
		return nil, fmt.Errorf("waiting for page load: %w", err)
	}

	return s, nil
}

// Surface returns the traversal-facing view of the live page.
func (s *Session) Surface(cfg types.TraversalConfig) traverse.Surface {
	return &Page{page: s.page, cfg: cfg}
}

// WaitCanvas blocks until the page canvas is present, meaning the document
// is rendered and past the login gate.
func (s *Session) WaitCanvas(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, _, err := s.page.Has(canvasSelector)
		if err == nil && ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: page canvas did not appear within %s", traverse.ErrSessionUnready, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// HoldOpen keeps the session alive for d so the operator can inspect the
// result before the browser goes away.
func (s *Session) HoldOpen(ctx context.Context, d time.Duration) {
	fmt.Fprintf(s.w, "Holding the browser open for %s...\n", d)
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Close releases the page, the browser, and launcher resources.
func (s *Session) Close() {
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}
