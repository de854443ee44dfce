// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod/lib/input"

	"github.com/pdiddy/notion-eqfix/internal/traverse"
	"github.com/pdiddy/notion-eqfix/pkg/types"
)

// Notion renders the gate's email field inconsistently, sometimes as a plain
// text input with an email placeholder.
const emailSelector = `input[type="email"], input[name="email"], input[autocomplete="email"], ` +
	`input[placeholder*="email" i], input[aria-label*="email" i]`

// EnsureLoggedIn resolves the login gate if the page is showing one. When an
// email is configured it is typed and submitted automatically; the emailed
// verification code is always entered manually by the operator, so this
// blocks, with periodic hints, until the page canvas appears or the timeout
// runs out. Already-authenticated sessions pass straight through.
func (s *Session) EnsureLoggedIn(ctx context.Context, cfg types.LoginConfig) error {
	// Let the initial view settle before probing for the gate.
	time.Sleep(time.Second)

	gate, err := s.onLoginGate()
	if err != nil {
		return fmt.Errorf("probing login gate: %w", err)
	}
	if gate {
		if err := s.passLoginGate(ctx, cfg); err != nil {
			return err
		}
	}

	return s.WaitCanvas(ctx, 2*time.Minute)
}

// onLoginGate reports whether the current view is the sign-in screen: an
// email input is present and the page canvas is not.
func (s *Session) onLoginGate() (bool, error) {
	hasCanvas, _, err := s.page.Has(canvasSelector)
	if err != nil {
		return false, err
	}
	if hasCanvas {
		return false, nil
	}
	hasEmail, _, err := s.page.Has(emailSelector)
	if err != nil {
		return false, err
	}
	return hasEmail, nil
}

func (s *Session) passLoginGate(ctx context.Context, cfg types.LoginConfig) error {
	box, err := s.page.Timeout(30 * time.Second).Element(emailSelector)
	if err != nil {
		// The gate disappeared or a different auth flow took over; the
		// canvas wait below decides whether that worked out.
		return nil
	}

	if cfg.Email != "" {
		if err := box.Input(cfg.Email); err != nil {
			return fmt.Errorf("entering email: %w", err)
		}
		if err := box.Type(input.Enter); err != nil {
			return fmt.Errorf("submitting email: %w", err)
		}
		fmt.Fprintln(s.w, "Email entered. Notion should send you a login code.")
		fmt.Fprintln(s.w, "Enter the code manually in the browser window; the run continues once you are signed in.")
	} else {
		fmt.Fprintln(s.w, "No email configured. Enter your email in the browser window;")
		fmt.Fprintln(s.w, "Notion will send a login code. The run continues once you are signed in.")
	}

	deadline := time.Now().Add(cfg.Timeout)
	lastHint := time.Now()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}

		ok, _, err := s.page.Has(canvasSelector)
		if err == nil && ok {
			return nil
		}

		if time.Since(lastHint) >= cfg.HintInterval {
			lastHint = time.Now()
			onEmail, _, _ := s.page.Has(emailSelector)
			if onEmail {
				fmt.Fprintln(s.w, "Still on the email screen. Submit the email field to receive the code.")
			} else {
				fmt.Fprintln(s.w, "Waiting for the emailed code to be entered...")
			}
		}
	}

	return fmt.Errorf("%w: sign-in did not complete within %s", traverse.ErrSessionUnready, cfg.Timeout)
}
