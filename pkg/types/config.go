package types

import "time"

// BrowserConfig holds settings for the Chrome session that hosts the run.
type BrowserConfig struct {
	// Headless runs Chrome without a window. Discouraged when the login
	// gate requires manual code entry.
	Headless bool `json:"headless" yaml:"headless"`

	// Bin is an explicit Chrome binary path. Empty means auto-detect.
	Bin string `json:"bin,omitempty" yaml:"bin,omitempty"`

	// ViewportWidth and ViewportHeight size the page viewport (default 1920x1080).
	ViewportWidth  int `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int `json:"viewport_height" yaml:"viewport_height"`

	// NavTimeout bounds initial navigation and canvas readiness (default 60s).
	NavTimeout time.Duration `json:"nav_timeout" yaml:"nav_timeout"`

	// HoldOpen keeps the session alive after the run completes so the
	// operator can inspect the result (default 10s).
	HoldOpen time.Duration `json:"hold_open" yaml:"hold_open"`
}

// LoginConfig holds settings for the Notion login gate.
type LoginConfig struct {
	// Email is entered on the login gate. The verification code is always
	// typed manually by the operator.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// Timeout bounds the whole manual sign-in, code entry included (default 600s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// HintInterval spaces the "still waiting" operator hints (default 60s).
	HintInterval time.Duration `json:"hint_interval" yaml:"hint_interval"`
}

// TraversalConfig holds settings for the scan/convert loop.
type TraversalConfig struct {
	// MaxCycles is the hard ceiling on scan/convert cycles (default 2000).
	MaxCycles int `json:"max_cycles" yaml:"max_cycles"`

	// StallCycles is how many consecutive cycles may pass without the
	// outstanding span count decreasing before the run aborts (default 3).
	StallCycles int `json:"stall_cycles" yaml:"stall_cycles"`

	// MaxExpandPasses bounds the toggle-expansion fixed-point loop (default 25).
	MaxExpandPasses int `json:"max_expand_passes" yaml:"max_expand_passes"`

	// ExpandSettle is the pause after an expansion sweep that opened
	// something, letting reveal animations finish (default 150ms).
	ExpandSettle time.Duration `json:"expand_settle" yaml:"expand_settle"`

	// EditorTimeout bounds the wait for the equation editor overlay after
	// the shortcut is dispatched (default 2s).
	EditorTimeout time.Duration `json:"editor_timeout" yaml:"editor_timeout"`

	// CommitDelay is the pause between the shortcut and the commit
	// keypress (default 250ms).
	CommitDelay time.Duration `json:"commit_delay" yaml:"commit_delay"`

	// ConvertSettle is the pause after a commit while the page applies the
	// conversion (default 600ms).
	ConvertSettle time.Duration `json:"convert_settle" yaml:"convert_settle"`
}

// HistoryConfig holds settings for the run-summary store.
type HistoryConfig struct {
	// Path locates the SQLite database file. Empty selects the default
	// under the user data directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Disabled turns off run-summary persistence entirely.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// RunConfig groups all stage configurations for one fix run.
type RunConfig struct {
	Browser   BrowserConfig   `json:"browser" yaml:"browser"`
	Login     LoginConfig     `json:"login" yaml:"login"`
	Traversal TraversalConfig `json:"traversal" yaml:"traversal"`
	History   HistoryConfig   `json:"history" yaml:"history"`
}

// WithDefaults returns a copy of the config with zero values replaced by
// the documented defaults.
func (c RunConfig) WithDefaults() RunConfig {
	if c.Browser.ViewportWidth == 0 {
		c.Browser.ViewportWidth = 1920
	}
	if c.Browser.ViewportHeight == 0 {
		c.Browser.ViewportHeight = 1080
	}
	if c.Browser.NavTimeout == 0 {
		c.Browser.NavTimeout = 60 * time.Second
	}
	if c.Browser.HoldOpen == 0 {
		c.Browser.HoldOpen = 10 * time.Second
	}
	if c.Login.Timeout == 0 {
		c.Login.Timeout = 600 * time.Second
	}
	if c.Login.HintInterval == 0 {
		c.Login.HintInterval = 60 * time.Second
	}
	if c.Traversal.MaxCycles == 0 {
		c.Traversal.MaxCycles = 2000
	}
	if c.Traversal.StallCycles == 0 {
		c.Traversal.StallCycles = 3
	}
	if c.Traversal.MaxExpandPasses == 0 {
		c.Traversal.MaxExpandPasses = 25
	}
	if c.Traversal.ExpandSettle == 0 {
		c.Traversal.ExpandSettle = 150 * time.Millisecond
	}
	if c.Traversal.EditorTimeout == 0 {
		c.Traversal.EditorTimeout = 2 * time.Second
	}
	if c.Traversal.CommitDelay == 0 {
		c.Traversal.CommitDelay = 250 * time.Millisecond
	}
	if c.Traversal.ConvertSettle == 0 {
		c.Traversal.ConvertSettle = 600 * time.Millisecond
	}
	return c
}
