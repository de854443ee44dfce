// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared configuration and data structures for
// notion-eqfix runs.
package types

import "time"

// DelimiterKind distinguishes the two recognized math-marker forms.
type DelimiterKind string

const (
	// DelimiterInline is the single-marker form: $...$
	DelimiterInline DelimiterKind = "inline"
	// DelimiterBlock is the double-marker form: $$...$$
	DelimiterBlock DelimiterKind = "block"
)

// MathSpan is one discovered candidate equation region. Spans are re-derived
// from the live page on every traversal cycle and carry no identity across
// cycles: any prior conversion may have shifted or removed them.
type MathSpan struct {
	Kind DelimiterKind `json:"kind" yaml:"kind"`

	// Raw is the exact text including the delimiters, used for
	// re-resolution and verification.
	Raw string `json:"raw" yaml:"raw"`

	// Body is the content between the delimiters.
	Body string `json:"body" yaml:"body"`

	// BlockRef names the text block currently holding the span. For the
	// live surface this is an element path; indices drift, paths are
	// re-evaluated at use time.
	BlockRef string `json:"block_ref,omitempty" yaml:"block_ref,omitempty"`

	// Start and End are byte offsets within the block text at scan time.
	// They are advisory only; the locator re-searches by Raw.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Outcome classifies one conversion attempt.
type Outcome string

const (
	// OutcomeConverted means the span now renders as an equation.
	OutcomeConverted Outcome = "converted"
	// OutcomeNotFound means the span could not be re-located; it was
	// already resolved by an earlier mutation. Benign.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeFailed means the select/shortcut/commit sequence did not
	// yield an equation after a retry.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the span was left alone because it failed
	// earlier in the same run.
	OutcomeSkipped Outcome = "skipped"
)

// ConversionAttempt records one span outcome within the current run.
// Attempts are never persisted; only the run-level summary is.
type ConversionAttempt struct {
	Span    MathSpan `json:"span" yaml:"span"`
	Outcome Outcome  `json:"outcome" yaml:"outcome"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunStatus is the overall result of a traversal run.
type RunStatus string

const (
	// StatusDone means a scan found nothing left to convert and nothing
	// was skipped.
	StatusDone RunStatus = "done"
	// StatusPartial means the run finished but some spans were skipped
	// after failing.
	StatusPartial RunStatus = "partial"
	// StatusAborted means the run stopped on stall detection or cycle
	// exhaustion.
	StatusAborted RunStatus = "aborted"
)

// SkippedSpan is one unconverted span carried into the final summary.
type SkippedSpan struct {
	Raw    string        `json:"raw" yaml:"raw"`
	Kind   DelimiterKind `json:"kind" yaml:"kind"`
	Reason string        `json:"reason" yaml:"reason"`
}

// RunSummary is the user-visible outcome of a full run.
type RunSummary struct {
	URL       string        `json:"url,omitempty" yaml:"url,omitempty"`
	Status    RunStatus     `json:"status" yaml:"status"`
	Converted int           `json:"converted" yaml:"converted"`
	Skipped   []SkippedSpan `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Unmatched int           `json:"unmatched" yaml:"unmatched"`
	Cycles    int           `json:"cycles" yaml:"cycles"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Succeeded reports whether every discovered span was converted.
func (s RunSummary) Succeeded() bool {
	return s.Status == StatusDone
}
