// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders run summaries for people and for files.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize/english"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/notion-eqfix/pkg/types"
)

// Print writes the human-readable summary of a run.
func Print(w io.Writer, s types.RunSummary) {
	fmt.Fprintf(w, "\nDone. Converted %s in %s over %s.\n",
		english.Plural(s.Converted, "equation", ""),
		s.Elapsed.Round(100*time.Millisecond),
		english.Plural(s.Cycles, "cycle", ""),
	)

	if s.Unmatched > 0 {
		fmt.Fprintf(w, "Left %s untouched (no closing marker).\n",
			english.Plural(s.Unmatched, "unpaired marker", ""))
	}

	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %s:\n", english.Plural(len(s.Skipped), "span", ""))
		for _, sk := range s.Skipped {
			fmt.Fprintf(w, "  %-6s %q: %s\n", sk.Kind, sk.Raw, sk.Reason)
		}
	}

	switch s.Status {
	case types.StatusDone:
		fmt.Fprintln(w, "Status: success.")
	case types.StatusPartial:
		fmt.Fprintln(w, "Status: partial, see skipped spans above.")
	case types.StatusAborted:
		fmt.Fprintln(w, "Status: aborted, document may still contain math markers.")
	}
}

// WriteYAML writes the summary as a YAML artifact, creating parent
// directories as needed.
func WriteYAML(path string, s types.RunSummary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
