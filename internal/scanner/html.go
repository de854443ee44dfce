// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scanner

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Selectors mirroring the live-page surface: scanning is restricted to the
// page canvas, candidate containers are the content-editable leaf blocks,
// and rendered equation internals are excluded so their delimiters are never
// re-matched.
const (
	canvasSelector   = ".notion-page-content"
	leafSelector     = `[data-content-editable-leaf="true"]`
	equationSelector = ".notion-text-equation-token, .katex"
	blockIDAttr      = "data-block-id"
)

// ScanHTML scans a rendered page document (for example a saved HTML export)
// without touching a live browser. Each span's BlockRef carries the nearest
// ancestor block id when one is present.
func ScanHTML(r io.Reader) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("parsing HTML: %w", err)
	}

	root := doc.Find(canvasSelector)
	if root.Length() == 0 {
		// Exports sometimes strip the canvas wrapper.
		root = doc.Selection
	}

	var res Result
	root.Find(leafSelector).Each(func(i int, s *goquery.Selection) {
		if s.ParentsFiltered(equationSelector).Length() > 0 {
			return
		}

		// Drop rendered-equation subtrees before reading text.
		clone := s.Clone()
		clone.Find(equationSelector).Remove()
		text := clone.Text()

		ref := s.Closest("[" + blockIDAttr + "]").AttrOr(blockIDAttr, fmt.Sprintf("leaf-%d", i))
		br := ScanBlock(ref, text)
		res.Spans = append(res.Spans, br.Spans...)
		res.Unmatched = append(res.Unmatched, br.Unmatched...)
	})

	return res, nil
}
