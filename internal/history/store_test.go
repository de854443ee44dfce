// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/notion-eqfix/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := types.RunSummary{
		URL:       "https://www.notion.so/Page-One-aaa",
		Status:    types.StatusDone,
		Converted: 4,
		Cycles:    5,
		StartedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Elapsed:   90 * time.Second,
	}
	second := types.RunSummary{
		URL:       "https://www.notion.so/Page-Two-bbb",
		Status:    types.StatusPartial,
		Converted: 1,
		Unmatched: 2,
		Cycles:    3,
		Skipped: []types.SkippedSpan{
			{Raw: "$\\oops$", Kind: types.DelimiterInline, Reason: "conversion failed twice"},
		},
		StartedAt: time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC),
		Elapsed:   45 * time.Second,
	}

	require.NoError(t, s.Save(ctx, first))
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, second.URL, got[0].URL)
	assert.Equal(t, second.Status, got[0].Status)
	assert.Equal(t, second.Skipped, got[0].Skipped)
	assert.Equal(t, second.Elapsed, got[0].Elapsed)
	assert.True(t, second.StartedAt.Equal(got[0].StartedAt))

	assert.Equal(t, first.URL, got[1].URL)
	assert.Empty(t, got[1].Skipped)
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(ctx, types.RunSummary{
			URL:       "https://www.notion.so/Same-Page-ccc",
			Status:    types.StatusDone,
			Converted: i,
			StartedAt: time.Now(),
		}))
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Converted)
	assert.Equal(t, 3, got[1].Converted)
}

func TestStore_RecentOnEmptyStore(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
