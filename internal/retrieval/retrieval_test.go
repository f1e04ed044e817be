package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomore1007/SnekretAIry/internal/model"
	"github.com/nomore1007/SnekretAIry/internal/store"
	"github.com/nomore1007/SnekretAIry/internal/tokens"
)

func newTestBuilder(t *testing.T) (*Builder, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	return NewBuilder(st, tokens.NewCounter()), st
}

func addGoal(t *testing.T, st *store.Store, text string) *model.GoalTask {
	t.Helper()
	rec, err := st.AppendGoalTask(context.Background(), model.GoalTask{
		ID:   st.NewID(),
		Kind: model.KindGoal,
		Text: text,
	})
	require.NoError(t, err)
	return rec
}

func TestBuildRanksByOverlap(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(t)

	woodwork := addGoal(t, st, "Learn woodworking and build a bookshelf")
	addGoal(t, st, "Run a marathon next spring")
	_, err := st.AppendJournal(ctx, model.JournalEntry{
		Body: "Spent the evening sanding the bookshelf panels.",
	})
	require.NoError(t, err)

	bundle, err := b.Build(ctx, BuildParams{
		Query:  "woodworking bookshelf",
		Budget: 4000,
		Now:    time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, bundle.TotalEntries)
	require.Len(t, bundle.Items, 2, "the marathon goal shares no tokens with the query")
	assert.Equal(t, woodwork.ID, bundle.Items[0].Ref, "two-token overlap should outrank one")
	assert.Equal(t, model.CollectionJournal, bundle.Items[1].Kind)
	assert.Greater(t, bundle.Items[0].Score, bundle.Items[1].Score)
}

func TestBuildNoOverlapSelectsNothing(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(t)

	addGoal(t, st, "Learn woodworking")

	bundle, err := b.Build(ctx, BuildParams{Query: "quantum chromodynamics", Budget: 4000})
	require.NoError(t, err)
	assert.Equal(t, 1, bundle.TotalEntries)
	assert.Empty(t, bundle.Items)
	assert.Zero(t, bundle.Used)
}

func TestBuildStopwordsIgnored(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(t)

	addGoal(t, st, "Fix the leaking tap in the bathroom")
	addGoal(t, st, "Review the quarterly budget")

	// "the" appears in both records; only "tap" should drive the match.
	bundle, err := b.Build(ctx, BuildParams{Query: "the tap", Budget: 4000})
	require.NoError(t, err)
	require.Len(t, bundle.Items, 1)
	assert.Contains(t, bundle.Items[0].Text, "tap")
}

func TestBuildBudgetPacking(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(t)

	// A big item that exceeds a tiny budget and a small one that fits.
	big := "reading"
	for i := 0; i < 60; i++ {
		big += " reading more pages of the same long reading list entry"
	}
	addGoal(t, st, big)
	small := addGoal(t, st, "reading daily")

	bundle, err := b.Build(ctx, BuildParams{Query: "reading", Budget: 60})
	require.NoError(t, err)

	// The oversized item is skipped, not truncated; the small one still fits.
	require.Len(t, bundle.Items, 1)
	assert.Equal(t, small.ID, bundle.Items[0].Ref)
	assert.LessOrEqual(t, bundle.Used, 60)
	assert.Positive(t, bundle.Used)
}

func TestBuildUsesFoldedStatus(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(t)

	goal := addGoal(t, st, "Learn woodworking")
	_, err := st.AppendStatusUpdate(ctx, goal.ID, model.StatusDone)
	require.NoError(t, err)

	bundle, err := b.Build(ctx, BuildParams{Query: "woodworking", Budget: 4000})
	require.NoError(t, err)

	// One record, not one per line; and the effective status.
	assert.Equal(t, 1, bundle.TotalEntries)
	require.Len(t, bundle.Items, 1)
	assert.Equal(t, model.StatusDone, bundle.Items[0].Status)
}

func TestBuildDeterministic(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(t)

	addGoal(t, st, "Practice guitar scales")
	addGoal(t, st, "Practice guitar chords")
	now := time.Now().UTC()

	first, err := b.Build(ctx, BuildParams{Query: "practice guitar", Budget: 4000, Now: now})
	require.NoError(t, err)
	second, err := b.Build(ctx, BuildParams{Query: "practice guitar", Budget: 4000, Now: now})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildTieBreakMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	b, st := newTestBuilder(t)

	// Identical text means identical overlap; recency decides, and both
	// records share the same clamped second so only the ordering tie-break
	// on timestamp (then ref) applies.
	older := addGoal(t, st, "Water the plants")
	newer := addGoal(t, st, "Water the plants")

	bundle, err := b.Build(ctx, BuildParams{Query: "water plants", Budget: 4000})
	require.NoError(t, err)
	require.Len(t, bundle.Items, 2)
	if bundle.Items[0].Timestamp.Equal(bundle.Items[1].Timestamp) {
		assert.Less(t, bundle.Items[0].Ref, bundle.Items[1].Ref)
	} else {
		assert.Equal(t, newer.ID, bundle.Items[0].Ref)
		assert.Equal(t, older.ID, bundle.Items[1].Ref)
	}
}

func TestRender(t *testing.T) {
	bundle := &Bundle{
		Items: []Item{
			{Ref: "abc", Kind: model.KindGoal, Text: "Learn woodworking", Status: model.StatusOpen,
				Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		},
	}
	out := bundle.Render()
	assert.Contains(t, out, "[goal abc] (open) 2026-03-01")
	assert.Contains(t, out, "Learn woodworking")
}

func TestJaccard(t *testing.T) {
	a := map[string]bool{"learn": true, "woodworking": true}
	b := map[string]bool{"learn": true, "guitar": true}
	assert.InDelta(t, 1.0/3.0, jaccard(a, b), 1e-9)
	assert.Zero(t, jaccard(a, map[string]bool{}))
	assert.Zero(t, jaccard(a, map[string]bool{"unrelated": true}))
}
