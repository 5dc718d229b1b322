package related

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/related-posts/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioItems() []Item {
	return []Item{
		{ID: "a", Tags: []string{"x", "y"}},
		{ID: "b", Tags: []string{"x"}},
		{ID: "c", Tags: []string{"y"}},
		{ID: "d", Tags: []string{"x", "y"}},
		{ID: "e", Tags: []string{"z"}},
		{ID: "f", Tags: []string{"x", "y", "z"}},
	}
}

func relatedIDs(r Record) []string {
	ids := make([]string, len(r.Related))
	for i, it := range r.Related {
		ids[i] = it.ID
	}
	return ids
}

func randomItems(rng *rand.Rand, n, vocab, maxTags int) []Item {
	items := make([]Item, n)
	for i := range items {
		tags := make([]string, rng.Intn(maxTags+1))
		for j := range tags {
			tags[j] = fmt.Sprintf("t%d", rng.Intn(vocab))
		}
		items[i] = Item{ID: fmt.Sprintf("post-%d", i), Tags: tags}
	}
	return items
}

func TestTagIndexKeepsDuplicatesInOrder(t *testing.T) {
	items := []Item{
		{ID: "a", Tags: []string{"go", "go", "db"}},
		{ID: "b", Tags: []string{"db"}},
		{ID: "c", Tags: []string{"go"}},
	}
	ix := BuildTagIndex(items)

	assert.Equal(t, []uint32{0, 0, 2}, ix.Lookup("go"))
	assert.Equal(t, []uint32{0, 1}, ix.Lookup("db"))
	assert.Empty(t, ix.Lookup("rust"))
	assert.Equal(t, 2, ix.Tags())
	assert.Equal(t, 5, ix.Occurrences())
}

func TestAccumulatorScenarioCounts(t *testing.T) {
	items := scenarioItems()
	ix := BuildTagIndex(items)
	acc := NewAccumulator(len(items))

	acc.Scan(0, items[0].Tags, ix)
	assert.Equal(t, []Count{0, 1, 1, 2, 0, 2}, acc.Counts())
}

func TestAccumulatorSelfExclusion(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(7)), 200, 15, 8)
	ix := BuildTagIndex(items)
	acc := NewAccumulator(len(items))
	for i, it := range items {
		acc.Scan(i, it.Tags, ix)
		require.Zero(t, acc.Counts()[i], "item %d counted itself", i)
	}
}

func TestAccumulatorCountsDuplicateOccurrences(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want Count
	}{
		{"single shared", []string{"x"}, []string{"x"}, 1},
		{"duplicate on one side", []string{"x", "x"}, []string{"x"}, 2},
		{"duplicate on both sides", []string{"x", "x"}, []string{"x", "x"}, 4},
		{"mixed", []string{"x", "y", "y"}, []string{"y", "x", "z"}, 3},
		{"disjoint", []string{"x"}, []string{"y"}, 0},
		{"empty", nil, []string{"y"}, 0},
		{"wider than a byte", slices.Repeat([]string{"x"}, 20), slices.Repeat([]string{"x"}, 15), 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := []Item{{ID: "a", Tags: tt.a}, {ID: "b", Tags: tt.b}}
			ix := BuildTagIndex(items)
			acc := NewAccumulator(2)

			acc.Scan(0, tt.a, ix)
			assert.Equal(t, tt.want, acc.Counts()[1])
			acc.Scan(1, tt.b, ix)
			assert.Equal(t, tt.want, acc.Counts()[0], "count must be symmetric")
		})
	}
}

func TestCountsAboveByteRange(t *testing.T) {
	shared := make([]string, 300)
	for i := range shared {
		shared[i] = fmt.Sprintf("s%d", i)
	}
	items := []Item{
		{ID: "a", Tags: shared},
		{ID: "c", Tags: shared[:100]},
		{ID: "f1"},
		{ID: "f2"},
		{ID: "f3"},
		{ID: "b", Tags: shared},
	}

	ix := BuildTagIndex(items)
	acc := NewAccumulator(len(items))
	acc.Scan(0, items[0].Tags, ix)
	assert.Equal(t, Count(300), acc.Counts()[5])
	assert.Equal(t, Count(100), acc.Counts()[1])

	// A byte-wide counter would wrap b to 44 and rank c first.
	records, _, err := New(Options{K: 5}).Compute(items)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, relatedIDs(records[0])[:2])
}

func TestAccumulatorMatchesBruteForce(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(42)), 120, 10, 6)
	ix := BuildTagIndex(items)
	acc := NewAccumulator(len(items))

	for i := range items {
		acc.Scan(i, items[i].Tags, ix)
		for j := range items {
			var want Count
			if i != j {
				for _, ta := range items[i].Tags {
					for _, tb := range items[j].Tags {
						if ta == tb {
							want++
						}
					}
				}
			}
			require.Equal(t, want, acc.Counts()[j], "pair (%d,%d)", i, j)
		}
	}
}

func TestAccumulatorClearsBetweenScans(t *testing.T) {
	items := []Item{
		{ID: "a", Tags: []string{"x"}},
		{ID: "b", Tags: []string{"x"}},
		{ID: "c", Tags: []string{"y"}},
	}
	ix := BuildTagIndex(items)
	acc := NewAccumulator(3)

	acc.Scan(0, items[0].Tags, ix)
	require.Equal(t, []Count{0, 1, 0}, acc.Counts())
	acc.Scan(2, items[2].Tags, ix)
	assert.Equal(t, []Count{0, 0, 0}, acc.Counts())
}

func TestSelectorOrdering(t *testing.T) {
	tests := []struct {
		name   string
		k      int
		counts []Count
		want   []Candidate
	}{
		{
			name:   "all zero keeps placeholders",
			k:      3,
			counts: []Count{0, 0, 0, 0},
			want:   []Candidate{{0, 0}, {1, 0}, {2, 0}},
		},
		{
			name:   "descending with lower index winning ties",
			k:      3,
			counts: []Count{0, 2, 5, 2, 5, 1},
			want:   []Candidate{{2, 5}, {4, 5}, {1, 2}},
		},
		{
			name:   "single candidate pushes placeholders down",
			k:      3,
			counts: []Count{0, 0, 0, 0, 9},
			want:   []Candidate{{4, 9}, {0, 0}, {1, 0}},
		},
		{
			name:   "equal to floor is skipped",
			k:      2,
			counts: []Count{3, 3, 3, 4},
			want:   []Candidate{{3, 4}, {0, 3}},
		},
		{
			name:   "k of one",
			k:      1,
			counts: []Count{1, 7, 7, 2},
			want:   []Candidate{{1, 7}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := NewSelector(tt.k)
			assert.Equal(t, tt.want, sel.Select(tt.counts))
		})
	}
}

func TestSelectorReseedsEveryCall(t *testing.T) {
	sel := NewSelector(2)
	first := sel.Select([]Count{0, 0, 8, 9})
	require.Equal(t, []Candidate{{3, 9}, {2, 8}}, first)

	second := sel.Select([]Count{0, 0, 0, 0})
	assert.Equal(t, []Candidate{{0, 0}, {1, 0}}, second)
}

func TestComputeScenario(t *testing.T) {
	items := scenarioItems()
	records, stats, err := New(Options{K: 5}).Compute(items)
	require.NoError(t, err)
	require.Len(t, records, len(items))

	a := records[0]
	assert.Equal(t, "a", a.ID)
	// d and f tie at 2, b and c tie at 1; the remaining slot keeps the
	// first-item placeholder because no other item has a positive count.
	assert.Equal(t, []string{"d", "f", "b", "c", "a"}, relatedIDs(a))
	assert.Same(t, &items[0].Tags[0], &a.Tags[0])
	assert.Same(t, &items[3], a.Related[0])

	for i, r := range records {
		assert.Equal(t, items[i].ID, r.ID, "input order")
		assert.Len(t, r.Related, 5)
	}
	assert.Equal(t, 6, stats.Items)
	assert.Equal(t, 3, stats.Tags)
	assert.Equal(t, 1, stats.Workers)
}

func TestComputeTrimPlaceholders(t *testing.T) {
	items := scenarioItems()
	records, stats, err := New(Options{K: 5, TrimPlaceholders: true}).Compute(items)
	require.NoError(t, err)

	assert.Equal(t, []string{"d", "f", "b", "c"}, relatedIDs(records[0]))
	// e only shares z with f.
	assert.Equal(t, []string{"f"}, relatedIDs(records[4]))
	assert.Positive(t, stats.PlaceholderSlots)
}

func TestComputeEmptyTagsYieldsPlaceholders(t *testing.T) {
	items := scenarioItems()
	items = append(items, Item{ID: "g"})
	records, _, err := New(Options{K: 5}).Compute(items)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, relatedIDs(records[6]))
}

func TestComputeRequiresMoreItemsThanK(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			items := scenarioItems()[:n]
			records, _, err := New(Options{K: 5}).Compute(items)
			require.ErrorIs(t, err, apperrors.ErrNotEnoughItems)
			assert.Nil(t, records)

			records, _, err = New(Options{K: 5}).ComputeParallel(context.Background(), items, 4)
			require.ErrorIs(t, err, apperrors.ErrNotEnoughItems)
			assert.Nil(t, records)
		})
	}
}

func TestComputeRejectsNonPositiveK(t *testing.T) {
	_, _, err := New(Options{K: -1}).Compute(scenarioItems())
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestComputeDefaultK(t *testing.T) {
	records, _, err := New(Options{}).Compute(scenarioItems())
	require.NoError(t, err)
	assert.Len(t, records[0].Related, DefaultK)
}

func TestComputeDeterministic(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(99)), 500, 40, 10)
	p := New(Options{K: 5})

	first, _, err := p.Compute(items)
	require.NoError(t, err)
	second, _, err := p.Compute(items)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeParallelMatchesSequential(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(3)), 1000, 50, 12)
	p := New(Options{K: 5})

	want, wantStats, err := p.Compute(items)
	require.NoError(t, err)

	for _, workers := range []int{-1, 1, 3, 8, 2000} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, stats, err := p.ComputeParallel(context.Background(), items, workers)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, wantStats.PlaceholderSlots, stats.PlaceholderSlots)
			assert.LessOrEqual(t, stats.Workers, len(items))
		})
	}
}

func TestComputeParallelCancelled(t *testing.T) {
	items := randomItems(rand.New(rand.NewSource(5)), 100, 10, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, _, err := New(Options{K: 5}).ComputeParallel(ctx, items, 4)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, records)
}

func TestComputeTieBreakByIndex(t *testing.T) {
	items := []Item{
		{ID: "q", Tags: []string{"t"}},
		{ID: "p1", Tags: []string{"t"}},
		{ID: "p2", Tags: []string{"t"}},
		{ID: "p3", Tags: []string{"t"}},
		{ID: "p4", Tags: []string{"t"}},
		{ID: "p5", Tags: []string{"t"}},
		{ID: "p6", Tags: []string{"t"}},
	}
	records, _, err := New(Options{K: 5}).Compute(items)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, relatedIDs(records[0]))
	assert.Equal(t, []string{"q", "p1", "p2", "p4", "p5"}, relatedIDs(records[3]))
}
