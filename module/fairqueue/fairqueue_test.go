package fairqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limits(priority int) LimitsQuery[string] {
	return func(source string) SourceLimits {
		return SourceLimits{MaxSize: 128, Priority: priority}
	}
}

func TestPushNextFIFOPerSource(t *testing.T) {
	q := New[int, string](limits(1))

	require.True(t, q.Push("a", 1))
	require.True(t, q.Push("a", 2))
	require.True(t, q.Push("a", 3))

	for _, want := range []int{1, 2, 3} {
		got, src, ok := q.Next()
		require.True(t, ok)
		assert.Equal(t, "a", src)
		assert.Equal(t, want, got)
	}
	_, _, ok := q.Next()
	assert.False(t, ok)
}

func TestPushDropsWhenFull(t *testing.T) {
	q := New[int, string](func(string) SourceLimits {
		return SourceLimits{MaxSize: 2, Priority: 1}
	})

	require.True(t, q.Push("live", 1))
	require.True(t, q.Push("live", 2))
	assert.False(t, q.Push("live", 3))
	assert.Equal(t, 2, q.SourceLen("live"))
}

func TestWeightedRoundRobinFairness(t *testing.T) {
	// priority(hi)=4, priority(lo)=1: over a long run, hi should be
	// served roughly 4x as often as lo.
	q := New[int, string](func(source string) SourceLimits {
		if source == "hi" {
			return SourceLimits{MaxSize: 100000, Priority: 4}
		}
		return SourceLimits{MaxSize: 100000, Priority: 1}
	})

	const n = 10000
	for i := 0; i < n; i++ {
		q.Push("hi", i)
		q.Push("lo", i)
	}

	served := map[string]int{}
	for {
		_, src, ok := q.Next()
		if !ok {
			break
		}
		served[src]++
	}

	require.Equal(t, n, served["hi"])
	require.Equal(t, n, served["lo"])

	// Check local fairness over a window: simulate a steady stream
	// instead of draining everything upfront, and confirm the ratio
	// converges to 4:1 within the first part of the run.
	q2 := New[int, string](func(source string) SourceLimits {
		if source == "hi" {
			return SourceLimits{MaxSize: 100000, Priority: 4}
		}
		return SourceLimits{MaxSize: 100000, Priority: 1}
	})
	for i := 0; i < 1000; i++ {
		q2.Push("hi", i)
		q2.Push("lo", i)
	}
	window := map[string]int{}
	for i := 0; i < 500; i++ {
		_, src, ok := q2.Next()
		require.True(t, ok)
		window[src]++
	}
	ratio := float64(window["hi"]) / float64(window["lo"])
	assert.InDelta(t, 4.0, ratio, 1.0)
}

func TestPruneRemovesDeadEmptySources(t *testing.T) {
	q := New[int, string](limits(1))
	q.Push("dead", 1)
	q.Push("alive", 2)
	q.Next() // drain "dead" so it is empty
	q.Next() // drain "alive" too, but it's still tracked

	removed := q.Prune(func(source string) bool { return source == "alive" })
	assert.Equal(t, 1, removed)
}
