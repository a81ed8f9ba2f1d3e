package summarize_test

import (
	"testing"

	"github.com/stratadb/strata/agg"
	"github.com/stratadb/strata/summarize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stats(names ...string) agg.StatisticSet {
	set := make(agg.StatisticSet)
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func TestSelectAutomatic(t *testing.T) {
	grouped := []string{"g"}
	cases := []struct {
		name  string
		stats agg.StatisticSet
		keys  []string
		want  summarize.Method
	}{
		{"cube stats grouped", stats("mean", "sum", "count"), grouped, summarize.MethodCube},
		{"single cube stat grouped", stats("sum"), grouped, summarize.MethodCube},
		{"cube stats ungrouped", stats("mean", "sum"), nil, summarize.MethodSummary},
		{"summary stats grouped", stats("mean", "stdev"), grouped, summarize.MethodSummary},
		{"summary stats ungrouped", stats("min", "max", "variance"), nil, summarize.MethodSummary},
		{"custom stat grouped", stats("median"), grouped, summarize.MethodSplitApply},
		{"custom stat ungrouped", stats("trimmed_mean"), nil, summarize.MethodSplitApply},
		{"mixed custom and builtin", stats("mean", "median"), grouped, summarize.MethodSplitApply},
		{"empty stat set grouped", stats(), grouped, summarize.MethodCube},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, warnings, err := summarize.Select(c.stats, summarize.Automatic, c.keys)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, c.want, m)
		})
	}
}

func TestSelectExplicitValid(t *testing.T) {
	grouped := []string{"g"}
	cases := []struct {
		explicit int
		stats    agg.StatisticSet
		keys     []string
	}{
		{1, stats("mean"), grouped},
		{2, stats("stdev"), nil},
		{3, stats("median"), grouped},
		{4, stats("mean"), nil},
		{5, stats("min"), grouped},
	}
	for _, c := range cases {
		m, warnings, err := summarize.Select(c.stats, c.explicit, c.keys)
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, summarize.Method(c.explicit), m)
	}
}

func TestSelectInvalidSelector(t *testing.T) {
	for _, explicit := range []int{-1, 6, 99} {
		_, _, err := summarize.Select(stats("mean"), explicit, nil)
		var ierr *summarize.InvalidMethodError
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, explicit, ierr.Selector)
	}
}

func TestSelectFallbackMatchesAutomatic(t *testing.T) {
	grouped := []string{"g"}
	cases := []struct {
		name     string
		explicit int
		stats    agg.StatisticSet
		keys     []string
	}{
		{"cube without keys", 1, stats("mean"), nil},
		{"cube with summary stats", 1, stats("stdev"), grouped},
		{"label summary without keys", 3, stats("mean"), nil},
		{"summary with custom stat", 2, stats("median"), grouped},
		{"split summary with custom stat", 5, stats("median"), grouped},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m, warnings, err := summarize.Select(c.stats, c.explicit, c.keys)
			require.NoError(t, err)
			// Exactly one warning, and the method is what automatic
			// mode would have picked.
			require.Len(t, warnings, 1)
			auto, autoWarnings, err := summarize.Select(c.stats, summarize.Automatic, c.keys)
			require.NoError(t, err)
			assert.Empty(t, autoWarnings)
			assert.Equal(t, auto, m)
		})
	}
}

func TestFallbackIsBounded(t *testing.T) {
	// Selector 1 with no keys and a custom statistic violates two
	// preconditions at once; the fallback must still resolve in one
	// step with one warning.
	m, warnings, err := summarize.Select(stats("median"), 1, nil)
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	assert.Equal(t, summarize.MethodSplitApply, m)
}

func TestRegroup(t *testing.T) {
	assert.Nil(t, summarize.Regroup(nil))
	assert.Nil(t, summarize.Regroup([]string{"a"}))
	assert.Equal(t, []string{"a"}, summarize.Regroup([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, summarize.Regroup([]string{"a", "b", "c"}))
}
