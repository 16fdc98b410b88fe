package utils

import (
	"strings"
	"testing"

	"recentedits/assert"
)

type entry struct {
	name string
	diff string
}

func diffOf(e entry) string { return e.diff }

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""), "empty")
	assert.Equal(t, 1, EstimateTokens("a"), "rounds up")
	assert.Equal(t, 2, EstimateTokens("abcd"), "exact")
	assert.Equal(t, 20, EstimateCharsFromTokens(10), "chars from tokens")
}

func TestTrimToBudget_EmptySlice(t *testing.T) {
	var entries []entry
	result := TrimToBudget(entries, diffOf, 100)

	assert.Equal(t, 0, len(result), "result length")
}

func TestTrimToBudget_ZeroMaxTokens(t *testing.T) {
	entries := []entry{{name: "a", diff: strings.Repeat("x", 1000)}}
	result := TrimToBudget(entries, diffOf, 0)

	// Should return as-is when maxTokens <= 0
	assert.Equal(t, 1, len(result), "result length")
}

func TestTrimToBudget_FitsWithinLimit(t *testing.T) {
	entries := []entry{
		{name: "a", diff: "1+| a"},
		{name: "b", diff: "1+| b"},
	}
	result := TrimToBudget(entries, diffOf, 100)

	assert.Equal(t, 2, len(result), "result length")
}

func TestTrimToBudget_ExceedsLimit(t *testing.T) {
	entries := []entry{
		{name: "1", diff: "1-| old1\n1+| new1"},
		{name: "2", diff: "1-| old2\n1+| new2"},
		{name: "3", diff: "1-| old3\n1+| new3"},
		{name: "4", diff: "1-| old4\n1+| new4"},
	}

	// 17 chars per entry, 40 chars of budget: the two newest fit
	result := TrimToBudget(entries, diffOf, 20)

	assert.Len(t, 2, result, "result length")
	assert.Equal(t, "3", result[0].name, "older kept entry")
	assert.Equal(t, "4", result[1].name, "most recent entry")
}

func TestTrimToBudget_NewestAlwaysKept(t *testing.T) {
	entries := []entry{
		{name: "old", diff: "small"},
		{name: "new", diff: strings.Repeat("x", 500)},
	}
	result := TrimToBudget(entries, diffOf, 10)

	assert.Len(t, 1, result, "only the newest")
	assert.Equal(t, "new", result[0].name, "newest entry")
}
