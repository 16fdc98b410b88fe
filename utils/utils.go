package utils

// Token estimation constants
const (
	AvgCharsPerToken = 2 // Conservative estimate for mixed content (code + diff markers)
)

// EstimateCharsFromTokens estimates the number of characters for a given token count
func EstimateCharsFromTokens(tokens int) int {
	return tokens * AvgCharsPerToken
}

// EstimateTokens estimates the token count of s, rounding up.
func EstimateTokens(s string) int {
	return (len(s) + AvgCharsPerToken - 1) / AvgCharsPerToken
}

// TrimToBudget trims entries to fit within maxTokens.
// Entries must be ordered oldest first; the most recent entries are kept and
// older ones removed once the limit is reached. The newest entry is always
// kept, even when it alone exceeds the limit. maxTokens <= 0 disables trimming.
func TrimToBudget[T any](entries []T, text func(T) string, maxTokens int) []T {
	if len(entries) == 0 || maxTokens <= 0 {
		return entries
	}

	maxChars := EstimateCharsFromTokens(maxTokens)

	// Iterate from newest (end) to oldest (start), keeping entries within limit
	totalChars := 0
	cutoffIndex := 0

	for i := len(entries) - 1; i >= 0; i-- {
		entryChars := len(text(entries[i]))
		if totalChars+entryChars > maxChars && i < len(entries)-1 {
			cutoffIndex = i + 1
			break
		}
		totalChars += entryChars
	}

	if cutoffIndex > 0 {
		return entries[cutoffIndex:]
	}
	return entries
}
