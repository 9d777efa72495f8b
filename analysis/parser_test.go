package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtraction_DefaultsMissingSentiment(t *testing.T) {
	t.Parallel()

	ex, err := ParseExtraction(`{"X": {"positive_review_ids":[1]}}`)
	require.NoError(t, err)
	require.Len(t, ex.Entities, 1)
	assert.Equal(t, "X", ex.Entities[0].Name)
	assert.Equal(t, []int{1}, ex.Entities[0].Positive)
	assert.Empty(t, ex.Entities[0].Negative)
}

func TestParseExtraction_PreservesDocumentOrder(t *testing.T) {
	t.Parallel()

	ex, err := ParseExtraction(`{"Zeta": {"negative_review_ids": [3, 1, 3]}, "Alpha": {"positive_review_ids": null}, "Mid": {}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, ex.Names())
	assert.Equal(t, []int{1, 3}, ex.Entities[0].Negative)
	assert.Empty(t, ex.Entities[1].Positive)
}

func TestParseExtraction_FencesAndProse(t *testing.T) {
	t.Parallel()

	ex, err := ParseExtraction("```json\n{\"Sound\": {\"positive_review_ids\": [0]}}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sound"}, ex.Names())

	ex, err = ParseExtraction("Sure! Here is the result:\n{\"Sound\": {\"positive_review_ids\": [0]}}\nLet me know.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sound"}, ex.Names())
}

func TestParseExtraction_LegacyNamesAndWrapper(t *testing.T) {
	t.Parallel()

	ex, err := ParseExtraction(`{"entity_sentiment_map": {
		"Audio Quality": {"positive_reviews": [101, 103], "positive_review_ids": [104], "negative_reviews": []},
		"Shuffle Feature": {"negative_reviews": [102]}
	}}`)
	require.NoError(t, err)
	require.Len(t, ex.Entities, 2)
	assert.Equal(t, EntityMention{Name: "Audio Quality", Positive: []int{101, 103, 104}, Negative: []int{}}, ex.Entities[0])
	assert.Equal(t, EntityMention{Name: "Shuffle Feature", Positive: []int{}, Negative: []int{102}}, ex.Entities[1])
}

func TestParseExtraction_ListShape(t *testing.T) {
	t.Parallel()

	ex, err := ParseExtraction(`{"entities": [
		{"name": "Ads", "positive_review_ids": [], "negative_review_ids": [301, 302]},
		{"name": "Music Selection", "positive_review_ids": [301], "negative_review_ids": []},
		{"name": "Ads", "positive_review_ids": [], "negative_review_ids": [303]}
	]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ads", "Music Selection"}, ex.Names())
	assert.Equal(t, []int{301, 302, 303}, ex.Entities[0].Negative)
}

func TestParseExtraction_CoercesTaggedIDs(t *testing.T) {
	t.Parallel()

	ex, err := ParseExtraction(`{"Battery": {"negative_review_ids": ["review-7", "8", 9]}}`)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 8, 9}, ex.Entities[0].Negative)
}

func TestParseExtraction_NamesAreExactKeys(t *testing.T) {
	t.Parallel()

	ex, err := ParseExtraction(`{" Sound ": {"positive_review_ids": [1]}, "Sound": {"negative_review_ids": [2]}, "  ": {"positive_review_ids": [3]}}`)
	require.NoError(t, err)
	require.Equal(t, []string{" Sound ", "Sound"}, ex.Names())
	assert.Equal(t, EntityMention{Name: " Sound ", Positive: []int{1}, Negative: []int{}}, ex.Entities[0])
	assert.Equal(t, EntityMention{Name: "Sound", Positive: []int{}, Negative: []int{2}}, ex.Entities[1])

	ex, err = ParseExtraction(`{"entities": [{"name": "Ads ", "positive_review_ids": [4]}, {"name": "Ads", "negative_review_ids": [5]}, {"name": " "}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ads ", "Ads"}, ex.Names())
}

func TestParseExtraction_AcceptsLargestExactID(t *testing.T) {
	t.Parallel()

	ex, err := ParseExtraction(`{"X": {"positive_review_ids": [9007199254740991]}}`)
	require.NoError(t, err)
	assert.Equal(t, []int{9007199254740991}, ex.Entities[0].Positive)
}

func TestParseExtraction_Failures(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":            "",
		"prose only":       "I could not find any entities.",
		"truncated":        `{"Sound": {"positive_review_ids": [0, 1`,
		"array top level":  `[{"Sound": {}}]`,
		"scalar entity":    `{"Sound": "positive"}`,
		"list not array":   `{"Sound": {"positive_review_ids": 3}}`,
		"fractional id":    `{"Sound": {"positive_review_ids": [1.5]}}`,
		"negative id":      `{"Sound": {"positive_review_ids": [-1]}}`,
		"huge id":          `{"X": {"positive_review_ids": [1e20]}}`,
		"max int64 id":     `{"X": {"negative_review_ids": [9223372036854775807]}}`,
		"2^53 id":          `{"X": {"positive_review_ids": [9007199254740992]}}`,
		"non-numeric id":   `{"Sound": {"positive_review_ids": ["great"]}}`,
		"entities element": `{"entities": ["Sound"]}`,
	}
	for name, raw := range cases {
		name, raw := name, raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseExtraction(raw)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrParse)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, raw, perr.Raw)
		})
	}
}

func TestPayloadSchema_DescribesEntries(t *testing.T) {
	t.Parallel()

	schema, err := PayloadSchema()
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
	entry, ok := schema["additionalProperties"].(map[string]any)
	require.True(t, ok)
	props, ok := entry["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "positive_review_ids")
	assert.Contains(t, props, "negative_review_ids")
	assert.NotContains(t, entry, "$schema")
}
