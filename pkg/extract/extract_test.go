package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_ImportanceAlwaysInRange(t *testing.T) {
	e := NewExtractor()

	inputs := []string{
		"",
		"   ",
		"a an the of",
		"remember this important key note!?",
		strings.Repeat("database migration rollout plan ", 500),
		strings.Repeat("!", 12000),
	}

	for _, input := range inputs {
		_, importance := e.Extract(input)
		assert.GreaterOrEqual(t, importance, 0.0, "input %q", input)
		assert.LessOrEqual(t, importance, 1.0, "input %q", input)
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	e := NewExtractor()

	keywords, importance := e.Extract("")
	assert.Empty(t, keywords)
	assert.Equal(t, 0.0, importance)
}

func TestExtract_TriggerAndPunctuationBoosts(t *testing.T) {
	e := NewExtractor()

	// "please", "remember" and "birthday" survive filtering: base 3/10 = 0.3,
	// +0.2 trigger word, +0.1 question mark.
	keywords, importance := e.Extract("Please remember my birthday?")
	require.NotEmpty(t, keywords)
	assert.InDelta(t, 0.6, importance, 1e-9)
}

func TestExtract_TriggerBoostAppliedOnce(t *testing.T) {
	e := NewExtractor()

	_, single := e.Extract("remember the milk")
	_, double := e.Extract("remember the important milk")
	assert.InDelta(t, single+0.1, double, 1e-9,
		"second trigger word should not add another boost (only one more keyword)")
}

func TestExtract_KeywordsByFrequencyThenFirstOccurrence(t *testing.T) {
	e := NewExtractor()

	keywords, _ := e.Extract("alpha beta alpha gamma beta alpha delta epsilon zeta eta")
	require.GreaterOrEqual(t, len(keywords), 5)
	assert.Equal(t, "alpha", keywords[0])
	assert.Equal(t, "beta", keywords[1])
	// remaining tokens all occur once, so first-occurrence order applies
	assert.Equal(t, []string{"gamma", "delta", "epsilon"}, keywords[2:5])
}

func TestExtract_AtMostFiveKeywords(t *testing.T) {
	e := NewExtractor()

	keywords, _ := e.Extract("one1 two2 three3 four4 five5 six6 seven7 eight8")
	assert.Len(t, keywords, 5)
}

func TestExtract_DropsStopWordsAndShortTokens(t *testing.T) {
	e := NewExtractor()

	keywords, _ := e.Extract("the cat is on a big mat")
	for _, kw := range keywords {
		assert.False(t, IsStopWord(kw))
		assert.Greater(t, len(kw), 2)
	}
	assert.NotContains(t, keywords, "on")
	assert.Contains(t, keywords, "cat")
	assert.Contains(t, keywords, "big")
	assert.Contains(t, keywords, "mat")
}

func TestExtract_LowercasesTokens(t *testing.T) {
	e := NewExtractor()

	keywords, _ := e.Extract("Database DATABASE database")
	require.Len(t, keywords, 1)
	assert.Equal(t, "database", keywords[0])
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.5))
	assert.Equal(t, 1.0, Clamp(1.5))
	assert.Equal(t, 0.7, Clamp(0.7))
}
