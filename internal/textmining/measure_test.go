package textmining

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWords(t *testing.T) {
	words := Words("You agree to the Terms, and we reserve the right!")
	require.Equal(t, []string{"you", "agree", "to", "the", "terms", "and", "we", "reserve", "the", "right"}, words)
}

func TestSentences(t *testing.T) {
	got := Sentences("First sentence. Second one! Third... ")
	require.Len(t, got, 3)
	require.Equal(t, "Second one", got[1])
}

func TestMeasureEmptyText(t *testing.T) {
	st := Measure("")
	require.Zero(t, st.WordCount)
	require.Zero(t, st.SentenceCount)
	require.Zero(t, st.FleschReadingEase)
}

func TestMeasureBasicCounts(t *testing.T) {
	st := Measure("The cat sat on the mat. The dog ran to the park.")
	require.Equal(t, 12, st.WordCount)
	require.Equal(t, 2, st.SentenceCount)
	require.InDelta(t, 6.0, st.AvgWordsPerSentence, 0.001)
	// Monosyllabic short sentences score near the top of the Flesch scale.
	require.Greater(t, st.FleschReadingEase, 90.0)
	require.Less(t, st.FleschKincaidGrade, 3.0)
}

func TestMeasureLegalClauses(t *testing.T) {
	text := "You agree to binding arbitration. We reserve the right to terminate accounts. " +
		"The sky is blue today. You acknowledge that services are provided as-is."
	st := Measure(text)
	require.Equal(t, 3, st.LegalClauseCount)
	require.Greater(t, st.KeywordDensity, 0.0)
}

func TestKeywordDensityBounds(t *testing.T) {
	st := Measure("liability liability liability liability")
	require.InDelta(t, 1.0, st.KeywordDensity, 0.0001)

	st = Measure("hello world nothing risky here")
	require.Zero(t, st.KeywordDensity)
}

func TestWordFrequencyStopwordsAndTopN(t *testing.T) {
	text := strings.Repeat("privacy ", 5) + strings.Repeat("data ", 3) + strings.Repeat("cookie ", 2) +
		"the the the and and a"
	freq := WordFrequency(text, 2)
	require.Len(t, freq, 2)
	require.Equal(t, 5, freq["privacy"])
	require.Equal(t, 3, freq["data"])
	require.NotContains(t, freq, "the")
}

func TestWordFrequencyFullMap(t *testing.T) {
	freq := WordFrequency("alpha beta alpha", 0)
	require.Equal(t, map[string]int{"alpha": 2, "beta": 1}, freq)
}

func TestCountSyllables(t *testing.T) {
	cases := map[string]int{
		"cat":       1,
		"table":     2,
		"agreement": 3,
		"privacy":   3,
	}
	for word, want := range cases {
		require.Equal(t, want, countSyllables(word), word)
	}
}
