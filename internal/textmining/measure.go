package textmining

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	reWord     = regexp.MustCompile(`[A-Za-z0-9']+`)
	reSentence = regexp.MustCompile(`[.!?]+`)
	reVowels   = regexp.MustCompile(`[aeiouy]+`)
)

// Legal/risk keywords used for keyword density. Fixed list; density is the
// ratio of hits to total words.
var riskKeywords = []string{
	"liability", "indemnify", "indemnification", "arbitration", "waiver",
	"termination", "terminate", "disclaim", "disclaimer", "warranty",
	"warranties", "damages", "jurisdiction", "governing", "binding",
	"consent", "third-party", "third", "collect", "share", "disclose",
	"retention", "cookies", "tracking", "advertising", "sublicense",
	"irrevocable", "perpetual",
}

// Clause-marker patterns counted as legal clauses. A sentence containing any
// marker counts once.
var clauseMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\byou agree\b`),
	regexp.MustCompile(`(?i)\bwe reserve the right\b`),
	regexp.MustCompile(`(?i)\byou acknowledge\b`),
	regexp.MustCompile(`(?i)\byou consent\b`),
	regexp.MustCompile(`(?i)\bwe may (?:share|disclose|collect|use|modify|terminate)\b`),
	regexp.MustCompile(`(?i)\bat our sole discretion\b`),
	regexp.MustCompile(`(?i)\bwithout (?:prior )?notice\b`),
	regexp.MustCompile(`(?i)\bto the (?:maximum|fullest) extent permitted\b`),
	regexp.MustCompile(`(?i)\bas[- ]is\b`),
	regexp.MustCompile(`(?i)\bhold harmless\b`),
	regexp.MustCompile(`(?i)\bclass action\b`),
}

// Stats holds the deterministic portion of the measurements.
type Stats struct {
	WordCount                 int
	SentenceCount             int
	AvgWordsPerSentence       float64
	FleschReadingEase         float64
	FleschKincaidGrade        float64
	AutomatedReadabilityIndex float64
	KeywordDensity            float64
	LegalClauseCount          int
}

// Words tokenizes text into lowercase word tokens.
func Words(text string) []string {
	raw := reWord.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.Trim(strings.ToLower(w), "'")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Sentences splits text on terminal punctuation runs. Empty fragments are
// dropped so "..." does not inflate the count.
func Sentences(text string) []string {
	parts := reSentence.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

// countSyllables approximates syllables as vowel groups, minimum one.
// Trailing silent e is discounted for words longer than two letters.
func countSyllables(word string) int {
	w := strings.ToLower(word)
	n := len(reVowels.FindAllString(w, -1))
	if n > 1 && len(w) > 2 && strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Measure computes all deterministic statistics for a document text.
func Measure(text string) Stats {
	words := Words(text)
	sentences := Sentences(text)

	st := Stats{
		WordCount:     len(words),
		SentenceCount: len(sentences),
	}
	if st.WordCount == 0 {
		return st
	}
	sc := st.SentenceCount
	if sc == 0 {
		sc = 1
	}

	var syllables, letters int
	for _, w := range words {
		syllables += countSyllables(w)
		letters += len(w)
	}

	wps := float64(st.WordCount) / float64(sc)
	spw := float64(syllables) / float64(st.WordCount)
	lpw := float64(letters) / float64(st.WordCount)

	st.AvgWordsPerSentence = round2(wps)
	// Published formulas: Flesch (1948), Kincaid et al. (1975), Senter & Smith (1967).
	st.FleschReadingEase = round2(206.835 - 1.015*wps - 84.6*spw)
	st.FleschKincaidGrade = round2(0.39*wps + 11.8*spw - 15.59)
	st.AutomatedReadabilityIndex = round2(4.71*lpw + 0.5*wps - 21.43)
	st.KeywordDensity = round4(keywordHits(words) / float64(st.WordCount))
	st.LegalClauseCount = clauseCount(sentences)
	return st
}

func keywordHits(words []string) float64 {
	kw := make(map[string]struct{}, len(riskKeywords))
	for _, k := range riskKeywords {
		kw[k] = struct{}{}
	}
	var hits int
	for _, w := range words {
		if _, ok := kw[w]; ok {
			hits++
		}
	}
	return float64(hits)
}

func clauseCount(sentences []string) int {
	var n int
	for _, s := range sentences {
		for _, m := range clauseMarkers {
			if m.MatchString(s) {
				n++
				break
			}
		}
	}
	return n
}

// WordFrequency returns lowercased token counts excluding stopwords,
// truncated to the topN most frequent terms. Single characters are skipped.
func WordFrequency(text string, topN int) map[string]int {
	counts := map[string]int{}
	for _, w := range Words(text) {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		counts[w]++
	}
	if topN <= 0 || len(counts) <= topN {
		return counts
	}

	type wc struct {
		word  string
		count int
	}
	all := make([]wc, 0, len(counts))
	for w, c := range counts {
		all = append(all, wc{w, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].word < all[j].word
	})
	top := make(map[string]int, topN)
	for _, e := range all[:topN] {
		top[e.word] = e.count
	}
	return top
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func round4(f float64) float64 { return math.Round(f*10000) / 10000 }
