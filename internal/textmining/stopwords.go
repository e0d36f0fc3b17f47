package textmining

// English stopwords excluded from word-frequency output. Legal boilerplate is
// dominated by these, so leaving them in would drown every meaningful term.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "and", "are", "as", "at", "be", "been", "but", "by",
		"can", "could", "did", "do", "does", "for", "from", "had", "has",
		"have", "he", "her", "his", "i", "if", "in", "into", "is", "it",
		"its", "may", "me", "more", "most", "my", "no", "not", "of", "on",
		"or", "our", "out", "s", "shall", "she", "should", "so", "some",
		"such", "t", "than", "that", "the", "their", "them", "then",
		"there", "these", "they", "this", "those", "to", "under", "up",
		"us", "was", "we", "were", "what", "when", "where", "which",
		"while", "who", "will", "with", "would", "you", "your",
	} {
		stopwords[w] = struct{}{}
	}
}
