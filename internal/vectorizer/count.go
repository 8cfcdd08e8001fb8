package vectorizer

import (
	"sort"
	"strings"
	"unicode"
)

// CountVectorizer converts text into sparse n-gram occurrence vectors.
//
// Analyzer selects the fragment type: "char" extracts character n-grams
// from the lowercased text, "char_wb" extracts character n-grams inside
// space-padded word boundaries, and "word" extracts token n-grams. Terms
// appearing in fewer than MinDF documents during fitting are dropped. With
// Binary set, present fragments count 1 regardless of multiplicity. The
// vocabulary is sorted during fitting and frozen afterwards; fragments
// outside it contribute nothing at transform time.
type CountVectorizer struct {
	NgramRange [2]int          `json:"ngram_range"`
	MinDF      int             `json:"min_df"`
	Binary     bool            `json:"binary"`
	Analyzer   string          `json:"analyzer"`
	StopWords  map[string]bool `json:"stop_words,omitempty"`
	Vocab      map[string]int  `json:"vocab"`
	Names      []string        `json:"feature_names"`
}

// NewCountVectorizer creates an unfitted CountVectorizer.
func NewCountVectorizer(ngramRange [2]int, minDF int, binary bool, analyzer string, stopWords map[string]bool) *CountVectorizer {
	if minDF < 1 {
		minDF = 1
	}
	return &CountVectorizer{
		NgramRange: ngramRange,
		MinDF:      minDF,
		Binary:     binary,
		Analyzer:   analyzer,
		StopWords:  stopWords,
	}
}

// Fitted reports whether the vectorizer has a vocabulary.
func (c *CountVectorizer) Fitted() bool {
	return c.Vocab != nil
}

// VocabSize returns the number of terms in the vocabulary.
func (c *CountVectorizer) VocabSize() int {
	return len(c.Vocab)
}

// FeatureNames returns the vocabulary terms in column order.
func (c *CountVectorizer) FeatureNames() []string {
	out := make([]string, len(c.Names))
	copy(out, c.Names)
	return out
}

// FitTransform learns the vocabulary from texts and transforms them.
func (c *CountVectorizer) FitTransform(texts []string) []SparseVector {
	docFreq := make(map[string]int)
	analyzed := make([][]string, len(texts))
	for i, text := range texts {
		terms := c.analyze(text)
		analyzed[i] = terms

		inDoc := make(map[string]bool, len(terms))
		for _, term := range terms {
			inDoc[term] = true
		}
		for term := range inDoc {
			docFreq[term]++
		}
	}

	c.Names = c.Names[:0]
	for term, df := range docFreq {
		if df >= c.MinDF {
			c.Names = append(c.Names, term)
		}
	}
	sort.Strings(c.Names)

	c.Vocab = make(map[string]int, len(c.Names))
	for i, term := range c.Names {
		c.Vocab[term] = i
	}

	out := make([]SparseVector, len(texts))
	for i, terms := range analyzed {
		out[i] = c.vectorize(terms)
	}
	return out
}

// Transform converts one text to a sparse vector using the fitted
// vocabulary.
func (c *CountVectorizer) Transform(text string) SparseVector {
	return c.vectorize(c.analyze(text))
}

func (c *CountVectorizer) vectorize(terms []string) SparseVector {
	counts := make(map[int]float64)
	for _, term := range terms {
		if idx, ok := c.Vocab[term]; ok {
			if c.Binary {
				counts[idx] = 1
			} else {
				counts[idx]++
			}
		}
	}

	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	vec := SparseVector{
		Indices: indices,
		Values:  make([]float64, len(indices)),
		Dim:     len(c.Vocab),
	}
	for i, idx := range indices {
		vec.Values[i] = counts[idx]
	}
	return vec
}

// analyze splits text into the terms the vectorizer counts.
func (c *CountVectorizer) analyze(text string) []string {
	text = strings.ToLower(text)
	minN, maxN := c.NgramRange[0], c.NgramRange[1]

	switch c.Analyzer {
	case "char_wb":
		var grams []string
		for _, word := range strings.Fields(text) {
			grams = append(grams, charNgrams(" "+word+" ", minN, maxN)...)
		}
		return grams
	case "word":
		tokens := wordTokens(text)
		if len(c.StopWords) > 0 {
			kept := tokens[:0]
			for _, tok := range tokens {
				if !c.StopWords[tok] {
					kept = append(kept, tok)
				}
			}
			tokens = kept
		}
		var grams []string
		for n := minN; n <= maxN; n++ {
			if n <= 0 || n > len(tokens) {
				continue
			}
			for i := 0; i+n <= len(tokens); i++ {
				grams = append(grams, strings.Join(tokens[i:i+n], " "))
			}
		}
		return grams
	default: // "char"
		return charNgrams(text, minN, maxN)
	}
}

func charNgrams(s string, minN, maxN int) []string {
	runes := []rune(s)
	var grams []string
	for n := minN; n <= maxN; n++ {
		if n <= 0 || n > len(runes) {
			continue
		}
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}

// wordTokens extracts word tokens of two or more characters.
func wordTokens(s string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) >= 2 {
			tokens = append(tokens, string(cur))
		}
		cur = cur[:0]
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur = append(cur, r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// EnglishStopWords returns a set of common English stop words for the
// "word" analyzer.
func EnglishStopWords() map[string]bool {
	words := []string{
		"a", "about", "above", "after", "again", "against", "all", "am",
		"an", "and", "any", "are", "as", "at", "be", "because", "been",
		"before", "being", "below", "between", "both", "but", "by", "can",
		"did", "do", "does", "doing", "down", "during", "each", "few",
		"for", "from", "further", "had", "has", "have", "having", "he",
		"her", "here", "hers", "him", "his", "how", "i", "if", "in",
		"into", "is", "it", "its", "just", "me", "more", "most", "my",
		"no", "nor", "not", "now", "of", "off", "on", "once", "only",
		"or", "other", "our", "ours", "out", "over", "own", "same", "she",
		"should", "so", "some", "such", "than", "that", "the", "their",
		"theirs", "them", "then", "there", "these", "they", "this",
		"those", "through", "to", "too", "under", "until", "up", "very",
		"was", "we", "were", "what", "when", "where", "which", "while",
		"who", "whom", "why", "will", "with", "you", "your", "yours",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
