package retrieval

import (
	"math"
	"unicode"

	"ragcore/internal/domain"
)

// tokenize splits text into lowercased terms: runs of Latin letters/digits
// are kept together, while each Han ideograph becomes its own term, matching
// the per-character treatment documents.Preprocessor's CJK stopword pass
// already assumes for this corpus (§4.4 "bundled CJK and English lists").
func tokenize(text string) []string {
	var tokens []string
	var run []rune
	flush := func() {
		if len(run) > 0 {
			tokens = append(tokens, string(run))
			run = run[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			run = append(run, unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// lexicalScores computes, for each candidate, a token-overlap x IDF score
// against query over the candidate pool (§4.5 step 3 "keyword" mode), then
// normalizes the raw scores to [0,1] by the pool's maximum so they combine
// cleanly with the [0,1]-ish cosine similarities in hybrid mode.
//
// Standard-library justification: this re-scores an already-small candidate
// pool already pulled from the vector store, not a search index over the
// whole corpus; pulling in a full-text engine (bleve, bluge) for a pool of
// top_k*k_over items would add a dependency with no component to exercise
// it beyond this one re-scoring step.
func lexicalScores(query string, candidates []domain.SearchResult) []float64 {
	qTerms := tokenize(query)
	n := len(candidates)
	docTerms := make([]map[string]struct{}, n)
	df := map[string]int{}
	for i, c := range candidates {
		set := map[string]struct{}{}
		for _, t := range tokenize(c.Content) {
			set[t] = struct{}{}
		}
		docTerms[i] = set
		for t := range set {
			df[t]++
		}
	}
	idf := func(term string) float64 {
		return math.Log(float64(n+1)/float64(df[term]+1)) + 1
	}

	raw := make([]float64, n)
	maxScore := 0.0
	for i := range candidates {
		var score float64
		for _, t := range qTerms {
			if _, ok := docTerms[i][t]; ok {
				score += idf(t)
			}
		}
		raw[i] = score
		if score > maxScore {
			maxScore = score
		}
	}
	if maxScore > 0 {
		for i := range raw {
			raw[i] /= maxScore
		}
	}
	return raw
}

// normalizedSimilarity clamps a cosine similarity (which may be slightly
// negative for dissimilar vectors) into [0,1] for hybrid combination.
func normalizedSimilarity(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
