// Package classifier fits a TF-IDF transform and per-label logistic regressions.
package classifier

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// ErrEmptyVocabulary is returned when no term survives the document frequency cutoff.
var ErrEmptyVocabulary = errors.New("empty vocabulary after document frequency cutoff")

const minDocFreq = 2

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// SparseVector is a row of the feature matrix. Indices are strictly increasing.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Dot returns the inner product with a dense weight vector.
func (v SparseVector) Dot(w []float64) float64 {
	var sum float64
	for k, idx := range v.Indices {
		sum += v.Values[k] * w[idx]
	}
	return sum
}

// Vectorizer is a unigram+bigram TF-IDF transform with sublinear tf, smoothed idf and
// L2 row normalization. It is immutable once fitted.
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

// analyze splits text into stop-word-free unigrams and the bigrams between them.
func analyze(text string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := englishStopWords[tok]; !stop {
			kept = append(kept, tok)
		}
	}
	terms := make([]string, 0, 2*len(kept))
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// FitTransform learns the vocabulary and idf weights from docs and returns their rows.
func FitTransform(docs []string) (*Vectorizer, []SparseVector, error) {
	analyzed := make([][]string, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		analyzed[i] = analyze(doc)
		seen := make(map[string]struct{}, len(analyzed[i]))
		for _, term := range analyzed[i] {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	terms := make([]string, 0, len(df))
	for term, n := range df {
		if n >= minDocFreq {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, nil, ErrEmptyVocabulary
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &Vectorizer{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	rows := make([]SparseVector, len(docs))
	for i, terms := range analyzed {
		rows[i] = v.row(terms)
	}
	return v, rows, nil
}

// Features returns the vocabulary size.
func (v *Vectorizer) Features() int {
	return len(v.idf)
}

// Transform maps docs into the fitted feature space. Unknown terms are dropped.
func (v *Vectorizer) Transform(docs []string) []SparseVector {
	rows := make([]SparseVector, len(docs))
	for i, doc := range docs {
		rows[i] = v.row(analyze(doc))
	}
	return rows
}

func (v *Vectorizer) row(terms []string) SparseVector {
	counts := make(map[int]int)
	for _, term := range terms {
		if idx, ok := v.vocabulary[term]; ok {
			counts[idx]++
		}
	}
	row := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		row.Indices = append(row.Indices, idx)
	}
	sort.Ints(row.Indices)

	var norm float64
	for _, idx := range row.Indices {
		w := (1 + math.Log(float64(counts[idx]))) * v.idf[idx]
		row.Values = append(row.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range row.Values {
			row.Values[k] /= norm
		}
	}
	return row
}
