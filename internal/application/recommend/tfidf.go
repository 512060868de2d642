package recommend

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// maxFeatures caps the vocabulary to the most frequent terms.
const maxFeatures = 4000

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// tokenize lowercases text and returns its words followed by adjacent word pairs.
func tokenize(text string) []string {
	words := tokenRe.FindAllString(strings.ToLower(text), -1)
	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 1; i < len(words); i++ {
		terms = append(terms, words[i-1]+" "+words[i])
	}
	return terms
}

type vector map[int]float64

// model is a fitted vocabulary with smoothed inverse document frequencies.
type model struct {
	vocab map[string]int
	idf   []float64
}

// fit learns the vocabulary of docs and returns their L2-normalized vectors.
func fit(docs []string) (*model, []vector) {
	tokens := make([][]string, len(docs))
	df := map[string]int{}
	freq := map[string]int{}
	for i, d := range docs {
		tokens[i] = tokenize(d)
		seen := map[string]struct{}{}
		for _, t := range tokens[i] {
			freq[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				df[t]++
			}
		}
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}

	m := &model{vocab: make(map[string]int, len(terms)), idf: make([]float64, len(terms))}
	n := float64(len(docs))
	for i, t := range terms {
		m.vocab[t] = i
		m.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	vecs := make([]vector, len(docs))
	for i := range docs {
		vecs[i] = m.vectorize(tokens[i])
	}
	return m, vecs
}

func (m *model) transform(text string) vector {
	return m.vectorize(tokenize(text))
}

func (m *model) vectorize(tokens []string) vector {
	v := vector{}
	for _, t := range tokens {
		if idx, ok := m.vocab[t]; ok {
			v[idx]++
		}
	}
	var norm float64
	for idx, tf := range v {
		w := tf * m.idf[idx]
		v[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for idx := range v {
		v[idx] /= norm
	}
	return v
}

// cosine assumes both vectors are L2-normalized.
func cosine(a, b vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var dot float64
	for idx, w := range a {
		dot += w * b[idx]
	}
	return dot
}
