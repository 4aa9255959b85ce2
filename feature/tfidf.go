package feature

import (
	"math"
	"sort"
)

// SparseVector 是按下标升序存储的稀疏向量。
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Dot 计算两个稀疏向量的内积（归并两个有序下标序列）。
func (a SparseVector) Dot(b SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

func (a SparseVector) Norm() float64 {
	var sq float64
	for _, v := range a.Values {
		sq += v * v
	}
	return math.Sqrt(sq)
}

// IsZero 判断向量是否没有任何非零权重。
func (a SparseVector) IsZero() bool {
	for _, v := range a.Values {
		if v != 0 {
			return false
		}
	}
	return true
}

// Vectorizer 是 TF-IDF 向量化器：
//   - tf 为原始词频
//   - idf = ln((1+N)/(1+df)) + 1（平滑）
//   - 结果做 L2 归一化
//
// 词表按字典序编号；词表外的词权重为零。
type Vectorizer struct {
	vocab map[string]int
	terms []string
	idf   []float64
}

// FitVectorizer 在语料上拟合词表与 idf。
func FitVectorizer(docs []string) *Vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &Vectorizer{
		vocab: make(map[string]int, len(terms)),
		terms: terms,
		idf:   make([]float64, len(terms)),
	}
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// Transform 把文本映射为 L2 归一化的 TF-IDF 向量。
func (v *Vectorizer) Transform(doc string) SparseVector {
	counts := make(map[int]float64)
	for _, tok := range Tokenize(doc) {
		if idx, ok := v.vocab[tok]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	indices := make([]int, 0, len(counts))
	for idx := range counts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	vec := SparseVector{Indices: indices, Values: make([]float64, len(indices))}
	for i, idx := range indices {
		vec.Values[i] = counts[idx] * v.idf[idx]
	}
	if norm := vec.Norm(); norm > 0 {
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}

// Vocabulary 返回按字典序排列的词表。
func (v *Vectorizer) Vocabulary() []string {
	return append([]string(nil), v.terms...)
}

// IDF 返回词的 idf 权重。
func (v *Vectorizer) IDF(term string) (float64, bool) {
	idx, ok := v.vocab[term]
	if !ok {
		return 0, false
	}
	return v.idf[idx], true
}
