package model

import (
	"context"
	"strings"

	"github.com/rushteam/playrec/catalog"
	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/feature"
)

// Content 是内容向量空间模型：每个物品一个 L2 归一化的 TF-IDF 向量，
// 拟合时一次性计算完整的物品×物品余弦相似度矩阵（对角线为 1）。
type Content struct {
	names      []string
	index      map[string]int
	texts      []string
	vectors    []feature.SparseVector
	vectorizer *feature.Vectorizer

	// sim 是严格上三角部分，按行压缩存储为 float32：物品间相似度只有 float32 精度，
	// 文本查询的得分按 float64 计算
	sim []float32
}

// FitContent 在目录上拟合内容模型。目录为空时返回 EmptyDataset。
// 相似度矩阵按行计算，每行之间检查 ctx 以支持取消。
func FitContent(ctx context.Context, c *catalog.Catalog) (*Content, error) {
	profiles := c.Profiles()
	if len(profiles) == 0 {
		return nil, core.ErrEmptyDataset(core.ModuleContent)
	}

	n := len(profiles)
	m := &Content{
		names: make([]string, n),
		index: make(map[string]int, n),
		texts: make([]string, n),
	}
	for i, p := range profiles {
		m.names[i] = p.Name
		m.index[core.NormalizeKey(p.Name)] = i
		m.texts[i] = catalog.ContentText(p)
	}

	m.vectorizer = feature.FitVectorizer(m.texts)
	m.vectors = make([]feature.SparseVector, n)
	for i, text := range m.texts {
		m.vectors[i] = m.vectorizer.Transform(text)
	}

	m.sim = make([]float32, n*(n-1)/2)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := m.offset(i, i+1)
		for j := i + 1; j < n; j++ {
			m.sim[base+j-i-1] = float32(m.vectors[i].Dot(m.vectors[j]))
		}
	}
	return m, nil
}

// offset 返回 (i, j)（i < j）在压缩上三角中的位置。
func (m *Content) offset(i, j int) int {
	n := len(m.names)
	return i*(2*n-i-1)/2 + (j - i - 1)
}

func (m *Content) at(i, j int) float64 {
	if i == j {
		return 1.0
	}
	if i > j {
		i, j = j, i
	}
	return float64(m.sim[m.offset(i, j)])
}

// Len 返回物品数。
func (m *Content) Len() int { return len(m.names) }

// Resolve 返回物品的规范名称（大小写不敏感）。
func (m *Content) Resolve(name string) (string, bool) {
	idx, ok := m.index[core.NormalizeKey(name)]
	if !ok {
		return "", false
	}
	return m.names[idx], true
}

// Similarity 返回两个物品的余弦相似度。
func (m *Content) Similarity(a, b string) (float64, error) {
	i, ok := m.index[core.NormalizeKey(a)]
	if !ok {
		return 0, core.ErrItemNotFound(core.ModuleContent, a)
	}
	j, ok := m.index[core.NormalizeKey(b)]
	if !ok {
		return 0, core.ErrItemNotFound(core.ModuleContent, b)
	}
	return m.at(i, j), nil
}

// SimilarItems 返回与 target 最相似的 k 个物品（不含 target 自身），
// 相似度降序，同分按物品 ID 升序。相似度为 0 的物品同样参与排序。
func (m *Content) SimilarItems(target string, k int) ([]Neighbor, error) {
	i, ok := m.index[core.NormalizeKey(target)]
	if !ok {
		return nil, core.ErrItemNotFound(core.ModuleContent, target)
	}
	out := make([]Neighbor, 0, len(m.names)-1)
	for j, name := range m.names {
		if j == i {
			continue
		}
		out = append(out, Neighbor{ItemID: name, Score: m.at(i, j)})
	}
	sortByScore(out)
	return truncate(out, k), nil
}

// SimilarToText 把自由文本映射到同一向量空间，对全部物品打分。
// 词表外的词权重为零；得分为 0 的物品不返回，没有任何非零得分时返回 NoMatch。
func (m *Content) SimilarToText(text string, k int) ([]Neighbor, error) {
	q := m.vectorizer.Transform(feature.Clean(text))
	if q.IsZero() {
		return nil, core.ErrNoMatch(core.ModuleContent, text)
	}
	var out []Neighbor
	for j, name := range m.names {
		if s := q.Dot(m.vectors[j]); s > 0 {
			out = append(out, Neighbor{ItemID: name, Score: s})
		}
	}
	if len(out) == 0 {
		return nil, core.ErrNoMatch(core.ModuleContent, text)
	}
	sortByScore(out)
	return truncate(out, k), nil
}

// Text 返回物品参与向量化的清洗后文本。
func (m *Content) Text(name string) (string, bool) {
	idx, ok := m.index[core.NormalizeKey(name)]
	if !ok {
		return "", false
	}
	return m.texts[idx], true
}

// SharedFeatures 返回两个物品原始 token 的交集（已排序）。
func (m *Content) SharedFeatures(a, b string) []string {
	ta, okA := m.Text(a)
	tb, okB := m.Text(b)
	if !okA || !okB {
		return nil
	}
	return feature.SharedTokens(ta, tb)
}

// SharedWithText 返回自由文本与物品原始 token 的交集。
func (m *Content) SharedWithText(text, name string) []string {
	tb, ok := m.Text(name)
	if !ok || strings.TrimSpace(text) == "" {
		return nil
	}
	return feature.SharedTokens(text, tb)
}
