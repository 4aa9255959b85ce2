package model

import (
	"context"
	"math"
	"sort"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/interaction"
)

// DefaultMinSupport 是相关性结果的最小支持度：play_count <= 该值的物品被排除。
const DefaultMinSupport = 100

// column 是按用户 ID 排序的物品列，便于归并求共同用户。
type column struct {
	users  []string
	values []float64
}

// ItemCF 是基于皮尔逊相关的物品邻域模型。
//
// 相关性只在同时观测过两个物品的用户上计算（pairwise-complete），
// 共同用户少于 2 或方差为 0 时相关性无定义，该物品被丢弃。
type ItemCF struct {
	matrix  *interaction.Matrix
	pop     *interaction.Popularity
	columns map[string]column
}

func NewItemCF(m *interaction.Matrix, p *interaction.Popularity) *ItemCF {
	cf := &ItemCF{
		matrix:  m,
		pop:     p,
		columns: make(map[string]column, len(m.Items())),
	}
	for _, item := range m.Items() {
		col := m.ItemUsers(item)
		users := make([]string, 0, len(col))
		for u := range col {
			users = append(users, u)
		}
		sort.Strings(users)
		values := make([]float64, len(users))
		for i, u := range users {
			values[i] = col[u]
		}
		cf.columns[item] = column{users: users, values: values}
	}
	return cf
}

// Correlation 返回两个物品的皮尔逊相关系数与共同用户数；无定义时 ok 为 false。
// 结果对称：Correlation(a, b) == Correlation(b, a)。
func (cf *ItemCF) Correlation(a, b string) (float64, int, bool) {
	return pearson(cf.columns[a], cf.columns[b])
}

// SimilarItems 返回与 target 相关性最高的 k 个物品（k <= 0 表示不限）。
//
// 排序：相关性降序，其次 play_count 降序，最后物品 ID 升序。
// play_count <= minSupport 的物品被排除。target 不在日志中返回 ItemNotFound；
// target 存在但没有 play 数据时返回空结果与 NoData。
func (cf *ItemCF) SimilarItems(ctx context.Context, target string, k, minSupport int) ([]Neighbor, error) {
	id, ok := cf.matrix.Resolve(target)
	if !ok {
		return nil, core.ErrItemNotFound(core.ModuleCF, target)
	}
	ref, ok := cf.columns[id]
	if !ok {
		return nil, core.ErrNoData(core.ModuleCF, id)
	}

	type candidate struct {
		Neighbor
		playCount int
	}
	var cands []candidate
	for _, item := range cf.matrix.Items() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item == id {
			continue
		}
		stats, _ := cf.pop.Get(item)
		if stats.PlayCount <= minSupport {
			continue
		}
		r, n, ok := pearson(ref, cf.columns[item])
		if !ok {
			continue
		}
		cands = append(cands, candidate{
			Neighbor:  Neighbor{ItemID: item, Score: r, Overlap: n},
			playCount: stats.PlayCount,
		})
	}

	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.playCount != b.playCount {
			return a.playCount > b.playCount
		}
		return a.ItemID < b.ItemID
	})

	out := make([]Neighbor, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Neighbor)
	}
	return truncate(out, k), nil
}

// pearson 在两列共同用户上计算皮尔逊相关。
func pearson(x, y column) (float64, int, bool) {
	var xs, ys []float64
	i, j := 0, 0
	for i < len(x.users) && j < len(y.users) {
		switch {
		case x.users[i] == y.users[j]:
			xs = append(xs, x.values[i])
			ys = append(ys, y.values[j])
			i++
			j++
		case x.users[i] < y.users[j]:
			i++
		default:
			j++
		}
	}
	n := len(xs)
	if n < 2 {
		return 0, n, false
	}

	var meanX, meanY float64
	for k := range xs {
		meanX += xs[k]
		meanY += ys[k]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var cov, varX, varY float64
	for k := range xs {
		dx := xs[k] - meanX
		dy := ys[k] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, n, false
	}

	r := cov / math.Sqrt(varX*varY)
	if math.IsNaN(r) {
		return 0, n, false
	}
	return math.Max(-1, math.Min(1, r)), n, true
}
