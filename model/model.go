// Package model 包含离线训练得到的推荐模型：邻域相关性（ItemCF）、内容向量（Content）
// 与隐因子（LatentFactor），以及把它们打包成不可变快照的 Set。
package model

import (
	"context"
	"sort"
	"time"

	"github.com/rushteam/playrec/catalog"
	"github.com/rushteam/playrec/interaction"
)

// Neighbor 是模型查询返回的一条打分结果。
type Neighbor struct {
	ItemID string
	Score  float64
	// Overlap 是计算相关性时共同观测的用户数（仅 ItemCF 填充）
	Overlap int
}

// sortByScore 按分数降序、物品 ID 升序排序。
func sortByScore(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Score != ns[j].Score {
			return ns[i].Score > ns[j].Score
		}
		return ns[i].ItemID < ns[j].ItemID
	})
}

func truncate(ns []Neighbor, k int) []Neighbor {
	if k > 0 && len(ns) > k {
		return ns[:k]
	}
	return ns
}

// Set 是一次完整构建的模型快照，构建后只读，由 engine 原子发布。
type Set struct {
	Version uint64
	BuiltAt time.Time

	Matrix     *interaction.Matrix
	Popularity *interaction.Popularity
	Catalog    *catalog.Catalog

	// Joined 是按目录名称连接后的矩阵，LatentFactor 在其上训练
	Joined *interaction.Matrix

	CF      *ItemCF
	Content *Content
	// MF 在日志与目录没有交集时为 nil
	MF      *LatentFactor

	// Names 是目录与交互日志中物品名称的并集（去重、排序）
	Names []string
}

// Stats 返回物品的热度统计：目录物品按连接后的矩阵计算（合并大小写变体），
// 其余物品按日志中的原 ID 查找。
func (s *Set) Stats(itemID string) interaction.Stats {
	if s.Joined != nil {
		if col := s.Joined.ItemUsers(itemID); len(col) > 0 {
			var sum float64
			for _, v := range col {
				sum += v
			}
			return interaction.Stats{MeanEngagement: sum / float64(len(col)), PlayCount: len(col)}
		}
	}
	if s.Popularity == nil {
		return interaction.Stats{}
	}
	st, _ := s.Popularity.Get(itemID)
	return st
}

// Resolve 把查询名称解析为规范名称：先查目录，再查交互日志。
func (s *Set) Resolve(name string) (string, bool) {
	if s.Catalog != nil {
		if canonical, ok := s.Catalog.Resolve(name); ok {
			return canonical, true
		}
	}
	if s.Matrix != nil {
		return s.Matrix.Resolve(name)
	}
	return "", false
}

type setKey struct{}

// NewContext 把模型快照放入 context，保证一次查询的所有 Node 看到同一个快照。
func NewContext(ctx context.Context, s *Set) context.Context {
	return context.WithValue(ctx, setKey{}, s)
}

// FromContext 取出模型快照。
func FromContext(ctx context.Context) (*Set, bool) {
	s, ok := ctx.Value(setKey{}).(*Set)
	return s, ok && s != nil
}
