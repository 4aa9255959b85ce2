package recall

import (
	"sort"

	"github.com/rushteam/playrec/core"
)

// Batch 是单个召回源的一次召回结果，Priority 越小优先级越高。
type Batch struct {
	Source   string
	Priority int
	Items    []*core.Item
}

// MergeStrategy 把多个召回源的结果合并为一个候选列表。
type MergeStrategy interface {
	Merge(batches []Batch) []*core.Item
}

// FirstMergeStrategy 按 ID 去重，保留第一次出现的物品，合并后续来源的 labels。
type FirstMergeStrategy struct{}

func (s *FirstMergeStrategy) Merge(batches []Batch) []*core.Item {
	return dedup(batches)
}

// UnionMergeStrategy 保留所有来源的结果，不去重。
type UnionMergeStrategy struct{}

func (s *UnionMergeStrategy) Merge(batches []Batch) []*core.Item {
	var out []*core.Item
	for _, b := range batches {
		for _, it := range b.Items {
			if it != nil {
				out = append(out, it)
			}
		}
	}
	return out
}

// PriorityMergeStrategy 去重后按来源优先级分组输出，组内按分数降序、ID 升序。
type PriorityMergeStrategy struct{}

func (s *PriorityMergeStrategy) Merge(batches []Batch) []*core.Item {
	ordered := append([]Batch(nil), batches...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	rank := make(map[string]int)
	for _, b := range ordered {
		for _, it := range b.Items {
			if it == nil {
				continue
			}
			if _, ok := rank[it.ID]; !ok {
				rank[it.ID] = b.Priority
			}
		}
	}
	out := dedup(ordered)
	sort.SliceStable(out, func(i, j int) bool {
		if rank[out[i].ID] != rank[out[j].ID] {
			return rank[out[i].ID] < rank[out[j].ID]
		}
		return byScore(out[i], out[j])
	})
	return out
}

// RankFusionMergeStrategy 按来源加权投票：物品得分为召回到它的各来源权重之和，
// 同一来源多次召回只计一次。结果按融合分降序、ID 升序。
type RankFusionMergeStrategy struct {
	// Weights 以召回源名称（如 recall.content）为键
	Weights map[string]float64
	// DefaultWeight 用于未配置权重的来源
	DefaultWeight float64
}

func (s *RankFusionMergeStrategy) weight(source string) float64 {
	if w, ok := s.Weights[source]; ok {
		return w
	}
	return s.DefaultWeight
}

func (s *RankFusionMergeStrategy) Merge(batches []Batch) []*core.Item {
	fused := make(map[string]float64)
	for _, b := range batches {
		seen := make(map[string]struct{}, len(b.Items))
		for _, it := range b.Items {
			if it == nil {
				continue
			}
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			fused[it.ID] += s.weight(b.Source)
		}
	}

	out := dedup(batches)
	for _, it := range out {
		it.Score = fused[it.ID]
		it.PutFeature("fusion_score", it.Score)
	}
	sort.SliceStable(out, func(i, j int) bool { return byScore(out[i], out[j]) })
	return out
}

// dedup 按 ID 去重并保持首次出现顺序；重复项的 labels 合并到保留项，
// 保留项缺失的特征从重复项补齐。
func dedup(batches []Batch) []*core.Item {
	seen := make(map[string]*core.Item)
	var out []*core.Item
	for _, b := range batches {
		for _, it := range b.Items {
			if it == nil {
				continue
			}
			old, ok := seen[it.ID]
			if !ok {
				seen[it.ID] = it
				out = append(out, it)
				continue
			}
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			for k, v := range it.Features {
				if _, has := old.Features[k]; !has {
					old.PutFeature(k, v)
				}
			}
		}
	}
	return out
}

func byScore(a, b *core.Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}
