package core

import "github.com/rushteam/playrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、数值特征、元信息、标签与解释。
// Labels 用于追踪召回来源；Score 用于排序决策；Evidence 是返回给调用方的推荐理由。
type Item struct {
	ID       string
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
	Evidence *Evidence
}

// Evidence 是单条推荐结果的解释，不同策略填充不同字段。
type Evidence struct {
	// SharedFeatures 查询与结果共有的原始内容 token（已排序）
	SharedFeatures []string `json:"shared_features,omitempty"`
	// PlayCount 玩过该物品的去重用户数
	PlayCount int `json:"play_count"`
	// MeanEngagement 平均游戏时长
	MeanEngagement float64 `json:"mean_engagement"`
	// Sources 产生该结果的召回源
	Sources []string `json:"sources,omitempty"`
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// PutFeature 写入数值特征。
func (it *Item) PutFeature(key string, v float64) {
	if it.Features == nil {
		it.Features = make(map[string]float64)
	}
	it.Features[key] = v
}
