package recall

import (
	"context"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/interaction"
	"github.com/rushteam/playrec/pipeline"
	"github.com/rushteam/playrec/pkg/utils"
)

// 热门榜单的排序指标。
const (
	MetricCount = "count"
	MetricMean  = "mean"
)

// Hot 是热门召回源，用于冷用户或无查询物品时的兜底。
// - Store 不为空时从 {Prefix}:count / {Prefix}:mean 有序集合读取 TopK
// - 读取失败或为空时回退到当前模型快照中的热度统计
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用
type Hot struct {
	Store  core.KeyValueStore
	Prefix string // Popularity.Publish 使用的 key 前缀
	Metric string // count（默认）或 mean
	K      int    // 榜单长度，<= 0 时取 100
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Hot) limit() int {
	if r.K <= 0 {
		return 100
	}
	return r.K
}

func (r *Hot) suffix() string {
	if r.Metric == MetricMean {
		return interaction.KeySuffixMean
	}
	return interaction.KeySuffixCount
}

// Recall 实现 Source 接口
func (r *Hot) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	set, _ := snapshot(ctx)

	var ids []string
	if r.Store != nil && r.Prefix != "" {
		members, err := r.Store.ZRange(ctx, r.Prefix+r.suffix(), 0, int64(r.limit()-1))
		if err == nil {
			ids = members
		}
	}

	if len(ids) == 0 {
		if set == nil {
			return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "recall.hot: no popularity source")
		}
		var ranked []interaction.Ranked
		if r.Metric == MetricMean {
			ranked = set.Popularity.TopByMean(r.limit())
		} else {
			ranked = set.Popularity.TopByCount(r.limit())
		}
		ids = make([]string, 0, len(ranked))
		for _, rk := range ranked {
			ids = append(ids, rk.ItemID)
		}
	}

	out := make([]*core.Item, 0, len(ids))
	for i, id := range ids {
		it := core.NewItem(id)
		// 榜单名次转换为递减分数，保证后续按分数排序时保持榜单顺序
		it.Score = float64(len(ids) - i)
		if set != nil {
			st, _ := set.Popularity.Get(id)
			it.PutFeature("play_count", float64(st.PlayCount))
			it.PutFeature("mean_engagement", st.MeanEngagement)
		}
		it.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
