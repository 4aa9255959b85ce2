package recall

import (
	"context"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/model"
	"github.com/rushteam/playrec/pkg/utils"
)

// Source 表示一个可复用的召回源（i2i / content / text / mf / hot）。
// 可以单独作为 Node 使用，也可以交给 Fanout 并发执行。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// snapshot 从 context 取出本次查询使用的模型快照。
func snapshot(ctx context.Context) (*model.Set, error) {
	set, ok := model.FromContext(ctx)
	if !ok {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "recall: model snapshot not available")
	}
	return set, nil
}

// toItems 把模型打分结果转换为链路 Item，并记录召回来源与原始分数。
func toItems(source, featureKey string, ns []model.Neighbor) []*core.Item {
	out := make([]*core.Item, 0, len(ns))
	for _, n := range ns {
		it := core.NewItem(n.ItemID)
		it.Score = n.Score
		it.PutFeature(featureKey, n.Score)
		if n.Overlap > 0 {
			it.PutFeature("overlap", float64(n.Overlap))
		}
		it.PutLabel("recall_source", utils.Label{Value: source, Source: "recall"})
		out = append(out, it)
	}
	return out
}
