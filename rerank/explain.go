package rerank

import (
	"context"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/model"
	"github.com/rushteam/playrec/pipeline"
)

// 共有特征的计算方式。
const (
	ExplainNone = ""     // 不计算共有特征
	ExplainItem = "item" // 与查询物品的共有 token
	ExplainText = "text" // 与查询文本的共有 token
)

// ExplainNode 为每条结果填充 Evidence：共有内容特征、玩家数、平均时长与召回来源。
type ExplainNode struct {
	Mode string
}

func (n *ExplainNode) Name() string {
	return "rerank.explain"
}

func (n *ExplainNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *ExplainNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	set, ok := model.FromContext(ctx)
	if !ok {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "rerank.explain: model snapshot not available")
	}

	for _, it := range items {
		ev := &core.Evidence{}
		switch n.Mode {
		case ExplainItem:
			ev.SharedFeatures = set.Content.SharedFeatures(rctx.QueryItem(), it.ID)
		case ExplainText:
			ev.SharedFeatures = set.Content.SharedWithText(rctx.ParamString(core.ParamText), it.ID)
		}
		st := set.Stats(it.ID)
		ev.PlayCount = st.PlayCount
		ev.MeanEngagement = st.MeanEngagement
		if lbl, ok := it.Labels["recall_source"]; ok {
			ev.Sources = lbl.Values()
		}
		it.Evidence = ev
	}
	return items, nil
}
