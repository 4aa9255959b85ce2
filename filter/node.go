package filter

import (
	"context"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/pipeline"
	"github.com/rushteam/playrec/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
type FilterNode struct {
	Filters []Filter

	// Strict 为 true 时过滤器错误中断整条链路，否则忽略该过滤器继续
	Strict bool
}

func (n *FilterNode) Name() string {
	return "filter"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				if n.Strict {
					return nil, err
				}
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			// 记录过滤原因，便于调试
			item.PutLabel("filtered", utils.Label{Value: "true", Source: reason})
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
