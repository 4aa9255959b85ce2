package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/pipeline"
)

// SortNode 按分数降序、物品 ID 升序稳定排序，保证同分结果的顺序可复现。
type SortNode struct{}

func (n *SortNode) Name() string {
	return "rerank.sort"
}

func (n *SortNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *SortNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}
