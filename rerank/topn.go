package rerank

import (
	"context"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/pipeline"
	"github.com/rushteam/playrec/pkg/conv"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序后截取前 N 个物品。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Content{},        // 召回（已按分数排序）
//	        &rerank.TopNNode{},       // 按请求的 top_n 截断
//	        &rerank.ExplainNode{},    // 补充推荐理由
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量；N <= 0 时读取请求参数 top_n，
	// 两者都没有则不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) limit(rctx *core.RecommendContext) int {
	if n.N > 0 {
		return n.N
	}
	if rctx == nil {
		return 0
	}
	return int(conv.ConfigGetInt64(rctx.Params, core.ParamTopN, 0))
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.limit(rctx)
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
