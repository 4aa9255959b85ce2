package pipeline

import (
	"context"

	"github.com/rushteam/playrec/core"
)

// Pipeline 是推荐策略的核心抽象：把推荐逻辑拆成可组合的 Node 链。
type Pipeline struct {
	Name  string
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
