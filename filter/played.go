package filter

import (
	"context"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/model"
)

// PlayedFilter 过滤掉用户已经玩过的物品（依据当前模型快照中的交互矩阵）。
// 冷用户没有观测，不过滤任何物品。
type PlayedFilter struct{}

func (f *PlayedFilter) Name() string {
	return "filter.played"
}

func (f *PlayedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if rctx == nil || rctx.UserID == "" {
		return false, nil
	}
	set, ok := model.FromContext(ctx)
	if !ok {
		return false, core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "filter.played: model snapshot not available")
	}
	if _, played := set.Matrix.Get(rctx.UserID, item.ID); played {
		return true, nil
	}
	if set.Joined != nil {
		if _, played := set.Joined.Get(rctx.UserID, item.ID); played {
			return true, nil
		}
	}
	return false, nil
}
