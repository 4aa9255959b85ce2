package recall

import (
	"context"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/pipeline"
)

// ItemCF 是基于皮尔逊相关的物品邻域召回（i2i），查询物品取自 rctx 的 item 参数。
// 同时实现 Source 与 Node。
type ItemCF struct {
	// K 返回的邻居数，<= 0 表示不限
	K int
	// MinSupport play_count <= MinSupport 的物品被排除
	MinSupport int
}

func (r *ItemCF) Name() string        { return "recall.i2i" }
func (r *ItemCF) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *ItemCF) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *ItemCF) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	set, err := snapshot(ctx)
	if err != nil {
		return nil, err
	}
	target := rctx.QueryItem()
	ns, err := set.CF.SimilarItems(ctx, target, r.K, r.MinSupport)
	if core.IsItemNotFound(err) && set.Catalog != nil {
		// 目录中有、但没人玩过
		if name, ok := set.Catalog.Resolve(target); ok {
			return nil, core.ErrNoData(core.ModuleCF, name)
		}
	}
	if err != nil {
		return nil, err
	}
	return toItems(r.Name(), "correlation", ns), nil
}

// Content 是基于内容向量余弦相似度的物品召回。
type Content struct {
	K int
}

func (r *Content) Name() string        { return "recall.content" }
func (r *Content) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Content) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Content) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	set, err := snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ns, err := set.Content.SimilarItems(rctx.QueryItem(), r.K)
	if err != nil {
		return nil, err
	}
	return toItems(r.Name(), "cosine", ns), nil
}

// Text 是冷启动召回：把自由文本（rctx 的 text 参数）映射到内容向量空间。
type Text struct {
	K int
}

func (r *Text) Name() string        { return "recall.text" }
func (r *Text) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Text) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Text) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	set, err := snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ns, err := set.Content.SimilarToText(rctx.ParamString(core.ParamText), r.K)
	if err != nil {
		return nil, err
	}
	return toItems(r.Name(), "cosine", ns), nil
}

// MF 是隐因子召回：对用户未玩过的物品按预测参与度排序。
// 没有训练观测的用户（或快照中没有隐因子模型）返回 UnknownUser，由调用方决定是否降级。
type MF struct {
	K int
}

func (r *MF) Name() string        { return "recall.mf" }
func (r *MF) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *MF) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *MF) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	set, err := snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if set.MF == nil {
		return nil, core.ErrUnknownUser(core.ModuleMF, rctx.UserID)
	}
	ns, err := set.MF.Recommend(rctx.UserID, r.K)
	if err != nil {
		return nil, err
	}
	return toItems(r.Name(), "predicted", ns), nil
}

var (
	_ Source = (*ItemCF)(nil)
	_ Source = (*Content)(nil)
	_ Source = (*Text)(nil)
	_ Source = (*MF)(nil)
	_ Source = (*Hot)(nil)

	_ pipeline.Node = (*ItemCF)(nil)
	_ pipeline.Node = (*Content)(nil)
	_ pipeline.Node = (*Text)(nil)
	_ pipeline.Node = (*MF)(nil)
	_ pipeline.Node = (*Hot)(nil)
	_ pipeline.Node = (*Fanout)(nil)
)
