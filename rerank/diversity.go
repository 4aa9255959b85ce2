package rerank

import (
	"context"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/model"
	"github.com/rushteam/playrec/pipeline"
)

// Diversity 是按目录属性打散的 ReRank：同一开发商（或发行商）最多保留 MaxPerKey 个，
// 保持原有顺序。目录中找不到的物品不受限制。
type Diversity struct {
	Field     string // developer（默认）或 publisher
	MaxPerKey int    // 默认 1
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) key(set *model.Set, id string) string {
	p, ok := set.Catalog.Get(id)
	if !ok {
		return ""
	}
	if n.Field == "publisher" {
		return core.NormalizeKey(p.Publisher)
	}
	return core.NormalizeKey(p.Developer)
}

func (n *Diversity) Process(
	ctx context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	set, ok := model.FromContext(ctx)
	if !ok {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "rerank.diversity: model snapshot not available")
	}
	limit := n.MaxPerKey
	if limit <= 0 {
		limit = 1
	}

	seen := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		k := n.key(set, it.ID)
		if k == "" {
			out = append(out, it)
			continue
		}
		if seen[k] >= limit {
			continue
		}
		seen[k]++
		out = append(out, it)
	}
	return out, nil
}
