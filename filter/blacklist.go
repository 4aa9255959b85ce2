package filter

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/rushteam/playrec/core"
)

// BlacklistFilter 是黑名单过滤器，名称按大小写不敏感匹配。
type BlacklistFilter struct {
	// ItemIDs 是内存中的黑名单物品列表
	ItemIDs []string

	// ExcludeQuery 为 true 时把请求中的查询物品（liked item）也视为黑名单
	ExcludeQuery bool

	// Store 与 Key 可选：Key 对应的值是物品名称的 JSON 数组
	Store core.Store
	Key   string
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	if f.ExcludeQuery && rctx != nil {
		if q := rctx.QueryItem(); q != "" && sameItem(item.ID, q) {
			return true, nil
		}
	}

	for _, id := range f.ItemIDs {
		if sameItem(item.ID, id) {
			return true, nil
		}
	}

	if f.Store != nil && f.Key != "" {
		data, err := f.Store.Get(ctx, f.Key)
		if err != nil {
			if core.IsStoreNotFound(err) {
				return false, nil
			}
			return false, err
		}
		var blacklist []string
		if err := json.Unmarshal(data, &blacklist); err != nil {
			return false, err
		}
		for _, id := range blacklist {
			if sameItem(item.ID, id) {
				return true, nil
			}
		}
	}

	return false, nil
}
