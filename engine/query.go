package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/interaction"
	"github.com/rushteam/playrec/model"
)

// Status 是查询结果的状态码。
type Status string

const (
	StatusOK          Status = "ok"
	StatusNotFound    Status = "not_found"
	StatusNoData      Status = "no_data"
	StatusNoMatch     Status = "no_match"
	StatusUnavailable Status = "unavailable"
	StatusInvalid     Status = "invalid"
	StatusInternal    Status = "internal"
)

// Request 是一次推荐请求。Item / Text 按策略需要填写。
type Request struct {
	Strategy string
	UserID   string
	Item     string
	Text     string
	// TopN <= 0 时使用配置的默认条数
	TopN int
}

// Result 是查询结果。Status 不为 ok 时 Message 说明原因，Items 为空。
type Result struct {
	Strategy  string       `json:"strategy"`
	Status    Status       `json:"status"`
	Message   string       `json:"message,omitempty"`
	Items     []*core.Item `json:"items"`
	RequestID string       `json:"request_id"`
	Version   uint64       `json:"version"`

	// QueryStats 是查询物品自身的热度（如 liked item 的玩家数），无查询物品时为空
	QueryStats *interaction.Stats `json:"query_stats,omitempty"`
}

// OK 报告查询是否成功。
func (r *Result) OK() bool { return r.Status == StatusOK }

// RecommendCF 返回与 item 游玩时长相关性最高的物品。
func (e *Engine) RecommendCF(ctx context.Context, item string, n int) *Result {
	return e.Recommend(ctx, Request{Strategy: StrategyCF, Item: item, TopN: n})
}

// RecommendContent 返回与 item 内容最相似的物品。
func (e *Engine) RecommendContent(ctx context.Context, item string, n int) *Result {
	return e.Recommend(ctx, Request{Strategy: StrategyContent, Item: item, TopN: n})
}

// RecommendByText 把自由文本作为冷启动查询，返回内容最相似的物品。
func (e *Engine) RecommendByText(ctx context.Context, text string, n int) *Result {
	return e.Recommend(ctx, Request{Strategy: StrategyText, Text: text, TopN: n})
}

// RecommendHybrid 融合内容相似与隐因子预测；冷用户只使用内容候选。
func (e *Engine) RecommendHybrid(ctx context.Context, userID, likedItem string, n int) *Result {
	return e.Recommend(ctx, Request{Strategy: StrategyHybrid, UserID: userID, Item: likedItem, TopN: n})
}

// RecommendPopular 返回用户未玩过的热门物品，用于冷启动兜底。
func (e *Engine) RecommendPopular(ctx context.Context, userID string, n int) *Result {
	return e.Recommend(ctx, Request{Strategy: StrategyPopular, UserID: userID, TopN: n})
}

// Recommend 按策略执行 pipeline。不返回 error，也不会 panic：所有失败都映射为 Status。
func (e *Engine) Recommend(ctx context.Context, req Request) (res *Result) {
	res = &Result{Strategy: req.Strategy, RequestID: uuid.NewString(), Items: []*core.Item{}}
	log := e.logger.With().Str("request_id", res.RequestID).Str("strategy", req.Strategy).Logger()

	start := time.Now()
	strategy := req.Strategy
	if _, ok := e.pipelines[strategy]; !ok {
		strategy = "unknown"
	}
	defer func() { e.metrics.observeQuery(strategy, res.Status, start) }()

	defer func() {
		if r := recover(); r != nil {
			res.Status, res.Message, res.Items = StatusInternal, "internal error", []*core.Item{}
			log.Error().Interface("panic", r).Msg("query panicked")
		}
	}()

	fail := func(status Status, err error) *Result {
		res.Status, res.Message = status, err.Error()
		log.Debug().Err(err).Str("status", string(status)).Msg("query failed")
		return res
	}

	p, ok := e.pipelines[req.Strategy]
	if !ok {
		return fail(StatusInvalid, fmt.Errorf("unknown strategy %q", req.Strategy))
	}
	if err := validate(req); err != nil {
		return fail(StatusInvalid, err)
	}
	set := e.snap.Load()
	if set == nil {
		return fail(StatusUnavailable, errors.New("models not built"))
	}
	res.Version = set.Version

	n := req.TopN
	if n <= 0 {
		n = e.settings.Query.DefaultTopN
	}
	rctx := &core.RecommendContext{
		UserID:    req.UserID,
		Scene:     req.Strategy,
		RequestID: res.RequestID,
		Params: map[string]any{
			core.ParamItem: req.Item,
			core.ParamText: req.Text,
			core.ParamTopN: n,
		},
	}

	items, err := p.Run(model.NewContext(ctx, set), rctx, nil)
	if err != nil {
		return fail(statusOf(err), err)
	}
	if name, ok := set.Resolve(req.Item); ok {
		st := set.Stats(name)
		res.QueryStats = &st
	}
	if len(items) == 0 {
		return fail(StatusNoMatch, core.ErrNoMatch(core.ModuleEngine, queryOf(req)))
	}

	res.Status, res.Items = StatusOK, items
	log.Debug().Int("items", len(items)).Msg("query served")
	return res
}

func validate(req Request) error {
	switch req.Strategy {
	case StrategyCF, StrategyContent, StrategyHybrid:
		if strings.TrimSpace(req.Item) == "" {
			return errors.New("item is required")
		}
	}
	if req.TopN < 0 {
		return fmt.Errorf("top_n must not be negative, got %d", req.TopN)
	}
	return nil
}

func queryOf(req Request) string {
	if req.Item != "" {
		return req.Item
	}
	return req.Text
}

// statusOf 把领域错误映射为状态码。
func statusOf(err error) Status {
	switch {
	case core.IsItemNotFound(err), core.IsNotFound(err):
		return StatusNotFound
	case core.IsNoData(err):
		return StatusNoData
	case core.IsNoMatch(err):
		return StatusNoMatch
	case core.IsUnavailable(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusUnavailable
	case core.IsInvalidInput(err):
		return StatusInvalid
	}
	return StatusInternal
}
