package filter

import (
	"context"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述保留条件：表达式为 true 的物品保留，false 的过滤。
//
// 例：item.evidence.play_count >= 5 && item.id != "Dota 2"
type ExprFilter struct {
	expr *dsl.Expr
}

// NewExprFilter 编译表达式，语法错误在构建阶段返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	e, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "filter.expr: "+err.Error())
	}
	return &ExprFilter{expr: e}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

// Expr 返回原始表达式。
func (f *ExprFilter) Expr() string { return f.expr.String() }

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	keep, err := f.expr.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
