package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/playrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 按表达式文本缓存编译结果
	programs sync.Map
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Expr 是编译好的结果过滤表达式，使用 CEL (Common Expression Language)。
//
// 可用变量：
//   - item.id / item.score / item.features / item.evidence.play_count /
//     item.evidence.mean_engagement / item.evidence.shared_features
//   - label.recall_source（按名称访问 Label 的 value）
//   - rctx.user_id / rctx.scene / rctx.params
//
// 示例：
//   - `item.evidence.play_count > 100`
//   - `label.recall_source.contains("mf") && item.score >= 2.5`
//   - `"indie" in item.evidence.shared_features`
type Expr struct {
	src string
	prg cel.Program
}

// Compile 编译表达式；相同文本只编译一次。
func Compile(expr string) (*Expr, error) {
	if cached, ok := programs.Load(expr); ok {
		return cached.(*Expr), nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	e := &Expr{src: expr, prg: prg}
	programs.Store(expr, e)
	return e, nil
}

func (e *Expr) String() string { return e.src }

// Eval 在单个 item 上执行表达式，表达式必须返回 bool。
func (e *Expr) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 key 会报错，应使用 label.key != null 判断存在性
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Evaluate 编译并执行表达式，空表达式视为 true。
func Evaluate(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if expr == "" {
		return true, nil
	}
	e, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return e.Eval(item, rctx)
}

func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		labels[k] = v.Value
	}

	evidence := map[string]any{
		"play_count":      0,
		"mean_engagement": 0.0,
		"shared_features": []string{},
		"sources":         []string{},
	}
	if ev := it.Evidence; ev != nil {
		evidence["play_count"] = ev.PlayCount
		evidence["mean_engagement"] = ev.MeanEngagement
		if ev.SharedFeatures != nil {
			evidence["shared_features"] = ev.SharedFeatures
		}
		if ev.Sources != nil {
			evidence["sources"] = ev.Sources
		}
	}

	features := it.Features
	if features == nil {
		features = map[string]float64{}
	}
	item := map[string]any{
		"id":       it.ID,
		"score":    it.Score,
		"features": features,
		"evidence": evidence,
	}

	rc := map[string]any{
		"user_id": "",
		"scene":   "",
		"params":  map[string]any{},
	}
	if rctx != nil {
		rc["user_id"] = rctx.UserID
		rc["scene"] = rctx.Scene
		if rctx.Params != nil {
			rc["params"] = rctx.Params
		}
	}

	return map[string]any{
		"item":  item,
		"label": labels,
		"rctx":  rc,
	}
}
