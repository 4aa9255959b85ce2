package engine

import (
	"fmt"

	"github.com/rushteam/playrec/config"
	_ "github.com/rushteam/playrec/config/builders"
	"github.com/rushteam/playrec/filter"
	"github.com/rushteam/playrec/pipeline"
	"github.com/rushteam/playrec/recall"
	"github.com/rushteam/playrec/rerank"
)

// 内置策略名称，同时是 pipeline 配置文件中的 name。
const (
	StrategyCF      = "cf"
	StrategyContent = "content"
	StrategyText    = "text"
	StrategyHybrid  = "hybrid"
	StrategyPopular = "popular"
)

func node(typ string, cfg map[string]any) pipeline.NodeConfig {
	return pipeline.NodeConfig{Type: typ, Config: cfg}
}

// finish 是各策略共用的尾部：配置了查询表达式时先补充解释再过滤，最后截断；
// 否则先截断再解释，只为返回的结果计算共有特征。
func finish(mode, expr string) []pipeline.NodeConfig {
	explain := node("rerank.explain", map[string]any{"mode": mode})
	topn := node("rerank.topn", nil)
	if expr == "" {
		return []pipeline.NodeConfig{topn, explain}
	}
	exprFilter := node("filter", map[string]any{
		"filters": []any{map[string]any{"type": "expr", "expr": expr}},
		"strict":  true,
	})
	return []pipeline.NodeConfig{explain, exprFilter, topn}
}

// defaultSpecs 返回内置策略的 pipeline 配置，结构与 YAML 配置完全一致。
func defaultSpecs(s *config.Settings) []pipeline.Spec {
	expr := s.Query.Expr
	return []pipeline.Spec{
		{
			Name: StrategyCF,
			Nodes: append([]pipeline.NodeConfig{
				node("recall.i2i", map[string]any{"min_support": s.CF.MinSupport}),
			}, finish(rerank.ExplainItem, expr)...),
		},
		{
			Name: StrategyContent,
			Nodes: append([]pipeline.NodeConfig{
				node("recall.content", nil),
			}, finish(rerank.ExplainItem, expr)...),
		},
		{
			Name: StrategyText,
			Nodes: append([]pipeline.NodeConfig{
				node("recall.text", nil),
			}, finish(rerank.ExplainText, expr)...),
		},
		{
			Name: StrategyHybrid,
			Nodes: append([]pipeline.NodeConfig{
				node("recall.fanout", map[string]any{
					"sources": []any{
						map[string]any{"type": "content", "k": s.Hybrid.ContentCandidates},
						map[string]any{"type": "mf", "k": s.Hybrid.CollabCandidates},
					},
					"merge_strategy": "fusion",
					"weights": map[string]float64{
						"content": s.Hybrid.ContentWeight,
						"mf":      s.Hybrid.CollabWeight,
					},
					"strict": true,
				}),
				node("filter", map[string]any{
					"filters": []any{map[string]any{"type": "blacklist", "exclude_query": true}},
				}),
			}, finish(rerank.ExplainItem, expr)...),
		},
		{
			Name: StrategyPopular,
			Nodes: append([]pipeline.NodeConfig{
				node("recall.hot", map[string]any{"prefix": s.Popularity.Prefix, "k": 100}),
				node("filter", map[string]any{
					"filters": []any{map[string]any{"type": "played"}},
				}),
			}, finish(rerank.ExplainNone, expr)...),
		},
	}
}

// buildPipelines 构建内置策略，再用配置文件中的同名 pipeline 覆盖或追加新策略。
func (e *Engine) buildPipelines() (map[string]*pipeline.Pipeline, error) {
	specs := defaultSpecs(e.settings)
	if path := e.settings.Pipelines; path != "" {
		f, err := pipeline.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("engine: load pipelines: %w", err)
		}
		specs = append(specs, f.Pipelines...)
		e.logger.Info().Str("path", path).Int("pipelines", len(f.Pipelines)).Msg("pipeline overrides loaded")
	}

	factory := config.DefaultFactory()
	out := make(map[string]*pipeline.Pipeline, len(specs))
	for _, spec := range specs {
		if err := config.ValidateSpec(spec); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		p, err := spec.Build(factory)
		if err != nil {
			return nil, fmt.Errorf("engine: pipeline %s: %w", spec.Name, err)
		}
		e.attachStore(p.Nodes)
		out[spec.Name] = p
	}
	return out, nil
}

// attachStore 把引擎的存储交给需要外部存储但配置中无法表达连接的节点。
func (e *Engine) attachStore(nodes []pipeline.Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *recall.Hot:
			if v.Store == nil {
				v.Store = e.kv
			}
		case *recall.Fanout:
			for _, src := range v.Sources {
				if hot, ok := src.(*recall.Hot); ok && hot.Store == nil {
					hot.Store = e.kv
				}
			}
		case *filter.FilterNode:
			for _, f := range v.Filters {
				if bl, ok := f.(*filter.BlacklistFilter); ok && bl.Key != "" && bl.Store == nil {
					bl.Store = e.kv
				}
			}
		}
	}
}
