package builders

import (
	"fmt"
	"strings"
	"time"

	"github.com/rushteam/playrec/config"
	"github.com/rushteam/playrec/filter"
	"github.com/rushteam/playrec/model"
	"github.com/rushteam/playrec/pipeline"
	"github.com/rushteam/playrec/pkg/conv"
	"github.com/rushteam/playrec/recall"
	"github.com/rushteam/playrec/rerank"
)

func init() {
	config.Register("recall.fanout", BuildFanoutNode)
	config.Register("recall.i2i", BuildItemCFNode)
	config.Register("recall.content", BuildContentNode)
	config.Register("recall.text", BuildTextNode)
	config.Register("recall.mf", BuildMFNode)
	config.Register("recall.hot", BuildHotNode)
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.sort", BuildSortNode)
	config.Register("rerank.explain", BuildExplainNode)
	config.Register("rerank.diversity", BuildDiversityNode)
}

// sourceBuilders 是 Fanout 中可用的召回源，type 使用短名。
var sourceBuilders = map[string]func(map[string]any) (recall.Source, error){
	"i2i":     func(c map[string]any) (recall.Source, error) { return buildItemCF(c), nil },
	"content": func(c map[string]any) (recall.Source, error) { return &recall.Content{K: intOf(c, "k", 0)}, nil },
	"text":    func(c map[string]any) (recall.Source, error) { return &recall.Text{K: intOf(c, "k", 0)}, nil },
	"mf":      func(c map[string]any) (recall.Source, error) { return &recall.MF{K: intOf(c, "k", 0)}, nil },
	"hot":     func(c map[string]any) (recall.Source, error) { return buildHot(c) },
}

func intOf(cfg map[string]any, key string, def int) int {
	return int(conv.ConfigGetInt64(cfg, key, int64(def)))
}

// maps 读取 YAML 解析出的 map 列表，非 map 元素忽略。
func maps(v any) []map[string]any {
	switch list := v.(type) {
	case []map[string]any:
		return list
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, e := range list {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// sourceName 把 weights 中的短名（content）补全为召回源名称（recall.content）。
func sourceName(key string) string {
	if strings.Contains(key, ".") {
		return key
	}
	return "recall." + key
}

func BuildFanoutNode(cfg map[string]any) (pipeline.Node, error) {
	sourcesConfig := maps(cfg["sources"])
	if len(sourcesConfig) == 0 {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceType := conv.ConfigGet(sc, "type", "")
		build, ok := sourceBuilders[sourceType]
		if !ok {
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
		src, err := build(sc)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sourceType, err)
		}
		sources = append(sources, src)
	}

	fanout := &recall.Fanout{Sources: sources}
	if ms := conv.ConfigGetInt64(cfg, "timeout_ms", 0); ms > 0 {
		fanout.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	if conv.ConfigGet(cfg, "strict", false) {
		fanout.ErrorHandler = recall.FailFast
	}

	switch strategy := conv.ConfigGet(cfg, "merge_strategy", ""); strategy {
	case "priority":
		fanout.MergeStrategy = &recall.PriorityMergeStrategy{}
	case "union":
		fanout.MergeStrategy = &recall.UnionMergeStrategy{}
	case "fusion":
		fusion := &recall.RankFusionMergeStrategy{
			Weights:       make(map[string]float64),
			DefaultWeight: conv.ConfigGetFloat64(cfg, "default_weight", 1.0),
		}
		switch weights := cfg["weights"].(type) {
		case map[string]any:
			for k := range weights {
				fusion.Weights[sourceName(k)] = conv.ConfigGetFloat64(weights, k, fusion.DefaultWeight)
			}
		case map[string]float64:
			for k, w := range weights {
				fusion.Weights[sourceName(k)] = w
			}
		}
		fanout.MergeStrategy = fusion
	case "", "first":
		fanout.MergeStrategy = &recall.FirstMergeStrategy{}
	default:
		return nil, fmt.Errorf("unknown merge strategy: %s", strategy)
	}
	return fanout, nil
}

func buildItemCF(cfg map[string]any) *recall.ItemCF {
	return &recall.ItemCF{
		K:          intOf(cfg, "k", 0),
		MinSupport: intOf(cfg, "min_support", model.DefaultMinSupport),
	}
}

func buildHot(cfg map[string]any) (*recall.Hot, error) {
	metric := conv.ConfigGet(cfg, "metric", recall.MetricCount)
	if metric != recall.MetricCount && metric != recall.MetricMean {
		return nil, fmt.Errorf("unknown hot metric: %s", metric)
	}
	return &recall.Hot{
		Prefix: conv.ConfigGet(cfg, "prefix", ""),
		Metric: metric,
		K:      intOf(cfg, "k", 0),
	}, nil
}

func BuildItemCFNode(cfg map[string]any) (pipeline.Node, error) {
	return buildItemCF(cfg), nil
}

func BuildContentNode(cfg map[string]any) (pipeline.Node, error) {
	return &recall.Content{K: intOf(cfg, "k", 0)}, nil
}

func BuildTextNode(cfg map[string]any) (pipeline.Node, error) {
	return &recall.Text{K: intOf(cfg, "k", 0)}, nil
}

func BuildMFNode(cfg map[string]any) (pipeline.Node, error) {
	return &recall.MF{K: intOf(cfg, "k", 0)}, nil
}

func BuildHotNode(cfg map[string]any) (pipeline.Node, error) {
	return buildHot(cfg)
}

func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig := maps(cfg["filters"])
	if len(filtersConfig) == 0 {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterType := conv.ConfigGet(fc, "type", "")
		switch filterType {
		case "blacklist":
			filters = append(filters, &filter.BlacklistFilter{
				ItemIDs:      conv.SliceAnyToString(fc["item_ids"]),
				ExcludeQuery: conv.ConfigGet(fc, "exclude_query", false),
				Key:          conv.ConfigGet(fc, "key", ""),
			})
		case "played":
			filters = append(filters, &filter.PlayedFilter{})
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(fc, "expr", ""))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters, Strict: conv.ConfigGet(cfg, "strict", false)}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: intOf(cfg, "n", 0)}, nil
}

func BuildSortNode(map[string]any) (pipeline.Node, error) {
	return &rerank.SortNode{}, nil
}

func BuildExplainNode(cfg map[string]any) (pipeline.Node, error) {
	mode := conv.ConfigGet(cfg, "mode", rerank.ExplainNone)
	switch mode {
	case rerank.ExplainNone, rerank.ExplainItem, rerank.ExplainText:
		return &rerank.ExplainNode{Mode: mode}, nil
	}
	return nil, fmt.Errorf("unknown explain mode: %s", mode)
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	field := conv.ConfigGet(cfg, "field", "developer")
	if field != "developer" && field != "publisher" {
		return nil, fmt.Errorf("unknown diversity field: %s", field)
	}
	return &rerank.Diversity{Field: field, MaxPerKey: intOf(cfg, "max_per_key", 1)}, nil
}
