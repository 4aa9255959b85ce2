package builders

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/playrec/config"
	"github.com/rushteam/playrec/filter"
	"github.com/rushteam/playrec/pipeline"
	"github.com/rushteam/playrec/recall"
	"github.com/rushteam/playrec/rerank"
)

const hybridYAML = `
pipeline:
  name: hybrid
  nodes:
    - type: recall.fanout
      config:
        merge_strategy: fusion
        strict: true
        timeout_ms: 500
        sources:
          - type: content
            k: 10
          - type: mf
            k: 10
        weights:
          content: 1
          recall.mf: 1.5
    - type: filter
      config:
        filters:
          - type: blacklist
            exclude_query: true
          - type: expr
            expr: "item.score > 0.0"
    - type: rerank.sort
    - type: rerank.topn
      config:
        n: 5
    - type: rerank.explain
      config:
        mode: item
`

func TestBuildHybridFromYAML(t *testing.T) {
	var cfg pipeline.Config
	if err := yaml.Unmarshal([]byte(hybridYAML), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if err := config.ValidatePipelineConfig(&cfg); err != nil {
		t.Fatalf("ValidatePipelineConfig() error = %v", err)
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}
	if p.Name != "hybrid" || len(p.Nodes) != 5 {
		t.Fatalf("BuildPipeline() = %s with %d nodes, want hybrid with 5", p.Name, len(p.Nodes))
	}

	fanout, ok := p.Nodes[0].(*recall.Fanout)
	if !ok {
		t.Fatalf("node 0 = %T, want *recall.Fanout", p.Nodes[0])
	}
	if len(fanout.Sources) != 2 || fanout.ErrorHandler == nil || fanout.Timeout.Milliseconds() != 500 {
		t.Errorf("fanout = %+v", fanout)
	}
	if c, ok := fanout.Sources[0].(*recall.Content); !ok || c.K != 10 {
		t.Errorf("source 0 = %#v, want content with k 10", fanout.Sources[0])
	}
	fusion, ok := fanout.MergeStrategy.(*recall.RankFusionMergeStrategy)
	if !ok {
		t.Fatalf("merge strategy = %T, want rank fusion", fanout.MergeStrategy)
	}
	if fusion.Weights["recall.content"] != 1 || fusion.Weights["recall.mf"] != 1.5 {
		t.Errorf("weights = %v", fusion.Weights)
	}

	fn, ok := p.Nodes[1].(*filter.FilterNode)
	if !ok || len(fn.Filters) != 2 {
		t.Fatalf("node 1 = %#v, want filter node with 2 filters", p.Nodes[1])
	}
	if bl, ok := fn.Filters[0].(*filter.BlacklistFilter); !ok || !bl.ExcludeQuery {
		t.Errorf("filter 0 = %#v, want blacklist excluding query", fn.Filters[0])
	}
	if topn, ok := p.Nodes[3].(*rerank.TopNNode); !ok || topn.N != 5 {
		t.Errorf("node 3 = %#v, want topn 5", p.Nodes[3])
	}
	if ex, ok := p.Nodes[4].(*rerank.ExplainNode); !ok || ex.Mode != rerank.ExplainItem {
		t.Errorf("node 4 = %#v, want explain item", p.Nodes[4])
	}
}

func TestBuildersRejectInvalidConfig(t *testing.T) {
	factory := config.DefaultFactory()
	tests := []struct {
		name     string
		nodeType string
		cfg      map[string]any
	}{
		{"fanout without sources", "recall.fanout", map[string]any{}},
		{"unknown source", "recall.fanout", map[string]any{"sources": []any{map[string]any{"type": "ann"}}}},
		{"unknown merge", "recall.fanout", map[string]any{
			"sources":        []any{map[string]any{"type": "content"}},
			"merge_strategy": "random",
		}},
		{"bad hot metric", "recall.hot", map[string]any{"metric": "revenue"}},
		{"unknown filter", "filter", map[string]any{"filters": []any{map[string]any{"type": "exposed"}}}},
		{"bad expr", "filter", map[string]any{"filters": []any{map[string]any{"type": "expr", "expr": "item.score >"}}}},
		{"bad explain mode", "rerank.explain", map[string]any{"mode": "why"}},
		{"bad diversity field", "rerank.diversity", map[string]any{"field": "genre"}},
		{"unregistered", "rank.lr", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := factory.Build(tt.nodeType, tt.cfg); err == nil {
				t.Errorf("Build(%s) error = nil", tt.nodeType)
			}
		})
	}
}

func TestBuildDefaults(t *testing.T) {
	factory := config.DefaultFactory()

	n, err := factory.Build("recall.i2i", nil)
	if err != nil {
		t.Fatalf("Build(recall.i2i) error = %v", err)
	}
	if cf := n.(*recall.ItemCF); cf.MinSupport != 100 || cf.K != 0 {
		t.Errorf("recall.i2i defaults = %+v", cf)
	}

	n, err = factory.Build("recall.hot", map[string]any{"prefix": "pop", "metric": "mean", "k": 20})
	if err != nil {
		t.Fatalf("Build(recall.hot) error = %v", err)
	}
	if hot := n.(*recall.Hot); hot.Prefix != "pop" || hot.Metric != recall.MetricMean || hot.K != 20 {
		t.Errorf("recall.hot = %+v", hot)
	}

	if err := config.ValidateSpec(pipeline.Spec{Name: "x", Nodes: []pipeline.NodeConfig{{Type: "rank.lr"}}}); err == nil {
		t.Errorf("ValidateSpec(unregistered) error = nil")
	}
}
