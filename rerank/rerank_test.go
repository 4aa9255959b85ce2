package rerank

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/playrec/catalog"
	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/interaction"
	"github.com/rushteam/playrec/model"
	"github.com/rushteam/playrec/pkg/utils"
)

func scored(pairs ...any) []*core.Item {
	var out []*core.Item
	for i := 0; i+1 < len(pairs); i += 2 {
		it := core.NewItem(pairs[i].(string))
		it.Score = pairs[i+1].(float64)
		out = append(out, it)
	}
	return out
}

func ids(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func testSet(t *testing.T) *model.Set {
	t.Helper()
	m, pop, err := interaction.Aggregate([]core.InteractionRecord{
		{UserID: "u1", ItemID: "Portal", Action: core.ActionPlay, Amount: 4},
		{UserID: "u2", ItemID: "Portal", Action: core.ActionPlay, Amount: 2},
		{UserID: "u1", ItemID: "Dota 2", Action: core.ActionPlay, Amount: 10},
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	cat := catalog.New([]core.ItemProfile{
		{Name: "Portal", Genres: []string{"Puzzle"}, Developer: "Valve"},
		{Name: "Portal 2", Genres: []string{"Puzzle", "Action"}, Developer: "Valve"},
		{Name: "Dota 2", Genres: []string{"Strategy"}, Developer: "Valve"},
		{Name: "Braid", Genres: []string{"Puzzle"}, Developer: "Number None"},
	})
	content, err := model.FitContent(context.Background(), cat)
	if err != nil {
		t.Fatalf("FitContent() error = %v", err)
	}
	return &model.Set{
		Matrix:     m,
		Popularity: pop,
		Catalog:    cat,
		Joined:     m.Restrict(cat.Resolve),
		Content:    content,
	}
}

func TestTopNNode(t *testing.T) {
	tests := []struct {
		name string
		node *TopNNode
		rctx *core.RecommendContext
		want int
	}{
		{"fixed", &TopNNode{N: 2}, nil, 2},
		{"from request", &TopNNode{}, &core.RecommendContext{Params: map[string]any{core.ParamTopN: 1}}, 1},
		{"no limit", &TopNNode{}, &core.RecommendContext{}, 3},
		{"larger than input", &TopNNode{N: 10}, nil, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.node.Process(context.Background(), tt.rctx, scored("a", 3.0, "b", 2.0, "c", 1.0))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Process() returned %d items, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSortNode(t *testing.T) {
	got, _ := (&SortNode{}).Process(context.Background(), nil, scored("Zeta", 1.0, "Beta", 2.0, "Alpha", 1.0))
	if want := []string{"Beta", "Alpha", "Zeta"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("Process() = %v, want %v", ids(got), want)
	}
}

func TestExplainNode(t *testing.T) {
	ctx := model.NewContext(context.Background(), testSet(t))

	items := scored("Portal 2", 2.5, "Dota 2", 1.0)
	items[0].PutLabel("recall_source", utils.Label{Value: "recall.content", Source: "recall"})
	items[0].PutLabel("recall_source", utils.Label{Value: "recall.mf", Source: "recall"})

	rctx := &core.RecommendContext{Params: map[string]any{core.ParamItem: "portal"}}
	got, err := (&ExplainNode{Mode: ExplainItem}).Process(ctx, rctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	ev := got[0].Evidence
	if ev == nil {
		t.Fatalf("Evidence not set")
	}
	if want := []string{"puzzle", "valve"}; !reflect.DeepEqual(ev.SharedFeatures, want) {
		t.Errorf("SharedFeatures = %v, want %v", ev.SharedFeatures, want)
	}
	if want := []string{"recall.content", "recall.mf"}; !reflect.DeepEqual(ev.Sources, want) {
		t.Errorf("Sources = %v, want %v", ev.Sources, want)
	}
	if ev.PlayCount != 0 {
		t.Errorf("PlayCount(Portal 2) = %d, want 0", ev.PlayCount)
	}
	if d := got[1].Evidence; d.PlayCount != 1 || d.MeanEngagement != 10 {
		t.Errorf("Evidence(Dota 2) = %+v, want 1 player with mean 10", d)
	}

	text := &core.RecommendContext{Params: map[string]any{core.ParamText: "strategy games"}}
	got, _ = (&ExplainNode{Mode: ExplainText}).Process(ctx, text, scored("Dota 2", 1.0))
	if want := []string{"strategy"}; !reflect.DeepEqual(got[0].Evidence.SharedFeatures, want) {
		t.Errorf("SharedFeatures(text) = %v, want %v", got[0].Evidence.SharedFeatures, want)
	}

	if _, err := (&ExplainNode{}).Process(context.Background(), rctx, items); !core.IsUnavailable(err) {
		t.Errorf("Process(no snapshot) error = %v, want Unavailable", err)
	}
}

func TestDiversity(t *testing.T) {
	ctx := model.NewContext(context.Background(), testSet(t))
	in := scored("Portal 2", 3.0, "Dota 2", 2.0, "Braid", 1.5, "Unknown", 1.0)

	got, err := (&Diversity{}).Process(ctx, nil, in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if want := []string{"Portal 2", "Braid", "Unknown"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("Process() = %v, want %v", ids(got), want)
	}

	got, _ = (&Diversity{MaxPerKey: 2}).Process(ctx, nil, in)
	if len(got) != 4 {
		t.Errorf("Process(max 2) = %v, want all 4", ids(got))
	}
}
