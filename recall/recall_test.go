package recall

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/playrec/catalog"
	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/interaction"
	"github.com/rushteam/playrec/model"
	"github.com/rushteam/playrec/store"
)

type stubSource struct {
	name string
	ids  []string
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Recall(_ context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, 0, len(s.ids))
	for i, id := range s.ids {
		it := core.NewItem(id)
		it.Score = float64(len(s.ids) - i)
		out = append(out, it)
	}
	return out, nil
}

func itemIDs(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func play(user, item string, hours float64) core.InteractionRecord {
	return core.InteractionRecord{UserID: user, ItemID: item, Action: core.ActionPlay, Amount: hours}
}

func testSet(t *testing.T) *model.Set {
	t.Helper()
	ctx := context.Background()
	m, pop, err := interaction.Aggregate([]core.InteractionRecord{
		play("u1", "A", 10), play("u1", "B", 8),
		play("u2", "A", 9), play("u2", "B", 7), play("u2", "C", 1),
		play("u3", "C", 12), play("u3", "D", 10),
		play("u4", "C", 11), play("u4", "D", 9), play("u4", "A", 2),
	})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	cat := catalog.New([]core.ItemProfile{
		{Name: "A", Genres: []string{"Action", "Indie"}},
		{Name: "B", Genres: []string{"Action"}},
		{Name: "C", Genres: []string{"Puzzle"}},
		{Name: "D", Genres: []string{"Puzzle", "Indie"}},
	})
	joined := m.Restrict(cat.Resolve)
	content, err := model.FitContent(ctx, cat)
	if err != nil {
		t.Fatalf("FitContent() error = %v", err)
	}
	cfg := model.DefaultLatentFactorConfig()
	cfg.Factors = 4
	mf, err := model.FitLatentFactor(ctx, joined, cfg)
	if err != nil {
		t.Fatalf("FitLatentFactor() error = %v", err)
	}
	return &model.Set{
		Matrix:     m,
		Popularity: pop,
		Catalog:    cat,
		Joined:     joined,
		CF:         model.NewItemCF(m, pop),
		Content:    content,
		MF:         mf,
	}
}

func TestFanoutRankFusion(t *testing.T) {
	f := &Fanout{
		Sources: []Source{
			&stubSource{name: "recall.content", ids: []string{"X", "Y"}},
			&stubSource{name: "recall.mf", ids: []string{"Y", "Z"}},
		},
		MergeStrategy: &RankFusionMergeStrategy{
			Weights: map[string]float64{"recall.content": 1.0, "recall.mf": 1.5},
		},
	}
	got, err := f.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if want := []string{"Y", "Z", "X"}; !reflect.DeepEqual(itemIDs(got), want) {
		t.Fatalf("Process() = %v, want %v", itemIDs(got), want)
	}
	wantScores := []float64{2.5, 1.5, 1.0}
	for i, it := range got {
		if it.Score != wantScores[i] {
			t.Errorf("score(%s) = %v, want %v", it.ID, it.Score, wantScores[i])
		}
	}
}

func TestRankFusionTieBreakByID(t *testing.T) {
	s := &RankFusionMergeStrategy{DefaultWeight: 1}
	got := s.Merge([]Batch{
		{Source: "a", Items: []*core.Item{core.NewItem("Zeta"), core.NewItem("Alpha")}},
		{Source: "b", Items: []*core.Item{core.NewItem("Mid"), core.NewItem("Mid")}},
	})
	if want := []string{"Alpha", "Mid", "Zeta"}; !reflect.DeepEqual(itemIDs(got), want) {
		t.Errorf("Merge() = %v, want %v", itemIDs(got), want)
	}
	for _, it := range got {
		if it.Score != 1 {
			t.Errorf("score(%s) = %v, want 1", it.ID, it.Score)
		}
	}
}

func TestMergeStrategies(t *testing.T) {
	batches := func() []Batch {
		a := core.NewItem("B")
		a.Score = 1
		b := core.NewItem("A")
		b.Score = 2
		c := core.NewItem("B")
		c.Score = 9
		d := core.NewItem("C")
		d.Score = 5
		return []Batch{
			{Source: "low", Priority: 1, Items: []*core.Item{c, d}},
			{Source: "high", Priority: 0, Items: []*core.Item{a, b}},
		}
	}

	tests := []struct {
		name     string
		strategy MergeStrategy
		want     []string
	}{
		{"first", &FirstMergeStrategy{}, []string{"B", "C", "A"}},
		{"union", &UnionMergeStrategy{}, []string{"B", "C", "B", "A"}},
		{"priority", &PriorityMergeStrategy{}, []string{"A", "B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.strategy.Merge(batches())
			if !reflect.DeepEqual(itemIDs(got), tt.want) {
				t.Errorf("Merge() = %v, want %v", itemIDs(got), tt.want)
			}
		})
	}
}

func TestFanoutErrorHandling(t *testing.T) {
	coldUser := core.ErrUnknownUser(core.ModuleMF, "ghost")
	missing := core.ErrItemNotFound(core.ModuleContent, "Nope")

	tests := []struct {
		name    string
		handler ErrorHandler
		err     error
		wantErr bool
		want    []string
	}{
		{"default ignores", nil, missing, false, []string{"X"}},
		{"fail fast tolerates cold start", FailFast, coldUser, false, []string{"X"}},
		{"fail fast aborts", FailFast, missing, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fanout{
				Sources: []Source{
					&stubSource{name: "ok", ids: []string{"X"}},
					&stubSource{name: "bad", err: tt.err},
				},
				ErrorHandler:  tt.handler,
				MaxConcurrent: 1,
			}
			got, err := f.Process(context.Background(), &core.RecommendContext{}, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Process() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !core.IsItemNotFound(err) {
					t.Errorf("Process() error = %v, want wrapped ItemNotFound", err)
				}
				return
			}
			if !reflect.DeepEqual(itemIDs(got), tt.want) {
				t.Errorf("Process() = %v, want %v", itemIDs(got), tt.want)
			}
		})
	}
}

func TestModelSources(t *testing.T) {
	ctx := model.NewContext(context.Background(), testSet(t))
	rctx := &core.RecommendContext{
		UserID: "u1",
		Params: map[string]any{core.ParamItem: "a", core.ParamText: "indie puzzle"},
	}

	for _, src := range []Source{&ItemCF{MinSupport: 0}, &Content{K: 2}, &Text{}, &MF{}} {
		t.Run(src.Name(), func(t *testing.T) {
			items, err := src.Recall(ctx, rctx)
			if err != nil {
				t.Fatalf("Recall() error = %v", err)
			}
			if len(items) == 0 {
				t.Fatalf("Recall() returned no items")
			}
			for _, it := range items {
				lbl, ok := it.Labels["recall_source"]
				if !ok || lbl.Value != src.Name() {
					t.Errorf("item %s recall_source = %+v, want %s", it.ID, lbl, src.Name())
				}
			}
		})
	}

	// u1 玩过 A、B
	items, _ := (&MF{}).Recall(ctx, rctx)
	for _, it := range items {
		if it.ID == "A" || it.ID == "B" {
			t.Errorf("recall.mf returned played item %s", it.ID)
		}
	}
}

func TestModelSourceErrors(t *testing.T) {
	ctx := model.NewContext(context.Background(), testSet(t))

	if _, err := (&MF{}).Recall(ctx, &core.RecommendContext{UserID: "ghost"}); !core.IsUnknownUser(err) {
		t.Errorf("recall.mf(unknown user) error = %v, want UnknownUser", err)
	}
	rctx := &core.RecommendContext{Params: map[string]any{core.ParamItem: "Nonexistent"}}
	if _, err := (&Content{}).Recall(ctx, rctx); !core.IsItemNotFound(err) {
		t.Errorf("recall.content(unknown item) error = %v, want ItemNotFound", err)
	}
	if _, err := (&ItemCF{}).Recall(ctx, rctx); !core.IsItemNotFound(err) {
		t.Errorf("recall.i2i(unknown item) error = %v, want ItemNotFound", err)
	}

	// 目录中有但日志中没有的物品
	set := testSet(t)
	set.Catalog = catalog.New(append(set.Catalog.Profiles(), core.ItemProfile{Name: "Unplayed"}))
	unplayed := &core.RecommendContext{Params: map[string]any{core.ParamItem: "unplayed"}}
	if _, err := (&ItemCF{}).Recall(model.NewContext(context.Background(), set), unplayed); !core.IsNoData(err) {
		t.Errorf("recall.i2i(unplayed catalog item) error = %v, want NoData", err)
	}

	// 没有隐因子模型的快照
	set.MF = nil
	if _, err := (&MF{}).Recall(model.NewContext(context.Background(), set), &core.RecommendContext{UserID: "u1"}); !core.IsUnknownUser(err) {
		t.Errorf("recall.mf(no model) error = %v, want UnknownUser", err)
	}

	if _, err := (&ItemCF{}).Recall(context.Background(), rctx); !core.IsUnavailable(err) {
		t.Errorf("recall without snapshot error = %v, want Unavailable", err)
	}
}

func TestHot(t *testing.T) {
	ctx := context.Background()
	set := testSet(t)

	kv := store.NewMemoryStore()
	defer kv.Close()
	_ = kv.ZAdd(ctx, "pop"+interaction.KeySuffixCount, 5, "X")
	_ = kv.ZAdd(ctx, "pop"+interaction.KeySuffixCount, 9, "Y")

	tests := []struct {
		name string
		ctx  context.Context
		hot  *Hot
		want []string
	}{
		{"store", ctx, &Hot{Store: kv, Prefix: "pop"}, []string{"Y", "X"}},
		{"missing key falls back to snapshot", model.NewContext(ctx, set), &Hot{Store: kv, Prefix: "other", K: 2}, []string{"C", "A"}},
		{"snapshot by mean", model.NewContext(ctx, set), &Hot{Metric: MetricMean, K: 1}, []string{"D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.hot.Recall(tt.ctx, &core.RecommendContext{})
			if err != nil {
				t.Fatalf("Recall() error = %v", err)
			}
			if !reflect.DeepEqual(itemIDs(got), tt.want) {
				t.Errorf("Recall() = %v, want %v", itemIDs(got), tt.want)
			}
			for i := 1; i < len(got); i++ {
				if got[i-1].Score <= got[i].Score {
					t.Errorf("scores not strictly decreasing: %v, %v", got[i-1].Score, got[i].Score)
				}
			}
		})
	}

	if _, err := (&Hot{}).Recall(ctx, &core.RecommendContext{}); !core.IsUnavailable(err) {
		t.Errorf("Recall(no source) error = %v, want Unavailable", err)
	}
}
