package model

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/interaction"
)

func mfMatrix(t *testing.T) *interaction.Matrix {
	t.Helper()
	m, _ := mustAggregate(t, []core.InteractionRecord{
		play("u1", "A", 10), play("u1", "B", 8), play("u1", "C", 1),
		play("u2", "A", 9), play("u2", "B", 7),
		play("u3", "C", 12), play("u3", "D", 10),
		play("u4", "C", 11), play("u4", "D", 9), play("u4", "A", 2),
		play("u5", "B", 6),
	})
	return m
}

func testLFConfig(epochs int) LatentFactorConfig {
	cfg := DefaultLatentFactorConfig()
	cfg.Factors = 4
	cfg.Epochs = epochs
	cfg.LearnRate = 0.05
	return cfg
}

func TestFitLatentFactorDeterministic(t *testing.T) {
	ctx := context.Background()
	m := mfMatrix(t)
	a, err := FitLatentFactor(ctx, m, testLFConfig(30))
	if err != nil {
		t.Fatalf("FitLatentFactor() error = %v", err)
	}
	b, err := FitLatentFactor(ctx, m, testLFConfig(30))
	if err != nil {
		t.Fatalf("FitLatentFactor() error = %v", err)
	}
	for _, u := range m.Users() {
		for _, it := range m.Items() {
			pa, _ := a.Predict(u, it)
			pb, _ := b.Predict(u, it)
			if pa != pb {
				t.Errorf("Predict(%s, %s) = %v vs %v across identical fits", u, it, pa, pb)
			}
		}
	}
}

func TestFitLatentFactorReducesError(t *testing.T) {
	ctx := context.Background()
	m := mfMatrix(t)
	short, err := FitLatentFactor(ctx, m, testLFConfig(1))
	if err != nil {
		t.Fatalf("FitLatentFactor() error = %v", err)
	}
	long, err := FitLatentFactor(ctx, m, testLFConfig(200))
	if err != nil {
		t.Fatalf("FitLatentFactor() error = %v", err)
	}
	if long.RMSE() >= short.RMSE() {
		t.Errorf("RMSE after 200 epochs = %v, not below 1 epoch = %v", long.RMSE(), short.RMSE())
	}
}

func TestPredict(t *testing.T) {
	m := mfMatrix(t)
	lf, err := FitLatentFactor(context.Background(), m, testLFConfig(20))
	if err != nil {
		t.Fatalf("FitLatentFactor() error = %v", err)
	}

	for _, u := range m.Users() {
		for _, it := range m.Items() {
			p, err := lf.Predict(u, it)
			if err != nil {
				t.Fatalf("Predict(%s, %s) error = %v", u, it, err)
			}
			if p < 0 || p > m.MaxAmount() {
				t.Errorf("Predict(%s, %s) = %v outside [0, %v]", u, it, p, m.MaxAmount())
			}
		}
	}

	if _, err := lf.Predict("ghost", "A"); !core.IsUnknownUser(err) {
		t.Errorf("Predict(unknown user) error = %v, want UnknownUser", err)
	}
	if _, err := lf.Predict("u1", "Z"); !core.IsUnknownItem(err) {
		t.Errorf("Predict(unknown item) error = %v, want UnknownItem", err)
	}
}

func TestRecommendExcludesPlayed(t *testing.T) {
	m := mfMatrix(t)
	lf, err := FitLatentFactor(context.Background(), m, testLFConfig(20))
	if err != nil {
		t.Fatalf("FitLatentFactor() error = %v", err)
	}

	got, err := lf.Recommend("u2", 0)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	// u2 玩过 A、B，候选只剩 C、D
	if len(got) != 2 {
		t.Fatalf("Recommend(u2) = %v, want 2 unplayed items", got)
	}
	for i, n := range got {
		if n.ItemID == "A" || n.ItemID == "B" {
			t.Errorf("Recommend(u2) contains played item %s", n.ItemID)
		}
		if i > 0 && got[i-1].Score < n.Score {
			t.Errorf("Recommend(u2) not sorted: %v", got)
		}
	}

	if one, _ := lf.Recommend("u2", 1); len(one) != 1 {
		t.Errorf("Recommend(u2, 1) = %v, want 1 item", one)
	}
	if _, err := lf.Recommend("ghost", 5); !core.IsUnknownUser(err) {
		t.Errorf("Recommend(unknown) error = %v, want UnknownUser", err)
	}
}

func TestFitLatentFactorErrors(t *testing.T) {
	m := mfMatrix(t)

	bad := testLFConfig(10)
	bad.Factors = 0
	if _, err := FitLatentFactor(context.Background(), m, bad); !core.IsInvalidInput(err) {
		t.Errorf("FitLatentFactor(bad config) error = %v, want InvalidInput", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := FitLatentFactor(ctx, m, testLFConfig(10)); !errors.Is(err, context.Canceled) {
		t.Errorf("FitLatentFactor(cancelled) error = %v, want context.Canceled", err)
	}

	empty := m.Restrict(func(string) (string, bool) { return "", false })
	if _, err := FitLatentFactor(context.Background(), empty, testLFConfig(10)); !core.IsEmptyDataset(err) {
		t.Errorf("FitLatentFactor(empty) error = %v, want EmptyDataset", err)
	}

	diverge := testLFConfig(50)
	diverge.LearnRate = 1
	diverge.InitStd = 1e154
	diverge.Factors = 2
	_, err := FitLatentFactor(context.Background(), m, diverge)
	if domainErr := core.GetDomainError(err); domainErr == nil || domainErr.Code != core.ErrorCodeInternalError {
		t.Errorf("FitLatentFactor(diverging) error = %v, want INTERNAL_ERROR", err)
	}
}
