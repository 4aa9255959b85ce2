package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/playrec/core"
)

func TestMemoryStoreKV(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Fatalf("Get(missing) error = %v, want not found", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get(k) = %q, %v, want v", got, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get after Delete error = %v, want not found", err)
	}
}

func TestMemoryStoreZRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	for member, score := range map[string]float64{"a": 1, "b": 3, "c": 2, "d": 3} {
		if err := s.ZAdd(ctx, "z", score, member); err != nil {
			t.Fatalf("ZAdd() error = %v", err)
		}
	}

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{"all", 0, -1, []string{"d", "b", "c", "a"}},
		{"top two", 0, 1, []string{"d", "b"}},
		{"tail", -2, -1, []string{"c", "a"}},
		{"past end", 2, 100, []string{"c", "a"}},
		{"empty range", 3, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ZRange(ctx, "z", tt.start, tt.stop)
			if err != nil {
				t.Fatalf("ZRange() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ZRange(%d, %d) = %v, want %v", tt.start, tt.stop, got, tt.want)
			}
		})
	}

	if score, err := s.ZScore(ctx, "z", "c"); err != nil || score != 2 {
		t.Errorf("ZScore(c) = %v, %v, want 2", score, err)
	}
	if _, err := s.ZScore(ctx, "z", "x"); !core.IsStoreNotFound(err) {
		t.Errorf("ZScore(x) error = %v, want not found", err)
	}

	_ = s.Delete(ctx, "z")
	if got, _ := s.ZRange(ctx, "z", 0, -1); got != nil {
		t.Errorf("ZRange after Delete = %v, want nil", got)
	}
}

func TestMemoryStoreHash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	_ = s.HSet(ctx, "h", "a", []byte("1"))
	_ = s.HSet(ctx, "h", "b", []byte("2"))
	got, err := s.HGetAll(ctx, "h")
	if err != nil {
		t.Fatalf("HGetAll() error = %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("HGetAll() = %v", got)
	}
	_ = s.Delete(ctx, "h")
	if got, _ := s.HGetAll(ctx, "h"); len(got) != 0 {
		t.Errorf("HGetAll after Delete = %v, want empty", got)
	}
}

func TestOpenWithoutAddrUsesMemory(t *testing.T) {
	kv, err := Open(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer kv.Close()
	if kv.Name() != "memory" {
		t.Errorf("Name() = %q, want memory", kv.Name())
	}
}
