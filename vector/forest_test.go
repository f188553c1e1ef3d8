package vector

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/rushteam/dealkit/core"
)

func TestForest_AddAndSearch(t *testing.T) {
	// With maxLeafSize >= item count every tree is a single leaf, so the
	// search degenerates to exact nearest neighbor and is fully deterministic.
	f := NewForest(4, 3, 50, WithSeed(1))

	vectors := map[string][]float64{
		"d1": {1, 0, 0, 0},
		"d2": {0, 1, 0, 0},
		"d3": {0, 0, 1, 0},
		"d4": {0.9, 0.1, 0, 0},
	}
	for id, vec := range vectors {
		if err := f.Add(vec, core.IndexPayload{DealID: id}); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}
	if f.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", f.Len())
	}

	got, err := f.Search(context.Background(), []float64{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Payload.DealID != "d1" {
		t.Errorf("nearest = %s, want d1", got[0].Payload.DealID)
	}
	if got[1].Payload.DealID != "d4" {
		t.Errorf("second = %s, want d4", got[1].Payload.DealID)
	}
	if got[0].Distance > got[1].Distance {
		t.Errorf("results not sorted by distance: %v > %v", got[0].Distance, got[1].Distance)
	}
}

func TestForest_DimensionMismatch(t *testing.T) {
	f := NewForest(4, 2, 10)

	if err := f.Add([]float64{1, 2}, core.IndexPayload{DealID: "short"}); !errors.Is(err, core.ErrVectorDimMismatch) {
		t.Errorf("Add short vector err = %v, want ErrVectorDimMismatch", err)
	}
	if _, err := f.Search(context.Background(), []float64{1, 2, 3, 4, 5}, 1); !errors.Is(err, core.ErrVectorDimMismatch) {
		t.Errorf("Search long query err = %v, want ErrVectorDimMismatch", err)
	}
}

func TestForest_EmptyIndex(t *testing.T) {
	f := NewForest(4, 2, 10)
	got, err := f.Search(context.Background(), []float64{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0", len(got))
	}
}

func TestForest_TopKTruncation(t *testing.T) {
	f := NewForest(2, 2, 100, WithSeed(7))
	for i := 0; i < 20; i++ {
		vec := []float64{float64(i), 1}
		if err := f.Add(vec, core.IndexPayload{DealID: fmt.Sprintf("d%d", i)}); err != nil {
			t.Fatalf("Add error = %v", err)
		}
	}

	got, err := f.Search(context.Background(), []float64{0, 1}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	if got[0].Payload.DealID != "d0" {
		t.Errorf("nearest = %s, want d0", got[0].Payload.DealID)
	}
}

func TestForest_ApproximateRecallOnLargeSet(t *testing.T) {
	// Leaves smaller than the item count force real tree splits. The query
	// point is itself indexed, so distance zero must be reachable through
	// every tree containing it.
	f := NewForest(8, 10, 5, WithSeed(42))

	rng := rand.New(rand.NewSource(99))
	var target []float64
	for i := 0; i < 200; i++ {
		vec := make([]float64, 8)
		for j := range vec {
			vec[j] = rng.Float64()
		}
		if i == 0 {
			target = vec
		}
		if err := f.Add(vec, core.IndexPayload{DealID: fmt.Sprintf("d%d", i)}); err != nil {
			t.Fatalf("Add error = %v", err)
		}
	}

	got, err := f.Search(context.Background(), target, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].Payload.DealID != "d0" || got[0].Distance != 0 {
		t.Errorf("nearest = %s dist %v, want d0 dist 0", got[0].Payload.DealID, got[0].Distance)
	}
}

func TestForest_AddAfterSearchRebuilds(t *testing.T) {
	f := NewForest(2, 2, 10, WithSeed(3))
	if err := f.Add([]float64{1, 0}, core.IndexPayload{DealID: "a"}); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	if _, err := f.Search(context.Background(), []float64{1, 0}, 1); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if err := f.Add([]float64{0, 1}, core.IndexPayload{DealID: "b"}); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	got, err := f.Search(context.Background(), []float64{0, 1}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].Payload.DealID != "b" {
		t.Fatalf("got = %+v, want single hit b", got)
	}
}
