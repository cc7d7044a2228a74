package ml

import (
	"errors"
	"math/rand"
	"sort"
	"testing"
)

func repeatLabels(counts ...int) []int {
	labels := make([]int, 0)
	for class, count := range counts {
		for i := 0; i < count; i++ {
			labels = append(labels, class)
		}
	}
	return labels
}

func TestSplitDatasetStratified(t *testing.T) {
	labels := repeatLabels(10, 5, 5)
	split := SplitDataset(labels, SplitConfig{TestRatio: 0.2, MinRecords: 15, Seed: 42})
	if split.Mode != SplitStratified {
		t.Fatalf("expected stratified split, got %s (%s)", split.Mode, split.Note)
	}
	if len(split.Test) != 4 || len(split.Train) != 16 {
		t.Fatalf("unexpected sizes train=%d test=%d", len(split.Train), len(split.Test))
	}
	perClass := make(map[int]int)
	for _, idx := range split.Test {
		perClass[labels[idx]]++
	}
	if perClass[0] != 2 || perClass[1] != 1 || perClass[2] != 1 {
		t.Fatalf("unexpected test distribution: %v", perClass)
	}
	assertPartition(t, len(labels), split)
}

func TestSplitDatasetSingletonFallsBack(t *testing.T) {
	labels := repeatLabels(10, 8, 1)
	split := SplitDataset(labels, SplitConfig{TestRatio: 0.2, MinRecords: 15, Seed: 42})
	if split.Mode != SplitRandom {
		t.Fatalf("expected random fallback, got %s", split.Mode)
	}
	if split.Note == "" {
		t.Fatal("expected a note explaining the fallback")
	}
	if len(split.Test) != 4 {
		t.Fatalf("expected 4 test records, got %d", len(split.Test))
	}
	assertPartition(t, len(labels), split)
}

func TestSplitDatasetBelowThreshold(t *testing.T) {
	labels := repeatLabels(5, 5)
	split := SplitDataset(labels, SplitConfig{TestRatio: 0.2, MinRecords: 15, Seed: 42})
	if split.Mode != SplitNone || len(split.Test) != 0 || len(split.Train) != 10 {
		t.Fatalf("expected no held-out records, got %+v", split)
	}
}

func TestStratifiedSplitTooManyClasses(t *testing.T) {
	labels := repeatLabels(2, 2, 2, 2, 2, 2, 2, 2)
	_, _, err := StratifiedSplit(labels, 0.2, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrStratifyInfeasible) {
		t.Fatalf("expected ErrStratifyInfeasible, got %v", err)
	}
}

func assertPartition(t *testing.T, n int, split Split) {
	t.Helper()
	all := append(append([]int(nil), split.Train...), split.Test...)
	sort.Ints(all)
	if len(all) != n {
		t.Fatalf("partition covers %d of %d records", len(all), n)
	}
	for i, idx := range all {
		if idx != i {
			t.Fatalf("partition is not a permutation: %v", all)
		}
	}
}
