package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

type SplitMode string

const (
	SplitStratified SplitMode = "stratified"
	SplitRandom     SplitMode = "random"
	// SplitNone means every record is used for fitting and nothing is held out.
	SplitNone SplitMode = "none"
)

var ErrStratifyInfeasible = errors.New("stratified split infeasible")

type SplitConfig struct {
	TestRatio  float64
	MinRecords int
	Seed       int64
}

type Split struct {
	Train []int
	Test  []int
	Mode  SplitMode
	// Note explains a degraded split.
	Note string
}

// SplitDataset holds out TestRatio of the records, stratified by label when
// every class can be represented, randomly otherwise. Below MinRecords no
// records are held out.
func SplitDataset(labels []int, cfg SplitConfig) Split {
	n := len(labels)
	if n < cfg.MinRecords || n < 2 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return Split{
			Train: all,
			Mode:  SplitNone,
			Note:  fmt.Sprintf("only %d records (need %d), all used for fitting", n, cfg.MinRecords),
		}
	}

	rnd := rand.New(rand.NewSource(cfg.Seed))
	train, test, err := StratifiedSplit(labels, cfg.TestRatio, rnd)
	if err == nil {
		return Split{Train: train, Test: test, Mode: SplitStratified}
	}
	train, test = RandomSplit(n, cfg.TestRatio, rnd)
	return Split{Train: train, Test: test, Mode: SplitRandom, Note: err.Error()}
}

func testSize(n int, ratio float64) int {
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.2
	}
	size := int(math.Ceil(ratio * float64(n)))
	if size >= n {
		size = n - 1
	}
	return size
}

func RandomSplit(n int, testRatio float64, rnd *rand.Rand) (train, test []int) {
	nTest := testSize(n, testRatio)
	for i, idx := range rnd.Perm(n) {
		if i < nTest {
			test = append(test, idx)
		} else {
			train = append(train, idx)
		}
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// StratifiedSplit keeps each class's share in both partitions. It fails when a
// class has fewer than two records or a partition cannot hold every class.
func StratifiedSplit(labels []int, testRatio float64, rnd *rand.Rand) (train, test []int, err error) {
	n := len(labels)
	nTest := testSize(n, testRatio)
	nTrain := n - nTest

	members := make(map[int][]int)
	for idx, label := range labels {
		members[label] = append(members[label], idx)
	}
	classes := make([]int, 0, len(members))
	for class := range members {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	for _, class := range classes {
		if len(members[class]) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has only %d record", ErrStratifyInfeasible, class, len(members[class]))
		}
	}
	if nTest < len(classes) || nTrain < len(classes) {
		return nil, nil, fmt.Errorf("%w: %d classes do not fit %d test / %d train records", ErrStratifyInfeasible, len(classes), nTest, nTrain)
	}

	alloc := make([]int, len(classes))
	frac := make([]float64, len(classes))
	assigned := 0
	for i, class := range classes {
		size := len(members[class])
		exact := float64(size) * float64(nTest) / float64(n)
		alloc[i] = int(math.Floor(exact))
		if alloc[i] > size-1 {
			alloc[i] = size - 1
		}
		frac[i] = exact - float64(alloc[i])
		assigned += alloc[i]
	}
	order := make([]int, len(classes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return frac[order[a]] > frac[order[b]] })
	for remaining := nTest - assigned; remaining > 0; {
		progressed := false
		for _, i := range order {
			if remaining == 0 {
				break
			}
			if alloc[i] < len(members[classes[i]])-1 {
				alloc[i]++
				remaining--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	for i, class := range classes {
		idx := append([]int(nil), members[class]...)
		rnd.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		test = append(test, idx[:alloc[i]]...)
		train = append(train, idx[alloc[i]:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// Subset picks rows and labels by index.
func Subset(features [][]float64, labels []int, indices []int) ([][]float64, []int) {
	x := make([][]float64, len(indices))
	y := make([]int, len(indices))
	for i, idx := range indices {
		x[i] = features[idx]
		y[i] = labels[idx]
	}
	return x, y
}
