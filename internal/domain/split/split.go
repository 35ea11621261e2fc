// Package split assigns whole matches to train, validation and test partitions.
package split

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/okian/pvnet/internal/domain/cleaning"
	"github.com/okian/pvnet/internal/domain/model"
)

// Name identifies a partition.
type Name string

const (
	Train Name = "train"
	Val   Name = "val"
	Test  Name = "test"
)

// Names lists partitions in output order.
var Names = []Name{Train, Val, Test}

// DefaultSeed is the default shuffle seed.
const DefaultSeed int64 = 42

const fracTolerance = 1e-6

// Fractions are the share of matches assigned to each partition.
type Fractions struct {
	Train float64 `json:"train"`
	Val   float64 `json:"val"`
	Test  float64 `json:"test"`
}

// DefaultFractions returns the 70/15/15 split.
func DefaultFractions() Fractions {
	return Fractions{Train: 0.70, Val: 0.15, Test: 0.15}
}

// Validate checks that fractions are non-negative and sum to 1.
func (f Fractions) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{{"train_frac", f.Train}, {"val_frac", f.Val}, {"test_frac", f.Test}} {
		if c.v < 0 || math.IsNaN(c.v) {
			return &model.ConfigurationError{Field: c.name, Reason: fmt.Sprintf("must be >= 0, got %v", c.v)}
		}
	}
	if sum := f.Train + f.Val + f.Test; math.Abs(sum-1) > fracTolerance {
		return &model.ConfigurationError{Field: "fractions", Reason: fmt.Sprintf("must sum to 1, got %v", sum)}
	}
	return nil
}

// Keyed is anything that belongs to a match.
type Keyed interface {
	MatchKey() (string, bool)
}

// Result holds the three partitions and the match assignment behind them.
type Result[R Keyed] struct {
	Train []R
	Val   []R
	Test  []R

	// Assignment maps every match id seen to its partition.
	Assignment map[string]Name
	// Unassigned counts rows without a match id. They are in no partition.
	Unassigned int
}

// Rows returns the partition with the given name.
func (r Result[R]) Rows(n Name) []R {
	switch n {
	case Train:
		return r.Train
	case Val:
		return r.Val
	case Test:
		return r.Test
	}
	return nil
}

// Matches returns the number of matches assigned to n.
func (r Result[R]) Matches(n Name) int {
	c := 0
	for _, v := range r.Assignment {
		if v == n {
			c++
		}
	}
	return c
}

// ByMatch sorts the distinct match ids, shuffles them with seed and cuts them
// at floor(n*train) and floor(n*train)+floor(n*val); the rest go to test.
// The assignment depends only on the match id set and the seed.
// All rows of a match land in the same partition and keep their order.
func ByMatch[R Keyed](rows []R, fr Fractions, seed int64) (Result[R], error) {
	if err := fr.Validate(); err != nil {
		return Result[R]{}, err
	}

	var ids []string
	seen := make(map[string]struct{})
	unassigned := 0
	for _, r := range rows {
		id, ok := r.MatchKey()
		if !ok {
			unassigned++
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	slices.SortFunc(ids, cleaning.CompareMatchIDs)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	n := len(ids)
	nTrain := int(math.Floor(float64(n) * fr.Train))
	nVal := int(math.Floor(float64(n) * fr.Val))

	assign := make(map[string]Name, n)
	for i, id := range ids {
		switch {
		case i < nTrain:
			assign[id] = Train
		case i < nTrain+nVal:
			assign[id] = Val
		default:
			assign[id] = Test
		}
	}

	res := Result[R]{Assignment: assign, Unassigned: unassigned}
	for _, r := range rows {
		id, ok := r.MatchKey()
		if !ok {
			continue
		}
		switch assign[id] {
		case Train:
			res.Train = append(res.Train, r)
		case Val:
			res.Val = append(res.Val, r)
		default:
			res.Test = append(res.Test, r)
		}
	}
	return res, nil
}
