package hexstat

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// Rollup aggregates cell results up to their parents at parentRes. Sums
// add up; means are weighted by the number of valid pixels, which gives the
// same value as computing the mean over the parent's pixels directly.
func Rollup(results []StatResult, parentRes int, stat Stat) ([]StatResult, error) {
	stat, err := ParseStat(string(stat))
	if err != nil {
		return nil, err
	}
	if err := validateResolution(parentRes); err != nil {
		return nil, err
	}

	type acc struct {
		total  float64
		pixels int
	}
	groups := make(map[h3.Cell]*acc)

	for _, r := range results {
		cell, err := ParseCell(r.Cell)
		if err != nil {
			return nil, err
		}
		if parentRes > cell.Resolution() {
			return nil, fmt.Errorf("%w: rollup resolution %d is finer than cell %s at %d",
				ErrConfiguration, parentRes, r.Cell, cell.Resolution())
		}
		parent, err := cell.Parent(parentRes)
		if err != nil {
			return nil, fmt.Errorf("hexstat: parent of %s: %w", r.Cell, err)
		}

		a, ok := groups[parent]
		if !ok {
			a = &acc{}
			groups[parent] = a
		}
		switch stat {
		case StatSum:
			a.total += r.Value
		case StatMean:
			a.total += r.Value * float64(r.Pixels)
		}
		a.pixels += r.Pixels
	}

	out := make([]StatResult, 0, len(groups))
	for parent, a := range groups {
		value := a.total
		if stat == StatMean {
			if a.pixels == 0 {
				continue
			}
			value = a.total / float64(a.pixels)
		}
		out = append(out, StatResult{
			Cell:       parent.String(),
			Resolution: parentRes,
			Value:      value,
			Pixels:     a.pixels,
		})
	}
	SortResults(out)
	return out, nil
}
