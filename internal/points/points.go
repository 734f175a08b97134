// Package points keeps the ordered prompt points of each asset.
package points

import "spacelens/pkg/types"

// DefaultMaxPoints is the largest list the segmentation backend accepts;
// older points are evicted first.
const DefaultMaxPoints = 5

// Accumulator holds one bounded point list per asset id. It is not safe for
// concurrent use; the owning session serializes access.
type Accumulator struct {
	max   int
	lists map[string][]types.Point
}

// New returns an Accumulator keeping at most max points per asset. A max
// outside 1..DefaultMaxPoints selects DefaultMaxPoints.
func New(max int) *Accumulator {
	if max <= 0 || max > DefaultMaxPoints {
		max = DefaultMaxPoints
	}
	return &Accumulator{max: max, lists: make(map[string][]types.Point)}
}

// Append adds p to the asset's list, keeps only the most recent points and
// returns a copy of the resulting list. The returned slice is the exact
// payload for the next segmentation call.
func (a *Accumulator) Append(assetID string, p types.Point) []types.Point {
	list := append(a.lists[assetID], p)
	if over := len(list) - a.max; over > 0 {
		list = append([]types.Point(nil), list[over:]...)
	}
	a.lists[assetID] = list
	return clone(list)
}

// Reset removes the asset's list entirely.
func (a *Accumulator) Reset(assetID string) {
	delete(a.lists, assetID)
}

// Get returns a copy of the asset's list, or nil if it has none.
func (a *Accumulator) Get(assetID string) []types.Point {
	return clone(a.lists[assetID])
}

func clone(list []types.Point) []types.Point {
	if list == nil {
		return nil
	}
	out := make([]types.Point, len(list))
	copy(out, list)
	return out
}
