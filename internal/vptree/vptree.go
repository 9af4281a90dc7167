// Package vptree implements a vantage-point tree: a metric-space index
// that answers epsilon-range queries without assuming Euclidean
// coordinates, built over whatever (possibly expensive, possibly
// asynchronous) distance function the caller supplies.
package vptree

import (
	"context"
	"sort"
)

// Metric computes the distance between two items of type T. It may be
// expensive (it can decode frames, run DTW) so it takes a context and
// can fail.
type Metric[T any] func(ctx context.Context, a, b T) (float64, error)

// Tree is an immutable vantage-point tree over a fixed set of items.
type Tree[T any] struct {
	root   *node[T]
	metric Metric[T]
}

type node[T any] struct {
	item        T
	threshold   float64
	left, right *node[T]
}

// Build constructs a Tree over items using metric as the distance
// function. Construction recursively picks the first remaining item as
// the vantage point, splits the rest by the median distance to it, and
// recurses on each half — giving an O(n log n) expected build and
// O(log n) expected query depth.
func Build[T any](ctx context.Context, items []T, metric Metric[T]) (*Tree[T], error) {
	cp := make([]T, len(items))
	copy(cp, items)

	root, err := buildNode(ctx, cp, metric)
	if err != nil {
		return nil, err
	}
	return &Tree[T]{root: root, metric: metric}, nil
}

func buildNode[T any](ctx context.Context, items []T, metric Metric[T]) (*node[T], error) {
	if len(items) == 0 {
		return nil, nil
	}
	if len(items) == 1 {
		return &node[T]{item: items[0]}, nil
	}

	vantage := items[0]
	rest := items[1:]

	type distPair struct {
		item T
		dist float64
	}
	dists := make([]distPair, len(rest))
	for i, it := range rest {
		d, err := metric(ctx, vantage, it)
		if err != nil {
			return nil, err
		}
		dists[i] = distPair{item: it, dist: d}
	}
	sort.Slice(dists, func(i, j int) bool { return dists[i].dist < dists[j].dist })

	mid := len(dists) / 2
	threshold := 0.0
	if len(dists) > 0 {
		threshold = dists[mid].dist
	}

	var innerItems, outerItems []T
	for i, dp := range dists {
		if i < mid {
			innerItems = append(innerItems, dp.item)
		} else {
			outerItems = append(outerItems, dp.item)
		}
	}

	left, err := buildNode(ctx, innerItems, metric)
	if err != nil {
		return nil, err
	}
	right, err := buildNode(ctx, outerItems, metric)
	if err != nil {
		return nil, err
	}

	return &node[T]{item: vantage, threshold: threshold, left: left, right: right}, nil
}

// RangeSearch returns every indexed item within eps of target
// (inclusive), following the standard VP-tree descent rule: always
// descend into the side target's distance to the vantage point falls
// in, and additionally descend into the other side whenever the
// epsilon ball could cross the threshold boundary.
func (t *Tree[T]) RangeSearch(ctx context.Context, target T, eps float64) ([]T, error) {
	var out []T
	err := t.rangeSearch(ctx, t.root, target, eps, &out)
	return out, err
}

func (t *Tree[T]) rangeSearch(ctx context.Context, n *node[T], target T, eps float64, out *[]T) error {
	if n == nil {
		return nil
	}
	d, err := t.metric(ctx, n.item, target)
	if err != nil {
		return err
	}
	if d <= eps {
		*out = append(*out, n.item)
	}
	if n.left == nil && n.right == nil {
		return nil
	}

	if d < n.threshold {
		if d-eps <= n.threshold {
			if err := t.rangeSearch(ctx, n.left, target, eps, out); err != nil {
				return err
			}
		}
		if d+eps >= n.threshold {
			if err := t.rangeSearch(ctx, n.right, target, eps, out); err != nil {
				return err
			}
		}
	} else {
		if d+eps >= n.threshold {
			if err := t.rangeSearch(ctx, n.right, target, eps, out); err != nil {
				return err
			}
		}
		if d-eps <= n.threshold {
			if err := t.rangeSearch(ctx, n.left, target, eps, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len reports how many items are indexed in t.
func (t *Tree[T]) Len() int {
	return countNodes(t.root)
}

func countNodes[T any](n *node[T]) int {
	if n == nil {
		return 0
	}
	return 1 + countNodes(n.left) + countNodes(n.right)
}
