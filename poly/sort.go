package poly

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrBadCriterion marks an unparseable sort criteria string.
var ErrBadCriterion = errors.New("invalid sort criterion")

// A sortKey extracts one bounding-box coordinate.
type sortKey func(Rect) float64

var sortKeys = map[string]sortKey{
	"left":   func(r Rect) float64 { return r.MinX },
	"bottom": func(r Rect) float64 { return r.MinY },
	"right":  func(r Rect) float64 { return r.MaxX },
	"top":    func(r Rect) float64 { return r.MaxY },
}

type criterion struct {
	key  sortKey
	desc bool
	box  bool
}

// parseCriteria parses a comma-separated criteria list. Each entry is
// one of left, bottom, right, top (optionally suffixed -asc or -desc)
// or the strict partial order box.
func parseCriteria(spec string) ([]criterion, error) {
	var out []criterion
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "box" {
			out = append(out, criterion{box: true})
			continue
		}
		name, desc := part, false
		if strings.HasSuffix(part, "-asc") {
			name = strings.TrimSuffix(part, "-asc")
		} else if strings.HasSuffix(part, "-desc") {
			name = strings.TrimSuffix(part, "-desc")
			desc = true
		}
		key, ok := sortKeys[name]
		if !ok {
			return nil, errors.Wrapf(ErrBadCriterion, "%q", part)
		}
		out = append(out, criterion{key: key, desc: desc})
	}
	return out, nil
}

// Sort orders the polylines by the given criteria. The criteria apply
// right-to-left, each as a stable pass over the previous order, so the
// leftmost criterion dominates. Numeric criteria quantise the coordinate
// by the crudeness step so that near-equal values tie and the later
// passes keep their relative order; the box criterion is a stable
// insertion sort against bounding-box containment, which is only a
// partial order.
func Sort(lines []Polyline, spec string, crudeness float64) error {
	crits, err := parseCriteria(spec)
	if err != nil {
		return err
	}
	boxes := make([]Rect, len(lines))
	order := make([]int, len(lines))
	for i := range lines {
		boxes[i] = lines[i].Bounds()
		order[i] = i
	}

	for i := len(crits) - 1; i >= 0; i-- {
		c := crits[i]
		if c.box {
			boxInsertionSort(order, boxes)
			continue
		}
		keys := make([]float64, len(lines))
		for j, idx := range order {
			keys[j] = quantise(c.key(boxes[idx]), crudeness)
		}
		perm := make([]int, len(order))
		for j := range perm {
			perm[j] = j
		}
		sort.SliceStable(perm, func(a, b int) bool {
			if c.desc {
				return keys[perm[a]] > keys[perm[b]]
			}
			return keys[perm[a]] < keys[perm[b]]
		})
		next := make([]int, len(order))
		for j, p := range perm {
			next[j] = order[p]
		}
		order = next
	}

	sorted := make([]Polyline, len(lines))
	for j, idx := range order {
		sorted[j] = lines[idx]
	}
	copy(lines, sorted)
	return nil
}

func quantise(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Floor(v / step)
}

// boxCompare is the strict containment partial order: -1 when a lies
// strictly inside b, +1 when b lies strictly inside a, 0 otherwise.
func boxCompare(a, b Rect) int {
	switch {
	case a.Inside(b):
		return -1
	case b.Inside(a):
		return 1
	default:
		return 0
	}
}

// boxInsertionSort stably orders by the containment partial order in
// O(n^2): each element is inserted before the first element of the
// sorted prefix it must precede, leaving incomparable elements in their
// incoming order.
func boxInsertionSort(order []int, boxes []Rect) {
	for i := 1; i < len(order); i++ {
		at := i
		for j := 0; j < i; j++ {
			if boxCompare(boxes[order[i]], boxes[order[j]]) < 0 {
				at = j
				break
			}
		}
		if at == i {
			continue
		}
		moved := order[i]
		copy(order[at+1:i+1], order[at:i])
		order[at] = moved
	}
}
