package poly

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStitch_FuzzyForward(t *testing.T) {
	assert := assert.New(t)

	lines := []Polyline{
		{Points: []Point{{0, 0}, {1, 0}}},
		{Points: []Point{{1.0001, 0}, {2, 0}}},
	}
	out := Stitch(lines, StitchOptions{Epsilon: 0.001})
	assert.Len(out, 1)
	assert.False(out[0].Closed)
	assert.Equal([]Point{{0, 0}, {1, 0}, {1.0001, 0}, {2, 0}}, out[0].Points)
}

func TestStitch_ExactBeforeFuzzy(t *testing.T) {
	assert := assert.New(t)

	// The first line would take (1,0)-(2,0) as a fuzzy continuation if
	// it were matched fuzzily first; the exact pass joins (0,0)-(1,0)
	// to it before any fuzzy matching.
	lines := []Polyline{
		{Points: []Point{{3, 3}, {1.05, 0}}},
		{Points: []Point{{0, 0}, {1, 0}}},
		{Points: []Point{{1, 0}, {2, 0}}},
	}
	out := Stitch(lines, StitchOptions{Epsilon: 0.1})
	assert.Len(out, 2)
	assert.Equal([]Point{{0, 0}, {1, 0}, {1, 0}, {2, 0}}, out[1].Points)
}

func TestStitch_Reverse(t *testing.T) {
	assert := assert.New(t)

	lines := []Polyline{
		{Points: []Point{{0, 0}, {1, 0}}},
		{Points: []Point{{2, 0}, {1, 0}}},
	}

	// Without reversal the two stay separate.
	out := Stitch(lines, StitchOptions{Epsilon: 0.001})
	assert.Len(out, 2)

	lines = []Polyline{
		{Points: []Point{{0, 0}, {1, 0}}},
		{Points: []Point{{2, 0}, {1, 0}}},
	}
	out = Stitch(lines, StitchOptions{Epsilon: 0.001, ReverseAllowed: true})
	assert.Len(out, 1)
	assert.Equal([]Point{{0, 0}, {1, 0}, {1, 0}, {2, 0}}, out[0].Points)
}

func TestStitch_CycleMigration(t *testing.T) {
	assert := assert.New(t)

	lines := []Polyline{
		{Points: []Point{{0, 0}, {1, 0}}},
		{Points: []Point{{1, 0}, {1, 1}}},
		{Points: []Point{{1, 1}, {0.0001, 0.0001}}},
	}
	out := Stitch(lines, StitchOptions{Epsilon: 0.001})
	assert.Len(out, 1)
	assert.True(out[0].Closed)
	pts := out[0].Points
	// The endpoint snapped exactly onto the start.
	assert.Equal(pts[0], pts[len(pts)-1])
}

func TestStitch_ClosedFlagForcesCycle(t *testing.T) {
	assert := assert.New(t)

	lines := []Polyline{
		{Closed: true, Points: []Point{{0, 0}, {1, 0}, {1, 1}}},
	}
	out := Stitch(lines, StitchOptions{Epsilon: 1e-6})
	assert.Len(out, 1)
	assert.True(out[0].Closed)
	assert.Equal(Point{0, 0}, out[0].Points[len(out[0].Points)-1])
}

func TestStitch_EmbedCycleIntoCycle(t *testing.T) {
	assert := assert.New(t)

	// Two unit squares sharing the corner (1,0)/(1,1) edge point (1,0).
	lines := []Polyline{
		{Closed: true, Points: []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{Closed: true, Points: []Point{{1, 0}, {2, 0}, {2, 1}, {1, 1}}},
	}
	out := Stitch(lines, StitchOptions{Epsilon: 1e-6, JoinCycles: true})
	assert.Len(out, 1)
	assert.True(out[0].Closed)

	// The merged ring walks the first square up to the shared corner,
	// detours around the second and comes back.
	count := map[Point]int{}
	for _, p := range out[0].Points {
		count[p]++
	}
	assert.Len(out[0].Points, 9)
	assert.Equal(2, count[Point{1, 0}])
	assert.Equal(2, count[Point{0, 0}])
	assert.Equal(1, count[Point{2, 1}])
}

func TestStitch_EmbedCycleIntoOpen(t *testing.T) {
	assert := assert.New(t)

	lines := []Polyline{
		{Points: []Point{{0, 0}, {5, 0}, {10, 0}}},
		{Closed: true, Points: []Point{{5, 0}, {6, 1}, {4, 1}}},
	}
	out := Stitch(lines, StitchOptions{Epsilon: 1e-6, JoinCycles: true})
	assert.Len(out, 1)
	assert.False(out[0].Closed)
	assert.Equal(Point{0, 0}, out[0].Points[0])
	assert.Equal(Point{10, 0}, out[0].Points[len(out[0].Points)-1])

	count := map[Point]int{}
	for _, p := range out[0].Points {
		count[p]++
	}
	// The open line passes the shared point, leaves around the cycle
	// and returns to it.
	assert.Equal(2, count[Point{5, 0}])
	assert.Equal(1, count[Point{6, 1}])
	assert.Equal(1, count[Point{4, 1}])
}

func TestStitch_Deterministic(t *testing.T) {
	assert := assert.New(t)

	build := func() []Polyline {
		return []Polyline{
			{Points: []Point{{0, 0}, {1, 0}}},
			{Points: []Point{{1, 0}, {2, 0}}},
			{Points: []Point{{1, 0}, {3, 3}}},
		}
	}
	first := Stitch(build(), StitchOptions{Epsilon: 0.001})
	for i := 0; i < 10; i++ {
		assert.Equal(first, Stitch(build(), StitchOptions{Epsilon: 0.001}))
	}
}

func TestStitch_OpenCountMonotonicity(t *testing.T) {
	assert := assert.New(t)

	lines := []Polyline{
		{Points: []Point{{0, 0}, {1, 0}}},
		{Points: []Point{{1, 0}, {2, 0}}},
		{Points: []Point{{7, 7}, {8, 8}}},
	}
	openBefore := len(lines)
	out := Stitch(lines, StitchOptions{Epsilon: 0.001})
	open := 0
	for _, l := range out {
		if !l.Closed {
			open++
		}
	}
	assert.LessOrEqual(open, openBefore)
}
