package dxfutils

import (
	"github.com/pkg/errors"

	"github.com/tkremer/dxfutils/poly"
)

// ExtractPolylines pulls every LWPOLYLINE of the ENTITIES section into
// a uniform polyline list. Any other surviving entity kind is warned
// about and skipped; after a boil-down to POINT and LWPOLYLINE nothing
// else remains.
func ExtractPolylines(root *Node, warn WarnFunc) ([]poly.Polyline, error) {
	ents := root.Section("ENTITIES")
	if ents == nil {
		return nil, nil
	}
	var out []poly.Polyline
	for _, e := range ents.Children {
		if e.Name != "LWPOLYLINE" {
			warn.warnf("skipping %s entity", e.Name)
			continue
		}
		xs, ys, closed, err := lwPolylinePoints(e)
		if err != nil {
			return nil, errors.WithMessage(err, "extracting polylines")
		}
		pts := make([]poly.Point, len(xs))
		for i := range xs {
			pts[i] = poly.Point{X: xs[i], Y: ys[i]}
		}
		out = append(out, poly.Polyline{Closed: closed, Points: pts})
	}
	return out, nil
}
