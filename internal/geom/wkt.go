// Package geom converts GeoJSON Polygon and MultiPolygon geometries to
// Well-Known Text.
//
// The conversion is a lossless textual re-encoding: ring and vertex
// order are preserved exactly as received, coordinates are rendered as
// "<x> <y>" pairs, and any z coordinate is discarded. No geometry
// library is involved and no validation, reprojection, or repair is
// performed.
package geom

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Geometry is the subset of a GeoJSON geometry object this package
// understands. Coordinates are kept raw so that Polygon and MultiPolygon
// nesting can be decoded per type.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// WKT serializes g to Well-Known Text. ok=false means the geometry
// contributes nothing: an unsupported type, undecodable coordinates, or
// a geometry whose rings are all empty. Callers should drop such
// features rather than emit an empty string.
func WKT(g Geometry) (wkt string, ok bool) {
	switch g.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return "", false
		}
		body, ok := ringsText(rings)
		if !ok {
			return "", false
		}
		return "POLYGON" + body, true

	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return "", false
		}
		parts := make([]string, 0, len(polys))
		for _, rings := range polys {
			if body, ok := ringsText(rings); ok {
				parts = append(parts, body)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return "MULTIPOLYGON(" + strings.Join(parts, ", ") + ")", true

	default:
		return "", false
	}
}

// ringsText renders one polygon's rings as "((x y, ...), (...))".
// Rings with no usable vertices are omitted; if every ring is empty the
// polygon itself contributes nothing.
func ringsText(rings [][][]float64) (string, bool) {
	parts := make([]string, 0, len(rings))
	for _, ring := range rings {
		verts := make([]string, 0, len(ring))
		for _, pt := range ring {
			if len(pt) < 2 {
				continue
			}
			verts = append(verts, coord(pt[0])+" "+coord(pt[1]))
		}
		if len(verts) == 0 {
			continue
		}
		parts = append(parts, "("+strings.Join(verts, ", ")+")")
	}
	if len(parts) == 0 {
		return "", false
	}
	return "(" + strings.Join(parts, ", ") + ")", true
}

// coord formats a coordinate with the shortest decimal representation
// that round-trips the float64 value.
func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
