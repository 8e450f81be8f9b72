package iiif

import (
	"encoding/json"

	"github.com/archetype-pal/lightbox-backend/internal/model"
)

// BoundsFromGeoJSON derives the bounding rectangle of a GeoJSON
// geometry string in image coordinate space. Malformed or empty input
// yields (nil, false); it never panics or returns an error, so callers
// treat a failed parse as "no crop".
func BoundsFromGeoJSON(s string) (*model.Rect, bool) {
	if s == "" {
		return nil, false
	}
	var geom struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(s), &geom); err != nil || len(geom.Coordinates) == 0 {
		return nil, false
	}

	var pts [][2]float64
	collect(geom.Coordinates, &pts)
	if len(pts) == 0 {
		return nil, false
	}

	minX, minY := pts[0][0], pts[0][1]
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		if p[0] < minX {
			minX = p[0]
		}
		if p[0] > maxX {
			maxX = p[0]
		}
		if p[1] < minY {
			minY = p[1]
		}
		if p[1] > maxY {
			maxY = p[1]
		}
	}
	return &model.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// collect walks arbitrarily nested coordinate arrays (Point, LineString,
// Polygon, MultiPolygon) and accumulates the leaf [x,y] pairs.
func collect(raw json.RawMessage, pts *[][2]float64) {
	var pair []float64
	if err := json.Unmarshal(raw, &pair); err == nil {
		if len(pair) >= 2 {
			*pts = append(*pts, [2]float64{pair[0], pair[1]})
		}
		return
	}
	var nested []json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return
	}
	for _, n := range nested {
		collect(n, pts)
	}
}
