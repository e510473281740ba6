// Package geo wraps GeoJSON (de)serialization and the point-in-geometry
// predicate the play flow needs. Pure functions, no mutation.
package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrMalformed reports GeoJSON input that does not decode into the expected
// feature/geometry shape.
var ErrMalformed = errors.New("malformed geometry")

// Feature is one entry of a parsed feature collection, in document order.
type Feature struct {
	ID         int64
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// ParseFeatureCollection decodes a GeoJSON FeatureCollection and returns its
// features in document order. Feature ids may arrive either as the GeoJSON
// "id" member or as an "id" property (the map editor emits both forms).
func ParseFeatureCollection(raw []byte) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make([]Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return nil, fmt.Errorf("%w: feature %d has no geometry", ErrMalformed, i)
		}
		ft := Feature{Geometry: f.Geometry, Properties: f.Properties}
		if id, ok := featureID(f); ok {
			ft.ID = id
		}
		out = append(out, ft)
	}
	return out, nil
}

// ParsePoint decodes a GeoJSON document holding a single point location.
// It accepts a bare geometry, a feature, or a one-feature collection.
func ParsePoint(raw []byte) (orb.Point, error) {
	if g, err := geojson.UnmarshalGeometry(raw); err == nil {
		if p, ok := g.Geometry().(orb.Point); ok {
			return p, nil
		}
	}
	if f, err := geojson.UnmarshalFeature(raw); err == nil {
		if p, ok := f.Geometry.(orb.Point); ok {
			return p, nil
		}
	}
	if fc, err := geojson.UnmarshalFeatureCollection(raw); err == nil && len(fc.Features) == 1 {
		if p, ok := fc.Features[0].Geometry.(orb.Point); ok {
			return p, nil
		}
	}
	return orb.Point{}, fmt.Errorf("%w: not a point", ErrMalformed)
}

// Contains reports whether the point lies inside (or on the boundary of) the
// target geometry.
func Contains(g orb.Geometry, p orb.Point) bool {
	switch t := g.(type) {
	case orb.Point:
		return t.Equal(p)
	case orb.Polygon:
		return planar.PolygonContains(t, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(t, p)
	case orb.Collection:
		for _, sub := range t {
			if Contains(sub, p) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// EncodeGeometry renders a geometry as a GeoJSON geometry document for
// storage.
func EncodeGeometry(g orb.Geometry) ([]byte, error) {
	return geojson.NewGeometry(g).MarshalJSON()
}

// DecodeGeometry parses a stored GeoJSON geometry document.
func DecodeGeometry(raw []byte) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return g.Geometry(), nil
}

func featureID(f *geojson.Feature) (int64, bool) {
	switch v := f.ID.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	if f.Properties != nil {
		if v, ok := f.Properties["id"]; ok {
			if n, ok := v.(float64); ok {
				return int64(n), true
			}
		}
	}
	return 0, false
}
