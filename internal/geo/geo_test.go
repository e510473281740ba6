package geo

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

const sampleFC = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": 3,
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[4,0],[4,4],[0,4],[0,0]]]},
      "properties": {"roadid": 1, "number": 1}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [1, 1]},
      "properties": {"id": 7}
    }
  ]
}`

func TestParseFeatureCollection(t *testing.T) {
	feats, err := ParseFeatureCollection([]byte(sampleFC))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(feats) != 2 {
		t.Fatalf("features = %d, want 2", len(feats))
	}
	if feats[0].ID != 3 {
		t.Errorf("feature 0 id = %d, want 3", feats[0].ID)
	}
	if feats[1].ID != 7 {
		t.Errorf("feature 1 id = %d, want 7 (from properties)", feats[1].ID)
	}
	if _, ok := feats[0].Geometry.(orb.Polygon); !ok {
		t.Errorf("feature 0 geometry = %T, want orb.Polygon", feats[0].Geometry)
	}
}

func TestParseFeatureCollection_Malformed(t *testing.T) {
	cases := []string{
		`not json`,
		`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{}}]}`,
	}
	for _, raw := range cases {
		if _, err := ParseFeatureCollection([]byte(raw)); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseFeatureCollection(%q) err = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestParsePoint_Forms(t *testing.T) {
	forms := []string{
		`{"type":"Point","coordinates":[2.5,3.5]}`,
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[2.5,3.5]},"properties":{}}`,
		`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[2.5,3.5]},"properties":{}}]}`,
	}
	for _, raw := range forms {
		p, err := ParsePoint([]byte(raw))
		if err != nil {
			t.Fatalf("ParsePoint(%q): %v", raw, err)
		}
		if p[0] != 2.5 || p[1] != 3.5 {
			t.Errorf("ParsePoint(%q) = %v, want [2.5 3.5]", raw, p)
		}
	}
	if _, err := ParsePoint([]byte(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`)); !errors.Is(err, ErrMalformed) {
		t.Errorf("non-point geometry: err = %v, want ErrMalformed", err)
	}
}

func TestContains(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}
	donut := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}
	multi := orb.MultiPolygon{square, {{{20, 20}, {22, 20}, {22, 22}, {20, 22}, {20, 20}}}}

	cases := []struct {
		name string
		g    orb.Geometry
		p    orb.Point
		want bool
	}{
		{"inside square", square, orb.Point{2, 2}, true},
		{"outside square", square, orb.Point{5, 5}, false},
		{"in donut hole", donut, orb.Point{5, 5}, false},
		{"in donut ring", donut, orb.Point{1, 1}, true},
		{"second multipolygon part", multi, orb.Point{21, 21}, true},
		{"between multipolygon parts", multi, orb.Point{15, 15}, false},
		{"point target match", orb.Point{3, 3}, orb.Point{3, 3}, true},
		{"unsupported linestring", orb.LineString{{0, 0}, {1, 1}}, orb.Point{0, 0}, false},
	}
	for _, tc := range cases {
		if got := Contains(tc.g, tc.p); got != tc.want {
			t.Errorf("%s: Contains = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGeometryRoundTrip(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}}
	raw, err := EncodeGeometry(square)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeGeometry(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !Contains(back, orb.Point{2, 2}) || Contains(back, orb.Point{9, 9}) {
		t.Errorf("round-tripped geometry lost containment semantics")
	}
}
