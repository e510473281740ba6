package geo

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// OutFeature is one feature of an outgoing collection. A nil Geometry is
// rendered as "geometry": null — used for riddles whose target area must not
// be revealed yet.
type OutFeature struct {
	ID         int64
	Geometry   orb.Geometry
	Properties map[string]any
}

// BuildFeatureCollection renders features in the given order as a GeoJSON
// FeatureCollection document.
func BuildFeatureCollection(feats []OutFeature) ([]byte, error) {
	type featureDoc struct {
		Type       string          `json:"type"`
		ID         int64           `json:"id"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties map[string]any  `json:"properties"`
	}
	type collectionDoc struct {
		Type     string       `json:"type"`
		Features []featureDoc `json:"features"`
	}

	doc := collectionDoc{Type: "FeatureCollection", Features: make([]featureDoc, 0, len(feats))}
	for _, f := range feats {
		g := json.RawMessage("null")
		if f.Geometry != nil {
			b, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
			if err != nil {
				return nil, err
			}
			g = b
		}
		props := f.Properties
		if props == nil {
			props = map[string]any{}
		}
		doc.Features = append(doc.Features, featureDoc{Type: "Feature", ID: f.ID, Geometry: g, Properties: props})
	}
	return json.Marshal(doc)
}
