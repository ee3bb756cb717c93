package mvt

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
)

// cloneFeature deep clones f. Properties without value are dropped, vector
// tiles cannot encode them.
func cloneFeature(f *geojson.Feature) *geojson.Feature {
	clone := geojson.NewFeature(orb.Clone(f.Geometry))
	clone.ID = f.ID

	for key, value := range f.Properties {
		if value != nil {
			clone.Properties[key] = value
		}
	}

	return clone
}

func cloneFeatures(features []*geojson.Feature) []*geojson.Feature {
	clones := make([]*geojson.Feature, len(features))
	for i, f := range features {
		clones[i] = cloneFeature(f)
	}
	return clones
}

// newLayers builds tile layers from deep clones of the collections
func newLayers(collections map[string]*geojson.FeatureCollection) mvt.Layers {
	clones := make(map[string]*geojson.FeatureCollection, len(collections))
	for name, fc := range collections {
		clone := geojson.NewFeatureCollection()
		clone.Features = cloneFeatures(fc.Features)
		clones[name] = clone
	}

	return mvt.NewLayers(clones)
}

// cloneLayers deep clones given layers
func cloneLayers(layers mvt.Layers) mvt.Layers {
	clones := make(mvt.Layers, len(layers))

	for i, l := range layers {
		clones[i] = &mvt.Layer{
			Name:     l.Name,
			Version:  l.Version,
			Extent:   l.Extent,
			Features: cloneFeatures(l.Features),
		}
	}

	return clones
}
