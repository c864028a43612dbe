package model

const (
	FeatureType           = "Feature"
	FeatureCollectionType = "FeatureCollection"
	PointType             = "Point"
)

// Geometry is a GeoJSON geometry. Only points are produced here.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

// FeatureProperties are the partner attributes carried by a feature.
type FeatureProperties struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Capacity int    `json:"capacity"`
}

// Feature is the GeoJSON projection of a cached Partner. It is never persisted.
type Feature struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Geometry   Geometry          `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// FeatureCollection wraps a projection for consumers expecting a single GeoJSON document.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeature projects p into a GeoJSON Point feature.
func NewFeature(p Partner) Feature {
	return Feature{
		ID:   p.StoreID,
		Type: FeatureType,
		Geometry: Geometry{
			Type:        PointType,
			Coordinates: []float64{p.Longitude, p.Latitude},
		},
		Properties: FeatureProperties{
			Name:     p.Name,
			Status:   p.Status,
			Capacity: p.Capacity,
		},
	}
}

// Features projects every partner, preserving order.
func Features(partners []Partner) []Feature {
	features := make([]Feature, 0, len(partners))
	for _, p := range partners {
		features = append(features, NewFeature(p))
	}
	return features
}

// NewFeatureCollection wraps features; a nil slice becomes an empty list.
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: FeatureCollectionType, Features: features}
}
