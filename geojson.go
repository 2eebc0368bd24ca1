package cluster

import (
	"fmt"
	"io"

	geojson "github.com/paulmach/go.geojson"
)

// Marker is a GeoJSON Point feature used as a marker.
// Coordinates are [lon, lat].
type Marker struct {
	*geojson.Feature
}

// GetCoordinates implements GeoPoint
func (m Marker) GetCoordinates() Point {
	return Point{Lon: m.Geometry.Point[0], Lat: m.Geometry.Point[1]}
}

// Name returns the "name" property, if any
func (m Marker) Name() string {
	return m.PropertyMustString("name", "")
}

// ReadFeatureCollection decodes a collection and checks that every feature
// is a Point with at least two coordinates
func ReadFeatureCollection(r io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read feature collection: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w: %v", ErrInvalidInput, err)
	}
	if err := ValidateFeatures(fc.Features); err != nil {
		return nil, err
	}
	return fc, nil
}

// ValidateFeatures checks that every feature can be used as a marker
func ValidateFeatures(features []*geojson.Feature) error {
	for i, f := range features {
		if err := validateFeature(f); err != nil {
			return fmt.Errorf("feature %d %w", i, err)
		}
	}
	return nil
}

func validateFeature(f *geojson.Feature) error {
	switch {
	case f == nil:
		return fmt.Errorf("is null: %w", ErrInvalidInput)
	case f.Geometry == nil:
		return fmt.Errorf("has no geometry: %w", ErrInvalidInput)
	case !f.Geometry.IsPoint():
		return fmt.Errorf("has %q geometry, want Point: %w", f.Geometry.Type, ErrInvalidInput)
	case len(f.Geometry.Point) < 2:
		return fmt.Errorf("has %d coordinates: %w", len(f.Geometry.Point), ErrInvalidInput)
	}
	return nil
}

// Markers wraps validated features, in order
func Markers(features []*geojson.Feature) []Marker {
	result := make([]Marker, len(features))
	for i, f := range features {
		result[i] = Marker{Feature: f}
	}
	return result
}

// GeoPoints returns validated features as SetMarkers input, in order
func GeoPoints(features []*geojson.Feature) []GeoPoint {
	result := make([]GeoPoint, len(features))
	for i, f := range features {
		result[i] = Marker{Feature: f}
	}
	return result
}
