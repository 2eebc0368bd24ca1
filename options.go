package cluster

import (
	"fmt"
	"math"
	"time"
)

// Default values of Options
const (
	DefaultMinDistance  = 30
	DefaultMoveDuration = 300 * time.Millisecond
)

// Options tune a View.
// MinDistance - minimum separation of cluster centers in screen pixels,
// converted to degrees for every region, so clustering follows the zoom
// MoveDuration - how long markers and cluster anchors travel
// ShowClusters - when false markers are never grouped
// PressRadius - tap tolerance in pixels around a cluster center, 0 means
// the tap must hit the center exactly
type Options struct {
	MinDistance  float64       `json:"minDistance" yaml:"min_distance"`
	MoveDuration time.Duration `json:"moveDuration" yaml:"move_duration"`
	ShowClusters bool          `json:"showClusters" yaml:"show_clusters"`
	PressRadius  float64       `json:"pressRadius" yaml:"press_radius"`
}

// DefaultOptions returns:
// MinDistance = 30
// MoveDuration = 300ms
// ShowClusters = true
// PressRadius = 0
func DefaultOptions() Options {
	return Options{
		MinDistance:  DefaultMinDistance,
		MoveDuration: DefaultMoveDuration,
		ShowClusters: true,
	}
}

// Validate rejects values a view cannot work with
func (o Options) Validate() error {
	if o.MinDistance < 0 || math.IsNaN(o.MinDistance) {
		return fmt.Errorf("min distance must be non-negative, got %v", o.MinDistance)
	}
	if o.MoveDuration < 0 {
		return fmt.Errorf("move duration must be non-negative, got %v", o.MoveDuration)
	}
	if o.PressRadius < 0 || math.IsNaN(o.PressRadius) {
		return fmt.Errorf("press radius must be non-negative, got %v", o.PressRadius)
	}
	return nil
}

// threshold is the clustering distance in degrees for region
func (o Options) threshold(region Region, viewportHeight float64) float64 {
	if !o.ShowClusters {
		return 0
	}
	return PixelDistanceToRegionUnits(region, o.MinDistance, viewportHeight)
}
