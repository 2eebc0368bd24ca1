package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// RegionPadding is the factor each span of a fitted region is expanded by
const RegionPadding = 1.3

// Point is a position on the map. Coordinates are degrees on a flat plane,
// no geodesic correction is applied anywhere.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Region is the visible part of the map: center and angular span
type Region struct {
	Lat      float64 `json:"latitude"`
	Lon      float64 `json:"longitude"`
	LatDelta float64 `json:"latitudeDelta"`
	LonDelta float64 `json:"longitudeDelta"`
}

// Device is the pixel size of the screen the map is shown on
type Device struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Aspect returns width/height, or 1 when the size is unknown
func (d Device) Aspect() float64 {
	if d.Width <= 0 || d.Height <= 0 {
		return 1
	}
	return d.Width / d.Height
}

// all objects you want to show on the map should implement this interface
type GeoPoint interface {
	GetCoordinates() Point
}

// GetCoordinates lets a bare Point be used as a GeoPoint
func (p Point) GetCoordinates() Point {
	return p
}

// Coordinates implements kdbush.Point, X is longitude and Y is latitude
func (p Point) Coordinates() (float64, float64) {
	return p.Lon, p.Lat
}

// DistanceSqr is the squared planar distance between a and b.
// Everything that compares distances compares squares, so there is no
// square root on the clustering path.
func DistanceSqr(a, b Point) float64 {
	dx := a.Lon - b.Lon
	dy := a.Lat - b.Lat
	return dx*dx + dy*dy
}

// Centroid is the unweighted mean position of points.
// Latitude and longitude are averaged independently.
func Centroid(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, fmt.Errorf("centroid of empty point list: %w", ErrInvalidInput)
	}
	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}
	return Point{Lat: stat.Mean(lats, nil), Lon: stat.Mean(lons, nil)}, nil
}

// RegionForPoints returns a region covering all points with RegionPadding
// applied to both spans. The result is never narrower than the screen
// aspect (width/height) requires: each span is raised to what the other
// span implies. Non-positive aspect is treated as 1.
func RegionForPoints(points []Point, aspect float64) (Region, error) {
	if len(points) == 0 {
		return Region{}, fmt.Errorf("region for empty point list: %w", ErrInvalidInput)
	}
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}

	minLat, maxLat := points[0].Lat, points[0].Lat
	minLon, maxLon := points[0].Lon, points[0].Lon
	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	r := Region{
		Lat:      (minLat + maxLat) / 2,
		Lon:      (minLon + maxLon) / 2,
		LatDelta: (maxLat - minLat) * RegionPadding,
		LonDelta: (maxLon - minLon) * RegionPadding,
	}
	minLonDelta := aspect * r.LatDelta
	minLatDelta := r.LonDelta / aspect
	r.LatDelta = math.Max(minLatDelta, r.LatDelta)
	r.LonDelta = math.Max(minLonDelta, r.LonDelta)
	return r, nil
}

// PixelDistanceToRegionUnits converts a screen distance into the angular
// unit of region. The scale is linear in the latitude span, so the same
// pixel distance gets smaller in degrees as the map zooms in.
// A non-positive viewport height converts everything to 0.
func PixelDistanceToRegionUnits(region Region, pixels, viewportHeight float64) float64 {
	if viewportHeight <= 0 {
		return 0
	}
	return region.LatDelta / viewportHeight * pixels
}
