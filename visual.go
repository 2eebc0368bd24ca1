package cluster

import "strconv"

// Shape of a cluster visual
const (
	ShapeCircle = "circle"
	ShapeMarker = "marker"
)

// Visual describes how a cluster is drawn. The surface decides what the
// fields mean for its own drawing primitives.
type Visual struct {
	Shape  string  `json:"shape"`
	Label  string  `json:"label,omitempty"`
	Count  int     `json:"count"`
	Radius float64 `json:"radius"`
}

// VisualFactory builds the visual for a cluster
type VisualFactory func(c Cluster, opts Options) Visual

// DefaultVisual draws multi-point clusters as a round badge with the
// point count. The badge is as wide as the clustering distance, so two
// badges never overlap much. Single points keep the marker look.
func DefaultVisual(c Cluster, opts Options) Visual {
	n := len(c.Points)
	if n <= 1 {
		return Visual{Shape: ShapeMarker, Count: n}
	}
	return Visual{
		Shape:  ShapeCircle,
		Label:  strconv.Itoa(n),
		Count:  n,
		Radius: opts.MinDistance / 2,
	}
}

// Cluster is the public shape of a group of markers
type Cluster struct {
	Center Point   `json:"center"`
	Points []Point `json:"points"`
}
