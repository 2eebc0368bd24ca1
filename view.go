package cluster

import (
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/MadAppGang/animcluster/internal/timeutil"
)

// Animated is one interpolated position on the surface: a marker or the
// anchor of a cluster badge.
type Animated interface {
	// Timing starts moving the value from where it is now to `to`.
	// A running animation is retargeted, not restarted from its origin.
	Timing(to Point, d time.Duration)
	Stop()
	SetValue(p Point)
	Value() Point
}

// Surface creates animated values, it is the only thing a view needs from
// the map renderer.
type Surface interface {
	NewAnimated(at Point) Animated
}

// View keeps the clusters of one map in sync with its visible region.
//
// A View is not safe for concurrent use, wrap it in a Loop when region
// changes come from another goroutine.
type View struct {
	Options Options

	// OnPressMarker is called with the coordinates and index of a tapped
	// lone marker
	OnPressMarker func(p Point, index int)
	// OnPressCluster is called when a tap hits a cluster of several markers
	OnPressCluster func(c Cluster)
	// OnRegionChangeComplete is called after every successful pass.
	// The plan of the pass is what RegionChanged returns.
	OnRegionChangeComplete func(r Region)

	// Visuals builds cluster visuals for Snapshot, DefaultVisual when nil
	Visuals VisualFactory
	Logger  *slog.Logger
	Metrics *Metrics
	Clock   timeutil.Clock

	surface        Surface
	device         Device
	viewportHeight float64

	loaded  bool
	points  []Point
	markers []Animated
	anchors map[Hash]Animated

	state    State
	settleAt time.Time
	press    *pressIndex
}

// NewView creates a view drawing on surface with opts.
// Markers are added with SetMarkers, clustering starts with the first
// RegionChanged.
func NewView(surface Surface, opts Options) *View {
	return &View{
		Options: opts,
		Clock:   timeutil.RealClock{},
		surface: surface,
		anchors: make(map[Hash]Animated),
	}
}

// SetViewportHeight sets the height in pixels of the map widget.
// Pixel distances of Options are converted with it.
func (v *View) SetViewportHeight(h float64) {
	v.viewportHeight = h
}

// SetDevice sets the screen size, used for the aspect of FitRegion and as
// the viewport height when none was set.
func (v *View) SetDevice(d Device) {
	v.device = d
}

// State returns a copy of the view state
func (v *View) State() State {
	return v.state
}

// SetMarkers replaces the marker list.
// The same coordinates in the same order are a no-op, so callers may push
// the list on every render. Otherwise all animated values are recreated at
// the marker coordinates and, when a region is known, a fresh pass is run.
func (v *View) SetMarkers(markers []GeoPoint) error {
	points := make([]Point, len(markers))
	for i, m := range markers {
		points[i] = m.GetCoordinates()
	}
	if v.loaded && slices.Equal(points, v.points) {
		return nil
	}

	for _, m := range v.markers {
		m.Stop()
	}
	for id, a := range v.anchors {
		a.Stop()
		delete(v.anchors, id)
	}

	v.loaded = true
	v.points = points
	v.markers = make([]Animated, len(points))
	for i, p := range points {
		v.markers[i] = v.surface.NewAnimated(p)
	}
	v.state = v.state.Forget()
	v.settleAt = time.Time{}
	v.press = nil
	v.logger().Debug("markers replaced", "markers", len(points))

	if region, ok := v.state.Region(); ok {
		_, err := v.RegionChanged(region)
		return err
	}
	return nil
}

// RegionChanged runs a clustering pass for region and starts the
// animations of the resulting plan. A pass started while the previous one
// is still animating takes over from where the values are now.
// On error nothing changes.
func (v *View) RegionChanged(region Region) (Plan, error) {
	start := v.clock().Now()
	in := Input{
		Region:       region,
		Points:       v.points,
		Threshold:    v.Options.threshold(region, v.height()),
		MoveDuration: v.Options.MoveDuration,
		ShowClusters: v.Options.ShowClusters,
	}
	next, plan, err := Step(v.state, in)
	if err != nil {
		v.Metrics.observeFailure()
		v.logger().Error("clustering pass failed", "error", err, "markers", len(v.points))
		return Plan{}, err
	}

	v.state = next
	v.execute(plan.Commands)
	v.press = newPressIndex(next.Pending)
	v.settleAt = v.clock().Now().Add(v.Options.MoveDuration)

	for _, w := range plan.Warnings {
		v.logger().Warn("degraded split animation", "error", w)
	}
	v.Metrics.observePass(plan, v.clock().Since(start))
	v.logger().Debug("clustering pass",
		"clusters", len(plan.Current),
		"fresh", len(plan.Fresh),
		"dissolved", len(plan.Dissolved),
		"zooming_in", plan.ZoomingIn,
		"preempted", plan.Preempted,
		"commands", len(plan.Commands),
	)

	if v.OnRegionChangeComplete != nil {
		v.OnRegionChangeComplete(region)
	}
	return plan, nil
}

// Settle ends the running animation: proxies go away and every marker and
// anchor is put exactly on its cluster center.
// It reports false when nothing was animating.
func (v *View) Settle() bool {
	if v.state.Phase != Animating {
		return false
	}
	next, cmds := Settle(v.state)
	v.state = next
	v.execute(cmds)
	v.settleAt = time.Time{}
	v.Metrics.observeSettle()
	v.logger().Debug("animation settled", "clusters", len(next.Previous))
	return true
}

// SettleDue returns when the running animation should settle.
// ok is false when nothing is animating.
func (v *View) SettleDue() (deadline time.Time, ok bool) {
	if v.state.Phase != Animating {
		return time.Time{}, false
	}
	return v.settleAt, true
}

// SettleIfDue settles when the deadline has passed
func (v *View) SettleIfDue() bool {
	deadline, ok := v.SettleDue()
	if !ok || v.clock().Now().Before(deadline) {
		return false
	}
	return v.Settle()
}

// Press resolves a tap at p against the clusters on screen and calls
// OnPressMarker or OnPressCluster. It reports whether anything was hit.
func (v *View) Press(p Point) bool {
	radius := 0.0
	if region, ok := v.state.Region(); ok {
		radius = PixelDistanceToRegionUnits(region, v.Options.PressRadius, v.height())
	}
	c, ok := v.press.resolve(p, radius)
	if !ok {
		v.Metrics.observePress("none")
		return false
	}

	if len(c.Points) == 1 {
		v.Metrics.observePress("marker")
		idx := c.Points[0]
		if v.OnPressMarker != nil {
			v.OnPressMarker(v.points[idx], idx)
		}
		return true
	}

	v.Metrics.observePress("cluster")
	if v.OnPressCluster != nil {
		v.OnPressCluster(v.publicCluster(c.RawCluster))
	}
	return true
}

// FitRegion returns a region showing every marker, shaped for the device.
// Feed it to the map to animate to the markers.
func (v *View) FitRegion() (Region, error) {
	return RegionForPoints(v.points, v.device.Aspect())
}

// ClusterView is a cluster as it is on screen now
type ClusterView struct {
	ID      Hash   `json:"id"`
	Center  Point  `json:"center"`
	Anchor  Point  `json:"anchor"`
	Markers []int  `json:"markers"`
	Visual  Visual `json:"visual"`
}

// ProxyView is the anchor of a dissolved cluster still converging
type ProxyView struct {
	ID     Hash  `json:"id"`
	Anchor Point `json:"anchor"`
}

// Snapshot is the drawable state of a view
type Snapshot struct {
	Region   Region        `json:"region"`
	Phase    Phase         `json:"phase"`
	Clusters []ClusterView `json:"clusters"`
	Proxies  []ProxyView   `json:"proxies"`
	Markers  []Point       `json:"markers"`
}

// Snapshot reads the current animated values of all markers and anchors
func (v *View) Snapshot() Snapshot {
	region, _ := v.state.Region()
	s := Snapshot{
		Region:   region,
		Phase:    v.state.Phase,
		Clusters: []ClusterView{},
		Proxies:  []ProxyView{},
		Markers:  make([]Point, len(v.markers)),
	}
	for i, m := range v.markers {
		s.Markers[i] = m.Value()
	}

	live := make(map[Hash]bool)
	for _, c := range v.state.Clusters() {
		live[c.ID] = true
		cv := ClusterView{
			ID:      c.ID,
			Center:  c.Center,
			Anchor:  c.Center,
			Markers: sortedCopy(c.Points),
			Visual:  v.visual(c.RawCluster),
		}
		if a, ok := v.anchors[c.ID]; ok {
			cv.Anchor = a.Value()
		}
		s.Clusters = append(s.Clusters, cv)
	}
	for _, id := range v.state.Proxies {
		a, ok := v.anchors[id]
		if !ok || live[id] {
			continue
		}
		live[id] = true
		s.Proxies = append(s.Proxies, ProxyView{ID: id, Anchor: a.Value()})
	}
	return s
}

// execute applies commands to markers and anchors
func (v *View) execute(cmds []Command) {
	for _, c := range cmds {
		switch c.Kind {
		case MoveMarker:
			if m := v.marker(c.Marker); m != nil {
				m.Timing(c.To, c.Duration)
			}
		case SnapMarker:
			if m := v.marker(c.Marker); m != nil {
				m.Stop()
				m.SetValue(c.To)
			}
		case SpawnAnchor:
			if _, ok := v.anchors[c.Cluster]; ok {
				continue
			}
			from := c.From
			if parent, ok := v.anchors[c.Parent]; ok && c.Parent != 0 {
				from = parent.Value()
			}
			v.anchors[c.Cluster] = v.surface.NewAnimated(from)
		case MoveAnchor:
			if a, ok := v.anchors[c.Cluster]; ok {
				a.Timing(c.To, c.Duration)
			}
		case MoveProxy:
			a, ok := v.anchors[c.Cluster]
			if !ok {
				a = v.surface.NewAnimated(c.From)
				v.anchors[c.Cluster] = a
			}
			a.Timing(c.To, c.Duration)
		case DiscardProxy:
			if a, ok := v.anchors[c.Cluster]; ok {
				a.Stop()
				delete(v.anchors, c.Cluster)
			}
		case SnapAnchor:
			if !v.Options.ShowClusters {
				continue
			}
			a, ok := v.anchors[c.Cluster]
			if !ok {
				v.anchors[c.Cluster] = v.surface.NewAnimated(c.To)
				continue
			}
			a.Stop()
			a.SetValue(c.To)
		default:
			v.logger().Warn("unknown command", "kind", c.Kind.String())
		}
	}
}

func (v *View) marker(idx int) Animated {
	if idx < 0 || idx >= len(v.markers) {
		v.logger().Warn("command for unknown marker", "marker", idx, "markers", len(v.markers))
		return nil
	}
	return v.markers[idx]
}

// height is the viewport height, falling back to the device height
func (v *View) height() float64 {
	if v.viewportHeight > 0 {
		return v.viewportHeight
	}
	return v.device.Height
}

func (v *View) publicCluster(c RawCluster) Cluster {
	idxs := sortedCopy(c.Points)
	points := make([]Point, len(idxs))
	for i, idx := range idxs {
		points[i] = v.points[idx]
	}
	return Cluster{Center: c.Center, Points: points}
}

func (v *View) visual(c RawCluster) Visual {
	factory := v.Visuals
	if factory == nil {
		factory = DefaultVisual
	}
	return factory(v.publicCluster(c), v.Options)
}

func (v *View) logger() *slog.Logger {
	if v.Logger == nil {
		return slog.Default()
	}
	return v.Logger
}

func (v *View) clock() timeutil.Clock {
	if v.Clock == nil {
		return timeutil.RealClock{}
	}
	return v.Clock
}

func sortedCopy(idxs []int) []int {
	out := make([]int, len(idxs))
	copy(out, idxs)
	sort.Ints(out)
	return out
}
