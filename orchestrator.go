package cluster

import (
	"fmt"
	"strconv"
	"time"
)

// Phase of the per-view state machine:
// Idle -> Clustering -> Animating -> Settled -> Idle
type Phase int

const (
	Idle Phase = iota
	Clustering
	Animating
	Settled
)

var phaseNames = [...]string{"idle", "clustering", "animating", "settled"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
	return phaseNames[p]
}

// MarshalText writes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is everything a view remembers between region changes.
// It is a value: Step and Settle return a new State and never touch the
// one they were given.
type State struct {
	// Previous is the settled partition the next pass is compared to
	Previous   []IdentifiedCluster
	LastRegion Region
	HasRegion  bool

	// Pending is the partition being animated to, promoted on Settle or
	// when the next region change preempts the animation
	Pending       []IdentifiedCluster
	PendingRegion Region

	// Proxies are identities dissolved since the last settle. Their anchors
	// stay alive for the converge animation and are discarded on Settle.
	Proxies []Hash

	ZoomingIn bool
	Phase     Phase
}

// Forget drops both partitions and all proxies but keeps the region.
// Used when the marker list changed, indexes of the old list mean nothing.
func (s State) Forget() State {
	region, ok := s.Region()
	return State{LastRegion: region, HasRegion: ok}
}

// Region is the region of the partition on screen: the pending one while
// animating, the settled one otherwise
func (s State) Region() (Region, bool) {
	if s.Phase == Animating {
		return s.PendingRegion, true
	}
	return s.LastRegion, s.HasRegion
}

// Clusters is the partition on screen, see Region
func (s State) Clusters() []IdentifiedCluster {
	if s.Phase == Animating {
		return s.Pending
	}
	return s.Previous
}

// Input of one clustering pass
type Input struct {
	Region       Region
	Points       []Point
	Threshold    float64 // degrees, see PixelDistanceToRegionUnits
	MoveDuration time.Duration
	ShowClusters bool
}

// CommandKind says what a Command does to the surface
type CommandKind int

const (
	// MoveMarker animates marker Marker to To
	MoveMarker CommandKind = iota
	// SpawnAnchor creates the anchor of Cluster at From. When Parent is set
	// and its anchor is still alive, the anchor starts at the parent's
	// current position instead, so a preempted animation does not jump.
	SpawnAnchor
	// MoveAnchor animates the anchor of Cluster to To
	MoveAnchor
	// MoveProxy animates the anchor of a dissolved Cluster into the anchor
	// position of Parent, the cluster that absorbed it
	MoveProxy
	// DiscardProxy removes the anchor of Cluster
	DiscardProxy
	// SnapAnchor stops the anchor of Cluster and puts it at To, creating
	// the anchor if needed
	SnapAnchor
	// SnapMarker stops marker Marker and puts it at To
	SnapMarker
)

var commandNames = [...]string{
	"move_marker", "spawn_anchor", "move_anchor", "move_proxy",
	"discard_proxy", "snap_anchor", "snap_marker",
}

func (k CommandKind) String() string {
	if k < 0 || int(k) >= len(commandNames) {
		return "command(" + strconv.Itoa(int(k)) + ")"
	}
	return commandNames[k]
}

// MarshalText writes the command kind by name
func (k CommandKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Command is one instruction for the animation surface
type Command struct {
	Kind     CommandKind   `json:"kind"`
	Marker   int           `json:"marker"`
	Cluster  Hash          `json:"cluster,omitempty"`
	Parent   Hash          `json:"parent,omitempty"`
	From     Point         `json:"from"`
	To       Point         `json:"to"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Plan is the outcome of one pass
type Plan struct {
	Transition
	Region    Region    `json:"region"`
	Commands  []Command `json:"commands"`
	Preempted bool      `json:"preempted"`

	// Warnings are non fatal problems, currently only ErrMissingParent
	Warnings []error `json:"-"`
}

// Step runs one pass for a region change: cluster the points, diff the
// result against the last partition and plan the animations.
// If the clustering fails, s is returned unchanged with the error.
func Step(s State, in Input) (State, Plan, error) {
	prev, lastRegion, hasRegion := s.Previous, s.LastRegion, s.HasRegion
	proxies := s.Proxies
	preempted := s.Phase == Animating
	if preempted {
		// the in-flight partition is what is on screen now
		prev, lastRegion, hasRegion = s.Pending, s.PendingRegion, true
	}
	zoomingIn := hasRegion && IsZoomingIn(lastRegion, in.Region)

	raw, err := Clusterize(in.Points, in.Threshold)
	if err != nil {
		return s, Plan{}, fmt.Errorf("clustering pass: %w", err)
	}
	curr := Identify(raw)
	t := Diff(prev, curr, zoomingIn)

	plan := Plan{Transition: t, Region: in.Region, Preempted: preempted}
	if in.ShowClusters {
		if zoomingIn {
			plan.planSplits(in.MoveDuration)
		} else {
			plan.planMerges(in.MoveDuration)
		}
	}
	plan.planMarkers(in.MoveDuration)

	next := State{
		Previous:      prev,
		LastRegion:    lastRegion,
		HasRegion:     hasRegion,
		Pending:       curr,
		PendingRegion: in.Region,
		Proxies:       appendProxies(proxies, prev, t.Dissolved),
		ZoomingIn:     zoomingIn,
		Phase:         Animating,
	}
	return next, plan, nil
}

// planSplits starts every fresh cluster at the position of its first
// parent and spreads it out to its own center
func (p *Plan) planSplits(d time.Duration) {
	for _, i := range p.Fresh {
		c := p.Current[i]
		spawn := Command{Kind: SpawnAnchor, Cluster: c.ID, From: c.Center, To: c.Center}
		if parent, ok := p.Parent(i); ok {
			spawn.Parent = parent.ID
			spawn.From = parent.Center
		} else if len(p.Previous) > 0 {
			p.Warnings = append(p.Warnings, fmt.Errorf("cluster %s: %w", c.ID, ErrMissingParent))
		}
		p.Commands = append(p.Commands, spawn, Command{
			Kind: MoveAnchor, Cluster: c.ID, From: spawn.From, To: c.Center, Duration: d,
		})
	}
}

// planMerges moves every dissolved cluster into the first new cluster that
// took its points. New clusters appear at their destination.
func (p *Plan) planMerges(d time.Duration) {
	spawned := make(map[int]bool, len(p.Fresh))
	fresh := make(map[int]bool, len(p.Fresh))
	for _, i := range p.Fresh {
		fresh[i] = true
	}

	for _, j := range p.Dissolved {
		old := p.Previous[j]
		for i, c := range p.Current {
			if CommonMarkersCount(old.Points, c.Points) == 0 {
				continue
			}
			if fresh[i] && !spawned[i] {
				spawned[i] = true
				p.Commands = append(p.Commands, Command{Kind: SpawnAnchor, Cluster: c.ID, From: c.Center, To: c.Center})
			}
			p.Commands = append(p.Commands, Command{
				Kind: MoveProxy, Cluster: old.ID, Parent: c.ID, From: old.Center, To: c.Center, Duration: d,
			})
			break
		}
	}

	for _, i := range p.Fresh {
		if spawned[i] {
			continue
		}
		c := p.Current[i]
		p.Commands = append(p.Commands, Command{Kind: SpawnAnchor, Cluster: c.ID, From: c.Center, To: c.Center})
	}
}

// planMarkers moves the markers of every fresh cluster to its center.
// For a lone marker that did not move this is a no-op animation.
func (p *Plan) planMarkers(d time.Duration) {
	for _, i := range p.Fresh {
		c := p.Current[i]
		for _, m := range c.Points {
			p.Commands = append(p.Commands, Command{
				Kind: MoveMarker, Marker: m, Cluster: c.ID, To: c.Center, Duration: d,
			})
		}
	}
}

func appendProxies(proxies []Hash, prev []IdentifiedCluster, dissolved []int) []Hash {
	if len(dissolved) == 0 {
		return proxies
	}
	out := make([]Hash, len(proxies), len(proxies)+len(dissolved))
	copy(out, proxies)
	for _, j := range dissolved {
		out = append(out, prev[j].ID)
	}
	return out
}

// Settle finishes the animation: proxies are discarded, anchors and
// markers of the pending partition are snapped to their exact centers and
// the pending partition becomes the baseline for the next pass.
// Outside the Animating phase it does nothing.
func Settle(s State) (State, []Command) {
	if s.Phase != Animating {
		return s, nil
	}

	live := make(map[Hash]bool, len(s.Pending))
	for _, c := range s.Pending {
		live[c.ID] = true
	}

	var cmds []Command
	discarded := make(map[Hash]bool, len(s.Proxies))
	for _, id := range s.Proxies {
		if live[id] || discarded[id] {
			continue
		}
		discarded[id] = true
		cmds = append(cmds, Command{Kind: DiscardProxy, Cluster: id})
	}
	for _, c := range s.Pending {
		cmds = append(cmds, Command{Kind: SnapAnchor, Cluster: c.ID, From: c.Center, To: c.Center})
		for _, m := range c.Points {
			cmds = append(cmds, Command{Kind: SnapMarker, Marker: m, Cluster: c.ID, From: c.Center, To: c.Center})
		}
	}

	return State{
		Previous:   s.Pending,
		LastRegion: s.PendingRegion,
		HasRegion:  true,
		ZoomingIn:  s.ZoomingIn,
		Phase:      Idle,
	}, cmds
}
