package cluster

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moveDuration = 300 * time.Millisecond

// two pairs 0.0001 apart, the pairs 0.001 apart
var quad = []Point{
	{Lat: 0, Lon: 0},
	{Lat: 0, Lon: 0.0001},
	{Lat: 0.001, Lon: 0},
	{Lat: 0.001, Lon: 0.0001},
}

func input(points []Point, latDelta, threshold float64) Input {
	return Input{
		Region:       Region{LatDelta: latDelta, LonDelta: latDelta},
		Points:       points,
		Threshold:    threshold,
		MoveDuration: moveDuration,
		ShowClusters: true,
	}
}

func kinds(cmds []Command) []CommandKind {
	result := make([]CommandKind, len(cmds))
	for i, c := range cmds {
		result[i] = c.Kind
	}
	return result
}

func settled(t *testing.T, in Input) State {
	t.Helper()
	s, _, err := Step(State{}, in)
	require.NoError(t, err)
	s, _ = Settle(s)
	return s
}

func TestStepSplitOnZoomIn(t *testing.T) {
	s := settled(t, input(quad, 1, 0.05))
	require.Len(t, s.Previous, 1)
	parent := s.Previous[0]
	assert.Equal(t, []int{0, 1, 2, 3}, parent.Points)

	next, plan, err := Step(s, input(quad, 0.01, 0.0005))
	require.NoError(t, err)

	assert.True(t, plan.ZoomingIn)
	assert.Empty(t, plan.Warnings)
	require.Len(t, plan.Current, 2)
	assert.Equal(t, []int{0, 1}, plan.Current[0].Points)
	assert.Equal(t, []int{2, 3}, plan.Current[1].Points)
	assert.Equal(t, []Change{Split, Split}, plan.Kinds)
	assert.Equal(t, []int{0}, plan.Parents[0])
	assert.Equal(t, []int{0}, plan.Parents[1])

	assert.Equal(t, []CommandKind{
		SpawnAnchor, MoveAnchor, SpawnAnchor, MoveAnchor,
		MoveMarker, MoveMarker, MoveMarker, MoveMarker,
	}, kinds(plan.Commands))
	for i, c := range plan.Current {
		spawn, move := plan.Commands[2*i], plan.Commands[2*i+1]
		assert.Equal(t, c.ID, spawn.Cluster)
		assert.Equal(t, parent.ID, spawn.Parent)
		assert.Equal(t, parent.Center, spawn.From, "anchors start at the old center")
		assert.Equal(t, parent.Center, move.From)
		assert.Equal(t, c.Center, move.To)
		assert.Equal(t, moveDuration, move.Duration)
	}

	assert.Equal(t, Animating, next.Phase)
	assert.True(t, next.ZoomingIn)
	assert.Equal(t, []Hash{parent.ID}, next.Proxies)
	assert.Equal(t, 0.01, next.PendingRegion.LatDelta)
	assert.Equal(t, 1.0, next.LastRegion.LatDelta)
}

func TestStepMergeOnZoomOut(t *testing.T) {
	pair := quad[:2]
	s := settled(t, input(pair, 0.001, 0.00005))
	require.Len(t, s.Previous, 2)

	_, plan, err := Step(s, input(pair, 1, 0.05))
	require.NoError(t, err)

	assert.False(t, plan.ZoomingIn)
	require.Len(t, plan.Current, 1)
	target := plan.Current[0]
	assert.Equal(t, []Change{Merged}, plan.Kinds)
	assert.Equal(t, []int{0, 1}, plan.Dissolved)

	assert.Equal(t, []CommandKind{SpawnAnchor, MoveProxy, MoveProxy, MoveMarker, MoveMarker}, kinds(plan.Commands))
	assert.Equal(t, target.Center, plan.Commands[0].From, "merged cluster appears at its destination")
	for j, c := range plan.Commands[1:3] {
		assert.Equal(t, s.Previous[j].ID, c.Cluster)
		assert.Equal(t, target.ID, c.Parent)
		assert.Equal(t, s.Previous[j].Center, c.From)
		assert.Equal(t, target.Center, c.To)
	}
	assert.InDelta(t, 0.00005, target.Center.Lon, 1e-12)
}

func TestStepEachDissolvedMovesOnce(t *testing.T) {
	// 4 singletons become one cluster: one spawn, four proxies
	s := settled(t, input(quad, 0.001, 0.00001))
	require.Len(t, s.Previous, 4)

	_, plan, err := Step(s, input(quad, 1, 0.05))
	require.NoError(t, err)
	assert.Equal(t, []CommandKind{
		SpawnAnchor, MoveProxy, MoveProxy, MoveProxy, MoveProxy,
		MoveMarker, MoveMarker, MoveMarker, MoveMarker,
	}, kinds(plan.Commands))
}

func TestStepUnchangedEmitsNothing(t *testing.T) {
	in := input(quad, 0.01, 0.0005)
	s := settled(t, in)

	next, plan, err := Step(s, in)
	require.NoError(t, err)
	assert.Empty(t, plan.Commands)
	assert.Equal(t, []Change{Unchanged, Unchanged}, plan.Kinds)
	assert.Empty(t, next.Proxies)
}

func TestStepFirstPass(t *testing.T) {
	next, plan, err := Step(State{}, input(quad, 0.01, 0.0005))
	require.NoError(t, err)

	assert.False(t, plan.ZoomingIn, "no previous region")
	assert.False(t, next.HasRegion)
	assert.Equal(t, []Change{Appeared, Appeared}, plan.Kinds)
	assert.Equal(t, []CommandKind{SpawnAnchor, SpawnAnchor, MoveMarker, MoveMarker, MoveMarker, MoveMarker}, kinds(plan.Commands))

	region, ok := next.Region()
	assert.True(t, ok)
	assert.Equal(t, 0.01, region.LatDelta)
}

func TestStepWithoutClusters(t *testing.T) {
	s := settled(t, input(quad, 1, 0.05))

	in := input(quad, 0.01, 0)
	in.ShowClusters = false
	_, plan, err := Step(s, in)
	require.NoError(t, err)

	assert.Len(t, plan.Current, 4)
	for _, c := range plan.Commands {
		assert.Equal(t, MoveMarker, c.Kind)
	}
	assert.Len(t, plan.Commands, 4)
}

func TestStepMissingParent(t *testing.T) {
	s := State{
		Previous:   Identify([]RawCluster{{Points: []int{7}, Center: Point{Lat: 5, Lon: 5}}}),
		LastRegion: Region{LatDelta: 1},
		HasRegion:  true,
	}
	_, plan, err := Step(s, input(quad[:1], 0.5, 0.01))
	require.NoError(t, err)

	require.Len(t, plan.Warnings, 1)
	assert.True(t, errors.Is(plan.Warnings[0], ErrMissingParent))
	require.Equal(t, SpawnAnchor, plan.Commands[0].Kind)
	assert.Equal(t, quad[0], plan.Commands[0].From, "without a parent the anchor starts in place")
	assert.Equal(t, Hash(0), plan.Commands[0].Parent)
}

func TestStepPreemptsAnimation(t *testing.T) {
	s := settled(t, input(quad, 1, 0.05))

	mid, first, err := Step(s, input(quad, 0.01, 0.0005))
	require.NoError(t, err)
	assert.False(t, first.Preempted)

	// zoom further before the split settles: pairs break up
	next, plan, err := Step(mid, input(quad, 0.0001, 0.00001))
	require.NoError(t, err)

	assert.True(t, plan.Preempted)
	assert.True(t, plan.ZoomingIn, "compared with the in-flight region")
	assert.Equal(t, first.Current, plan.Previous)
	assert.Equal(t, []Change{Split, Split, Split, Split}, plan.Kinds)
	assert.Len(t, next.Proxies, 3, "the old cluster and both pairs")
	assert.Equal(t, 0.01, next.LastRegion.LatDelta)
}

func TestSettle(t *testing.T) {
	s := settled(t, input(quad, 1, 0.05))
	animating, plan, err := Step(s, input(quad, 0.01, 0.0005))
	require.NoError(t, err)

	idle, cmds := Settle(animating)
	assert.Equal(t, []CommandKind{
		DiscardProxy,
		SnapAnchor, SnapMarker, SnapMarker,
		SnapAnchor, SnapMarker, SnapMarker,
	}, kinds(cmds))
	assert.Equal(t, s.Previous[0].ID, cmds[0].Cluster)
	assert.Equal(t, plan.Current[1].Center, cmds[4].To)

	assert.Equal(t, Idle, idle.Phase)
	assert.Equal(t, plan.Current, idle.Previous)
	assert.Nil(t, idle.Pending)
	assert.Empty(t, idle.Proxies)
	assert.Equal(t, 0.01, idle.LastRegion.LatDelta)

	again, cmds := Settle(idle)
	assert.Nil(t, cmds)
	assert.Equal(t, idle, again)
}

func TestSettleKeepsProxiesThatCameBack(t *testing.T) {
	s := settled(t, input(quad, 1, 0.05))
	mid, _, err := Step(s, input(quad, 0.01, 0.0005))
	require.NoError(t, err)
	// back out before settling: the original cluster is live again
	back, _, err := Step(mid, input(quad, 1, 0.05))
	require.NoError(t, err)

	_, cmds := Settle(back)
	for _, c := range cmds {
		if c.Kind == DiscardProxy {
			assert.NotEqual(t, s.Previous[0].ID, c.Cluster)
		}
	}
	assert.Equal(t, 2, countKind(cmds, DiscardProxy))
}

func countKind(cmds []Command, k CommandKind) int {
	n := 0
	for _, c := range cmds {
		if c.Kind == k {
			n++
		}
	}
	return n
}

func TestForget(t *testing.T) {
	s := settled(t, input(quad, 1, 0.05))
	animating, _, err := Step(s, input(quad, 0.01, 0.0005))
	require.NoError(t, err)

	f := animating.Forget()
	assert.Empty(t, f.Previous)
	assert.Empty(t, f.Pending)
	assert.Empty(t, f.Proxies)
	assert.Equal(t, Idle, f.Phase)
	region, ok := f.Region()
	assert.True(t, ok)
	assert.Equal(t, 0.01, region.LatDelta, "the region on screen is kept")

	_, ok = State{}.Forget().Region()
	assert.False(t, ok)
}

func TestOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 30.0, opts.MinDistance)
	assert.Equal(t, 300*time.Millisecond, opts.MoveDuration)
	assert.True(t, opts.ShowClusters)
	assert.Equal(t, 0.0, opts.PressRadius)
	assert.NoError(t, opts.Validate())

	assert.InDelta(t, 3.0, opts.threshold(Region{LatDelta: 60}, 600), 1e-12)
	opts.ShowClusters = false
	assert.Equal(t, 0.0, opts.threshold(Region{LatDelta: 60}, 600))

	assert.Error(t, Options{MinDistance: -1}.Validate())
	assert.Error(t, Options{MoveDuration: -time.Second}.Validate())
	assert.Error(t, Options{PressRadius: -1}.Validate())
	assert.Error(t, Options{MinDistance: math.NaN()}.Validate())
	assert.Error(t, Options{PressRadius: math.NaN()}.Validate())
}

func TestCommandAndPhaseNames(t *testing.T) {
	assert.Equal(t, "move_proxy", MoveProxy.String())
	assert.Equal(t, "command(99)", CommandKind(99).String())
	assert.Equal(t, "animating", Animating.String())
	b, err := Settled.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "settled", string(b))
}
