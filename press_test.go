package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPressIndexExactHit(t *testing.T) {
	idx := newPressIndex(Identify([]RawCluster{
		{Points: []int{0}, Center: Point{Lat: 1, Lon: 1}},
		{Points: []int{1, 2}, Center: Point{Lat: 2, Lon: 3}},
	}))

	c, ok := idx.resolve(Point{Lat: 2, Lon: 3}, 0)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, c.Points)

	_, ok = idx.resolve(Point{Lat: 2, Lon: 3.0001}, 0)
	assert.False(t, ok, "radius 0 needs an exact hit")
}

func TestPressIndexNearestWins(t *testing.T) {
	idx := newPressIndex(Identify([]RawCluster{
		{Points: []int{0}, Center: Point{Lat: 0, Lon: 0}},
		{Points: []int{1}, Center: Point{Lat: 0, Lon: 1}},
		{Points: []int{2}, Center: Point{Lat: 0, Lon: 3}},
	}))

	c, ok := idx.resolve(Point{Lat: 0, Lon: 0.8}, 2)
	require.True(t, ok)
	assert.Equal(t, []int{1}, c.Points)

	_, ok = idx.resolve(Point{Lat: 10, Lon: 10}, 2)
	assert.False(t, ok)
}

func TestPressIndexTieGoesToPartitionOrder(t *testing.T) {
	idx := newPressIndex(Identify([]RawCluster{
		{Points: []int{5}, Center: Point{Lat: 1, Lon: 0}},
		{Points: []int{2}, Center: Point{Lat: -1, Lon: 0}},
	}))

	c, ok := idx.resolve(Point{}, 2)
	require.True(t, ok)
	assert.Equal(t, []int{5}, c.Points)
}

func TestPressIndexEmpty(t *testing.T) {
	_, ok := newPressIndex(nil).resolve(Point{}, 1)
	assert.False(t, ok)

	var idx *pressIndex
	_, ok = idx.resolve(Point{}, 1)
	assert.False(t, ok)
}
