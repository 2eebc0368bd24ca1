package cluster

import (
	"sort"

	"github.com/MadAppGang/kdbush"
)

// NodeSize of the KD-tree over cluster centers. Views rarely show more than
// a few hundred clusters, a small node keeps queries cheap.
const pressNodeSize = 16

// pressIndex resolves taps to clusters of one partition
type pressIndex struct {
	bush     *kdbush.KDBush
	clusters []IdentifiedCluster
}

func newPressIndex(clusters []IdentifiedCluster) *pressIndex {
	points := make([]kdbush.Point, len(clusters))
	for i := range clusters {
		points[i] = clusters[i].Center
	}
	return &pressIndex{
		bush:     kdbush.NewBush(points, pressNodeSize),
		clusters: clusters,
	}
}

// resolve returns the cluster whose center is nearest to p, at most radius
// away. With radius 0 only an exact hit on a center counts.
// Equal distances are broken by partition order.
func (idx *pressIndex) resolve(p Point, radius float64) (IdentifiedCluster, bool) {
	if idx == nil || len(idx.clusters) == 0 {
		return IdentifiedCluster{}, false
	}
	ids := idx.bush.Within(p, radius)
	if len(ids) == 0 {
		return IdentifiedCluster{}, false
	}
	sort.Ints(ids)

	best := ids[0]
	bestDist := DistanceSqr(p, idx.clusters[best].Center)
	for _, id := range ids[1:] {
		if d := DistanceSqr(p, idx.clusters[id].Center); d < bestDist {
			best, bestDist = id, d
		}
	}
	return idx.clusters[best], true
}
