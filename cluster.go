package cluster

import "math"

// RawCluster is one group of a partition, before it gets an identity.
// Points are marker indexes in merge order, not sorted.
type RawCluster struct {
	Points []int `json:"points"`
	Center Point `json:"center"`
}

// Clusterize partitions points so that no two cluster centers are closer
// than minDistance. Indexes in the result refer to the points slice.
//
// The approach is greedy agglomeration with restart:
// every pair of groups (i, j>i) is scanned in order, the first pair closer
// than minDistance is merged into i, and the scan starts over.
// For a fixed input order and threshold the partition is always the same,
// cluster identities depend on that.
//
// Cost is cubic in the worst case, it is meant for hundreds of markers.
func Clusterize(points []Point, minDistance float64) ([]RawCluster, error) {
	if minDistance <= 0 || math.IsNaN(minDistance) {
		return ClusterizeSqr(points, 0)
	}
	return ClusterizeSqr(points, minDistance*minDistance)
}

// ClusterizeSqr is Clusterize with the threshold already squared.
// A non-positive or NaN threshold yields singletons only, and a point with
// a NaN coordinate never merges.
func ClusterizeSqr(points []Point, minDistanceSqr float64) ([]RawCluster, error) {
	if len(points) == 0 {
		return nil, nil
	}

	groups := make([]RawCluster, len(points))
	for i, p := range points {
		groups[i] = RawCluster{Points: []int{i}, Center: p}
	}
	if minDistanceSqr <= 0 || math.IsNaN(minDistanceSqr) {
		return groups, nil
	}

	// each merge shortens the list, so the loop ends after at most N-1 merges
	for dirty := true; dirty; {
		dirty = false
	scan:
		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				if !(DistanceSqr(groups[i].Center, groups[j].Center) < minDistanceSqr) {
					continue
				}
				merged := make([]int, 0, len(groups[i].Points)+len(groups[j].Points))
				merged = append(merged, groups[i].Points...)
				merged = append(merged, groups[j].Points...)
				center, err := centerOf(points, merged)
				if err != nil {
					return nil, err
				}
				groups[i] = RawCluster{Points: merged, Center: center}
				groups = append(groups[:j], groups[j+1:]...)
				dirty = true
				break scan
			}
		}
	}

	for i := range groups {
		center, err := centerOf(points, groups[i].Points)
		if err != nil {
			return nil, err
		}
		groups[i].Center = center
	}
	return groups, nil
}

// centerOf resolves indexes to coordinates and returns their centroid
func centerOf(points []Point, idxs []int) (Point, error) {
	members := make([]Point, len(idxs))
	for k, idx := range idxs {
		members[k] = points[idx]
	}
	return Centroid(members)
}
