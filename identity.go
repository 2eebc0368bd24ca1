package cluster

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash identifies a cluster by its exact membership and merge order.
// Clusters are rebuilt on every pass, so two clusters are "the same" only
// when their index sequences are equal.
type Hash uint64

func (h Hash) String() string {
	return strconv.FormatUint(uint64(h), 16)
}

// MarshalText keeps hashes readable (and lossless) in JSON
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses the hexadecimal form written by MarshalText
func (h *Hash) UnmarshalText(b []byte) error {
	v, err := strconv.ParseUint(string(b), 16, 64)
	if err != nil {
		return err
	}
	*h = Hash(v)
	return nil
}

// IdentityOf digests an ordered index sequence
func IdentityOf(points []int) Hash {
	d := xxhash.New()
	var buf [8]byte
	for _, idx := range points {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(idx)))
		_, _ = d.Write(buf[:])
	}
	return Hash(d.Sum64())
}

// IdentifiedCluster is a RawCluster tagged with its identity
type IdentifiedCluster struct {
	RawCluster
	ID Hash `json:"id"`
}

// Identify tags every cluster of a partition with IdentityOf its points
func Identify(raw []RawCluster) []IdentifiedCluster {
	result := make([]IdentifiedCluster, len(raw))
	for i, c := range raw {
		result[i] = IdentifiedCluster{RawCluster: c, ID: IdentityOf(c.Points)}
	}
	return result
}

// CommonMarkersCount counts indexes of a that are also in b.
// Partitions never repeat an index inside a cluster, so the count is
// symmetric for clusters.
func CommonMarkersCount(a, b []int) int {
	count := 0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				count++
				break
			}
		}
	}
	return count
}

// IsZoomingIn reports whether next shows a smaller latitude span than prev
func IsZoomingIn(prev, next Region) bool {
	return next.LatDelta < prev.LatDelta
}

// Change classifies a cluster of the new partition against the old one
type Change int

const (
	// Unchanged: the same identity existed before
	Unchanged Change = iota
	// Merged: new identity built from points of two or more old clusters
	Merged
	// Split: new identity cut out of exactly one bigger old cluster
	Split
	// Reshaped: new identity with one old parent that it did not shrink from
	Reshaped
	// Appeared: new identity that shares no point with the old partition
	Appeared
)

var changeNames = [...]string{"unchanged", "merged", "split", "reshaped", "appeared"}

func (c Change) String() string {
	if c < 0 || int(c) >= len(changeNames) {
		return "change(" + strconv.Itoa(int(c)) + ")"
	}
	return changeNames[c]
}

// MarshalText writes the change by name
func (c Change) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Transition is the difference between two consecutive partitions
type Transition struct {
	Previous  []IdentifiedCluster `json:"previous"`
	Current   []IdentifiedCluster `json:"current"`
	ZoomingIn bool                `json:"zoomingIn"`

	// Kinds[i] classifies Current[i]
	Kinds []Change `json:"kinds"`

	// Fresh lists indexes into Current whose identity is not in Previous
	Fresh []int `json:"fresh"`

	// Parents maps a Fresh index to the indexes into Previous sharing at
	// least one point with it, in Previous order
	Parents map[int][]int `json:"parents"`

	// Dissolved lists indexes into Previous whose identity is not in Current
	Dissolved []int `json:"dissolved"`
}

// Parent returns the first overlapping previous cluster of Current[i]
func (t Transition) Parent(i int) (IdentifiedCluster, bool) {
	parents := t.Parents[i]
	if len(parents) == 0 {
		return IdentifiedCluster{}, false
	}
	return t.Previous[parents[0]], true
}

// Diff compares the new partition curr against prev.
// zoomingIn is carried through, it was computed from the regions before
// the new partition existed.
func Diff(prev, curr []IdentifiedCluster, zoomingIn bool) Transition {
	t := Transition{
		Previous:  prev,
		Current:   curr,
		ZoomingIn: zoomingIn,
		Kinds:     make([]Change, len(curr)),
		Parents:   make(map[int][]int),
	}

	prevIDs := make(map[Hash]struct{}, len(prev))
	for _, c := range prev {
		prevIDs[c.ID] = struct{}{}
	}
	currIDs := make(map[Hash]struct{}, len(curr))
	for _, c := range curr {
		currIDs[c.ID] = struct{}{}
	}

	for i, c := range curr {
		if _, ok := prevIDs[c.ID]; ok {
			t.Kinds[i] = Unchanged
			continue
		}
		t.Fresh = append(t.Fresh, i)

		var parents []int
		for j, p := range prev {
			if CommonMarkersCount(c.Points, p.Points) > 0 {
				parents = append(parents, j)
			}
		}
		if len(parents) > 0 {
			t.Parents[i] = parents
		}

		switch {
		case len(parents) == 0:
			t.Kinds[i] = Appeared
		case len(parents) > 1:
			t.Kinds[i] = Merged
		case len(prev[parents[0]].Points) > len(c.Points):
			t.Kinds[i] = Split
		default:
			t.Kinds[i] = Reshaped
		}
	}

	for j, p := range prev {
		if _, ok := currIDs[p.ID]; !ok {
			t.Dissolved = append(t.Dissolved, j)
		}
	}
	return t
}

// Count returns how many clusters of Current have kind k
func (t Transition) Count(k Change) int {
	n := 0
	for _, kind := range t.Kinds {
		if kind == k {
			n++
		}
	}
	return n
}
