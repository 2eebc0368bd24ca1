package cluster

import "errors"

var (
	// ErrInvalidInput is returned for an empty point list where at least one
	// point is required. Clusters are never empty, so seeing it means the
	// caller broke the contract. The pass that hit it is abandoned.
	ErrInvalidInput = errors.New("cluster: invalid input")

	// ErrMissingParent marks a freshly split cluster with no overlapping
	// cluster in the previous partition. It is reported in Plan.Warnings and
	// never fails a pass: the cluster anchor simply starts at its own center.
	ErrMissingParent = errors.New("cluster: missing parent")
)

// ErrLoopStopped is returned by Loop.Do once the loop has exited
var ErrLoopStopped = errors.New("cluster: loop stopped")
