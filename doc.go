// MIT License
//
// Copyright (c) 2016 MadAppGang

// Animated marker clustering for map views.
//
// animcluster groups map markers into clusters for the region currently on
// screen and, when the region changes, tells you how to animate from the old
// grouping to the new one: markers converge into a cluster when zooming out
// and spread out of it when zooming in.
//
// The clustering is a greedy agglomeration: the first pair of groups closer
// than MinDistance pixels is merged and the scan starts over, until nothing
// merges. The distance is converted to degrees of the visible region on every
// pass, so the same markers cluster differently at every zoom level.
//
// Clusters are rebuilt on every pass. They are told apart by an identity,
// a digest of their ordered marker indexes, and every pass is diffed against
// the previous one to find which clusters are new, which were split and which
// dissolved.
//
// Nothing is drawn here. The map renderer implements Surface and Animated,
// the view only moves points around:
//	//1.Create a view on your surface
//	v := cluster.NewView(surface, cluster.DefaultOptions())
//	v.SetViewportHeight(800)
//
//	//2.Convert slice of your objects to slice of GeoPoint (interface) objects
//	geoPoints := make([]cluster.GeoPoint, len(points))
//	for i := range points {
//		geoPoints[i] = points[i]
//	}
//	v.SetMarkers(geoPoints)
//
//	//3.Feed region changes, settle when the animation is over
//	plan, err := v.RegionChanged(region)
//	...
//	v.Settle()
//
// A View is single threaded. When regions come from another goroutine run the
// view inside a Loop, it keeps only the newest region and settles on time.
//
// All indexes you get back are indexes of the slice given to SetMarkers.
//
// Taps are resolved with a KD-tree over cluster centers, https://github.com/MadAppGang/kdbush
package cluster
