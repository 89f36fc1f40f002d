// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package pf

import (
	"math"

	"github.com/js-arias/amcl/pose"
)

// Cluster rebuilds the current set's histogram and cluster labeling
// without resampling, and returns the number of clusters found. It is
// useful after a bare UpdateSensor call, when the caller wants
// clustering to reflect the latest weights before deciding whether to
// resample at all.
func (f *Filter) Cluster() int {
	s := f.Current()
	clusterStats(s)
	return s.numClusters
}

// NumClusters returns the number of clusters found by the last
// resample or explicit Cluster call on the current set.
func (f *Filter) NumClusters() int {
	return f.Current().numClusters
}

// ClusterStats returns the weight, mean pose and covariance of
// cluster label in the current set. ok is false if label is out of
// range.
func (f *Filter) ClusterStats(label int) (weight float64, mean pose.Pose, cov pose.Cov, ok bool) {
	return clusterStatsOf(f.Current(), label)
}

// ClusterStatsSet is ClusterStats against either the current set
// (useCurrent true) or the scratch set (useCurrent false), for
// callers that need to inspect the set being built during a resample
// callback.
func (f *Filter) ClusterStatsSet(useCurrent bool, label int) (weight float64, mean pose.Pose, cov pose.Cov, ok bool) {
	s := f.scratch()
	if useCurrent {
		s = f.Current()
	}
	return clusterStatsOf(s, label)
}

func clusterStatsOf(s *Set, label int) (weight float64, mean pose.Pose, cov pose.Cov, ok bool) {
	if label < 0 || label >= s.numClusters {
		return 0, pose.Pose{}, pose.Cov{}, false
	}
	c := s.clusters[label]
	return c.Weight, c.Mean, c.Cov, true
}

// EffectiveSampleSize returns 1/sum(w^2) of the current set, the
// standard weight-degeneracy surrogate last computed by UpdateSensor
// or a resample.
func (f *Filter) EffectiveSampleSize() float64 {
	return f.Current().EffectiveSampleSize()
}

// CEPStats returns the circular error probable statistics of the
// whole current set: the weighted mean pose (circular in heading) and
// the mean squared linear distance from it, independent of
// clustering.
func (f *Filter) CEPStats() (mean pose.Pose, variance float64) {
	s := f.Current()
	if s.n == 0 {
		return pose.Pose{}, 0
	}

	var sx, sy, sc, ss, total float64
	for i := 0; i < s.n; i++ {
		sm := s.samples[i]
		total += sm.Weight
		sx += sm.Weight * sm.Pose.X
		sy += sm.Weight * sm.Pose.Y
		sc += sm.Weight * math.Cos(sm.Pose.Heading)
		ss += sm.Weight * math.Sin(sm.Pose.Heading)
	}
	if total <= 0 {
		return pose.Pose{}, 0
	}
	mean = pose.Pose{X: sx / total, Y: sy / total, Heading: math.Atan2(ss, sc)}

	for i := 0; i < s.n; i++ {
		sm := s.samples[i]
		dx := sm.Pose.X - mean.X
		dy := sm.Pose.Y - mean.Y
		variance += sm.Weight * (dx*dx + dy*dy)
	}
	variance /= total
	return mean, variance
}
