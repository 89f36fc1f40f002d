// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package pf implements the AMCL sampling/resampling engine: the
// double-buffered sample set, the resampling family (plain
// importance resampling, map-constrained injection, and
// hypothesis-guided injection), the KLD resample-limit formula, and
// the cluster-statistics pass, all orchestrated by Filter.
package pf

import (
	"github.com/js-arias/amcl/kdtree"
	"github.com/js-arias/amcl/pose"
)

// Sample is a single weighted pose hypothesis. Weight is nonnegative;
// within a live set, weights sum to 1 after any operation that
// completes successfully.
type Sample struct {
	Pose   pose.Pose
	Weight float64
}

// maxClusters is the fixed capacity of a set's cluster table.
const maxClusters = 100

// Cluster accumulates the statistics of one mode of the posterior:
// the weighted moments needed to derive a circular-mean pose and
// covariance, per ClusterStats.
type Cluster struct {
	Count  int
	Weight float64
	Mean   pose.Pose
	Cov    pose.Cov

	m0     float64
	m2, m3 float64
	c      [2][2]float64
}

// Set is a fixed-capacity buffer of weighted samples, the kd-tree
// used as both the KLD histogram and the cluster index over it, and
// the per-cluster statistics derived from the last cluster pass.
//
// A filter holds two sets and flips which one is "current" on every
// successful resample; Set itself has no notion of that role.
type Set struct {
	samples []Sample
	n       int

	tree *kdtree.Tree

	clusters    []Cluster
	numClusters int

	sumSqWeight float64
}

func newSet(maxSamples int) *Set {
	return &Set{
		samples:  make([]Sample, maxSamples),
		tree:     kdtree.New(3 * maxSamples),
		clusters: make([]Cluster, maxClusters),
	}
}

// Len returns the number of live samples in the set.
func (s *Set) Len() int { return s.n }

// Samples returns the live portion of the sample buffer. The slice
// aliases the set's internal storage: motion and sensor model
// callbacks are expected to mutate it in place, but it must not be
// retained past the call that received it.
func (s *Set) Samples() []Sample { return s.samples[:s.n] }

// EffectiveSampleSize returns 1/sum(w^2), the standard weight-
// degeneracy surrogate computed by the last sensor update or
// resample; 0 before either has ever run.
func (s *Set) EffectiveSampleSize() float64 {
	if s.sumSqWeight <= 0 {
		return 0
	}
	return 1 / s.sumSqWeight
}
