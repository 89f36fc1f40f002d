// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package pf

import (
	"math"
	"testing"

	"github.com/js-arias/amcl/pose"
)

func TestClusterStatsSeparatesDistantModes(t *testing.T) {
	s := newSet(8)
	s.samples[0] = Sample{Pose: pose.Pose{X: 0, Y: 0, Heading: 0}, Weight: 0.25}
	s.samples[1] = Sample{Pose: pose.Pose{X: 0.1, Y: 0, Heading: 0}, Weight: 0.25}
	s.samples[2] = Sample{Pose: pose.Pose{X: 50, Y: 50, Heading: 0}, Weight: 0.25}
	s.samples[3] = Sample{Pose: pose.Pose{X: 50.1, Y: 50, Heading: 0}, Weight: 0.25}
	s.n = 4

	clusterStats(s)

	if s.numClusters != 2 {
		t.Fatalf("numClusters = %d, want 2", s.numClusters)
	}
	for i, c := range s.clusters[:2] {
		if math.Abs(c.Weight-0.5) > 1e-9 {
			t.Errorf("cluster %d weight = %.4f, want 0.5", i, c.Weight)
		}
	}
}

func TestClusterStatsCircularMeanMatchesAtan2(t *testing.T) {
	s := newSet(4)
	// Both headings fall in the same bucket: a single cluster, whose
	// mean must be the atan2 of the weighted sin/cos sums, not the
	// arithmetic mean of the angles.
	h1, h2 := 0.10, 0.22
	s.samples[0] = Sample{Pose: pose.Pose{X: 0, Y: 0, Heading: h1}, Weight: 0.3}
	s.samples[1] = Sample{Pose: pose.Pose{X: 0, Y: 0, Heading: h2}, Weight: 0.7}
	s.n = 2

	clusterStats(s)

	if s.numClusters != 1 {
		t.Fatalf("numClusters = %d, want 1", s.numClusters)
	}
	want := math.Atan2(0.3*math.Sin(h1)+0.7*math.Sin(h2), 0.3*math.Cos(h1)+0.7*math.Cos(h2))
	if math.Abs(s.clusters[0].Mean.Heading-want) > 1e-9 {
		t.Errorf("circular mean heading = %.6f, want %.6f", s.clusters[0].Mean.Heading, want)
	}
}
