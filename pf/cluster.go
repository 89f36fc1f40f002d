// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package pf

import "math"

// clusterStats rebuilds s's histogram from its live samples, labels
// connected buckets as clusters, and accumulates per-cluster weighted
// moments: m0 (total weight), m2/m3 (sum of weighted cos/sin of
// heading, for a circular mean), and c (the
// weighted outer product of (x, y), for the linear covariance). It
// then derives Mean and Cov from those moments for every cluster
// found, up to maxClusters; clusters beyond that are still counted in
// the histogram pass but their stats are not accumulated.
func clusterStats(s *Set) {
	s.tree.Clear()
	for i := 0; i < s.n; i++ {
		sm := s.samples[i]
		s.tree.Insert(sm.Pose, sm.Weight)
	}
	n := s.tree.Cluster()
	if n > maxClusters {
		n = maxClusters
	}
	s.numClusters = n

	for i := 0; i < n; i++ {
		s.clusters[i] = Cluster{}
	}

	for i := 0; i < s.n; i++ {
		sm := s.samples[i]
		label := s.tree.GetCluster(sm.Pose)
		if label < 0 || label >= n {
			continue
		}
		c := &s.clusters[label]
		c.Count++
		c.m0 += sm.Weight
		c.m2 += sm.Weight * math.Cos(sm.Pose.Heading)
		c.m3 += sm.Weight * math.Sin(sm.Pose.Heading)
		c.c[0][0] += sm.Weight * sm.Pose.X * sm.Pose.X
		c.c[0][1] += sm.Weight * sm.Pose.X * sm.Pose.Y
		c.c[1][0] += sm.Weight * sm.Pose.Y * sm.Pose.X
		c.c[1][1] += sm.Weight * sm.Pose.Y * sm.Pose.Y

		c.Mean.X += sm.Weight * sm.Pose.X
		c.Mean.Y += sm.Weight * sm.Pose.Y
	}

	for i := 0; i < n; i++ {
		c := &s.clusters[i]
		c.Weight = c.m0
		if c.m0 <= 0 {
			continue
		}
		c.Mean.X /= c.m0
		c.Mean.Y /= c.m0
		c.Mean.Heading = math.Atan2(c.m3, c.m2)

		c.Cov.XX = c.c[0][0]/c.m0 - c.Mean.X*c.Mean.X
		c.Cov.YY = c.c[1][1]/c.m0 - c.Mean.Y*c.Mean.Y
		c.Cov.XY = c.c[0][1]/c.m0 - c.Mean.X*c.Mean.Y

		r := math.Hypot(c.m2, c.m3) / c.m0
		if r > 0 {
			c.Cov.TT = -2 * math.Log(r)
		}
	}
}
