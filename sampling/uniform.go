// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package sampling

import (
	"math/rand"

	"github.com/js-arias/amcl/gridmap"
)

// MapUniform draws (x, y) uniformly over a map's world extent,
// rejecting draws that land on a non-free cell. Termination requires
// the map to have at least one free cell; that is the caller's
// responsibility, not this sampler's.
type MapUniform struct {
	rng *rand.Rand
	m   gridmap.Map
}

// NewMapUniform builds a bounded, map-constrained uniform sampler.
func NewMapUniform(rng *rand.Rand, m gridmap.Map) MapUniform {
	return MapUniform{rng: rng, m: m}
}

// Sample draws (x, y) uniformly in the map's world extent, returning
// on the first draw that lands on a free cell.
func (u MapUniform) Sample() (x, y float64) {
	minX, minY, maxX, maxY := u.m.Bounds()
	for {
		x = minX + u.rng.Float64()*(maxX-minX)
		y = minY + u.rng.Float64()*(maxY-minY)
		if gridmap.IsFree(u.m, x, y) {
			return x, y
		}
	}
}
