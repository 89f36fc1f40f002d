// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package sampling implements the three sampling primitives the
// filter is built from: a discrete (categorical) distribution over a
// weight vector, a multivariate Gaussian pose sampler, and a
// map-constrained bounded uniform sampler.
package sampling

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Categorical is a discrete distribution built from a weight vector:
// Sample returns i with probability w[i]/sum(w). It is built on
// gonum's distuv.Categorical, which inverts the CDF by binary search
// over a prefix sum, giving the O(log n) draw the source requires.
type Categorical struct {
	d distuv.Categorical
}

// NewCategorical builds a categorical sampler from a nonnegative
// weight vector. The behavior for an all-zero weight vector is
// undefined, per the source.
func NewCategorical(weights []float64, rng *rand.Rand) Categorical {
	return Categorical{d: distuv.NewCategorical(weights, rng)}
}

// Sample draws one index from the distribution.
func (c Categorical) Sample() int {
	return int(c.d.Rand())
}
