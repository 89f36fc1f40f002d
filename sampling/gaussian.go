// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package sampling

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/js-arias/amcl/pose"
)

// Gaussian draws the linear (x, y) component of a pose from a
// Cholesky-factored bivariate normal, and heading independently and
// uniformly on (-pi, pi] unless the caller overrides it. It holds no
// state of its own beyond the shared PRNG, so a single value can be
// reused for every draw a filter instance makes.
type Gaussian struct {
	rng *rand.Rand
}

// NewGaussian wraps a PRNG for use as a Gaussian pose sampler. The
// caller owns the PRNG's lifetime; the source design note is that a
// filter holds exactly one, seeded once at construction.
func NewGaussian(rng *rand.Rand) Gaussian {
	return Gaussian{rng: rng}
}

// SampleXY draws (x, y) from the bivariate normal with the given mean
// and linear covariance block, using a Cholesky factorization of the
// covariance. If the covariance is not positive definite, it falls
// back to an axis-aligned approximation using the variances alone,
// rather than panicking on a degenerate hypothesis.
func (g Gaussian) SampleXY(mean pose.Pose, cov pose.Cov) (x, y float64) {
	sym := mat.NewSymDense(2, []float64{cov.XX, cov.XY, cov.XY, cov.YY})

	var chol mat.Cholesky
	var l mat.TriDense
	if chol.Factorize(sym) {
		chol.LTo(&l)
	} else {
		l = *mat.NewTriDense(2, mat.Lower, []float64{
			math.Sqrt(math.Max(cov.XX, 0)), 0,
			0, math.Sqrt(math.Max(cov.YY, 0)),
		})
	}

	z := mat.NewVecDense(2, []float64{g.rng.NormFloat64(), g.rng.NormFloat64()})
	var y0 mat.VecDense
	y0.MulVec(&l, z)

	return mean.X + y0.AtVec(0), mean.Y + y0.AtVec(1)
}

// SampleHeading draws a heading uniformly on (-pi, pi].
func (g Gaussian) SampleHeading() float64 {
	u := distuv.Uniform{Min: -math.Pi, Max: math.Pi, Src: g.rng}
	return pose.Wrap(u.Rand())
}

// Sample draws a full pose: (x, y) from the bivariate normal and
// heading uniformly, independent of the linear draw.
func (g Gaussian) Sample(mean pose.Pose, cov pose.Cov) pose.Pose {
	x, y := g.SampleXY(mean, cov)
	return pose.Pose{X: x, Y: y, Heading: g.SampleHeading()}
}
