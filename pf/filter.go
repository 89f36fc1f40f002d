// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package pf

import (
	"io"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/js-arias/amcl/gridmap"
	"github.com/js-arias/amcl/pose"
	"github.com/js-arias/amcl/sampling"
)

// HeadingInit selects how a map- or point-based initialization draws
// heading, since neither the map nor a bare point carries a heading
// distribution of its own.
type HeadingInit int

const (
	// HeadingUniform draws heading uniformly on (-pi, pi]. It is the
	// default: a robot or agent with no prior heading information.
	HeadingUniform HeadingInit = iota

	// HeadingZero fixes heading at 0, for scenarios (e.g. parity
	// replays of a recorded run) where heading is supplied out of
	// band and must not be randomized.
	HeadingZero
)

// ActionModel mutates every sample in set in place to reflect one step
// of motion given actionData (typically an odometry delta); it must
// not touch Weight.
type ActionModel func(actionData any, set *Set)

// SensorModel returns the likelihood of sensorData given one sample's
// pose; the filter overwrites that sample's weight with the returned
// value, per-sample, equivalent to the whole-array "overwrite every
// w[i]" callback of §6 and §4.3.
type SensorModel func(sensorData any, sample Sample) float64

// InitModel draws a single pose from an arbitrary external
// initialization distribution.
type InitModel func(initData any) pose.Pose

// Filter is the double-buffered AMCL sample-set engine: two fixed-
// capacity Sets, a single linearization point (the flip of "current"
// on a successful resample), and the shared PRNG and population
// parameters every sampling and resampling operation draws from.
type Filter struct {
	sets    [2]*Set
	current int

	minSamples int
	maxSamples int
	overhead   int

	popErr float64
	popZ   float64

	initHeading HeadingInit

	rng   *rand.Rand
	gauss sampling.Gaussian

	log *logrus.Entry
}

// Alloc builds a filter with the given KLD sample-count bounds.
// overhead is the number of samples that ResampleMap, ResampleHyps and
// ResampleHyps3 hold back from the importance draw (which stops at
// maxSamples - overhead) for the particles they inject after it; each
// set is allocated maxSamples + overhead slots, and overhead may be 0.
// seed seeds the filter's single PRNG (§9design
// note: one PRNG per filter instance, seeded once at construction);
// 0 derives a seed from the current time, for the common case where
// the caller has no reproducibility requirement. log receives
// sensor-collapse warnings; a nil log is replaced with a discard-all
// entry.
func Alloc(minSamples, maxSamples, overhead int, seed int64, log *logrus.Entry) *Filter {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	f := &Filter{
		minSamples: minSamples,
		maxSamples: maxSamples,
		overhead:   overhead,
		popErr:     0.01,
		popZ:       2.33,
		rng:        rng,
		gauss:      sampling.NewGaussian(rng),
		log:        log,
	}
	total := maxSamples + overhead
	f.sets[0] = newSet(total)
	f.sets[1] = newSet(total)
	return f
}

// SetPopParams sets the KLD-sampling error bound and its corresponding
// standard-normal quantile (popErr=0.01, popZ=2.33 by default, a 1%
// bound at z=2.33).
func (f *Filter) SetPopParams(popErr, popZ float64) {
	f.popErr = popErr
	f.popZ = popZ
}

// SetInitHeading selects the heading distribution used by InitGaussian,
// InitMap and InitToPoint, and by the map-uniform particles that
// ResampleMap and ResampleAddParticles inject.
func (f *Filter) SetInitHeading(h HeadingInit) { f.initHeading = h }

// Current returns the filter's current (live) sample set.
func (f *Filter) Current() *Set { return f.sets[f.current] }

func (f *Filter) scratch() *Set { return f.sets[1-f.current] }

func (f *Filter) drawHeading() float64 {
	if f.initHeading == HeadingZero {
		return 0
	}
	return f.gauss.SampleHeading()
}

// InitGaussian (re)initializes the current set by drawing maxSamples
// poses from a bivariate normal in (x, y) and heading per the
// filter's HeadingInit, each weighted 1/n, then runs the cluster
// pass.
func (f *Filter) InitGaussian(mean pose.Pose, cov pose.Cov) {
	s := f.Current()
	n := f.maxSamples
	w := 1 / float64(n)
	for i := 0; i < n; i++ {
		x, y := f.gauss.SampleXY(mean, cov)
		s.samples[i] = Sample{Pose: pose.Pose{X: x, Y: y, Heading: f.drawHeading()}, Weight: w}
	}
	s.n = n
	clusterStats(s)
}

// InitMap (re)initializes the current set by drawing maxSamples poses
// uniformly over m's free cells.
func (f *Filter) InitMap(m gridmap.Map) {
	s := f.Current()
	u := sampling.NewMapUniform(f.rng, m)
	n := f.maxSamples
	w := 1 / float64(n)
	for i := 0; i < n; i++ {
		x, y := u.Sample()
		s.samples[i] = Sample{Pose: pose.Pose{X: x, Y: y, Heading: f.drawHeading()}, Weight: w}
	}
	s.n = n
	clusterStats(s)
}

// InitModel (re)initializes the current set by drawing maxSamples
// poses from an arbitrary external model.
func (f *Filter) InitModel(initData any, model InitModel) {
	s := f.Current()
	n := f.maxSamples
	w := 1 / float64(n)
	for i := 0; i < n; i++ {
		s.samples[i] = Sample{Pose: model(initData), Weight: w}
	}
	s.n = n
	clusterStats(s)
}

// InitToPoint (re)initializes the current set to a single pose,
// clamped to m's world bounds (not to a free cell: the caller asserts
// the point is valid), replicated across maxSamples identical
// particles with heading per the filter's HeadingInit.
func (f *Filter) InitToPoint(p pose.Pose, m gridmap.Map) {
	minX, minY, maxX, maxY := m.Bounds()
	if p.X < minX {
		p.X = minX
	} else if p.X > maxX {
		p.X = maxX
	}
	if p.Y < minY {
		p.Y = minY
	} else if p.Y > maxY {
		p.Y = maxY
	}

	s := f.Current()
	n := f.maxSamples
	w := 1 / float64(n)
	for i := 0; i < n; i++ {
		s.samples[i] = Sample{Pose: pose.Pose{X: p.X, Y: p.Y, Heading: f.drawHeading()}, Weight: w}
	}
	s.n = n
	clusterStats(s)
}

// UpdateAction applies a motion model in place to every sample of the
// current set. Weights are untouched.
func (f *Filter) UpdateAction(actionData any, model ActionModel) {
	model(actionData, f.Current())
}

// UpdateSensor applies a sensor model to every sample of the current
// set, overwriting each sample's weight with its returned likelihood,
// then normalizes by the total. If the total weight is zero or less -
// every sample judged implausible by the sensor model -
// the set is reset to uniform weights and the collapse is logged,
// rather than dividing by zero. Because the model's return value
// replaces rather than scales the prior weight, a constant-likelihood
// model is idempotent regardless of the weights UpdateSensor started
// from: every weight becomes the same value and normalizes to 1/n.
func (f *Filter) UpdateSensor(sensorData any, model SensorModel) {
	s := f.Current()
	total := 0.0
	for i := 0; i < s.n; i++ {
		w := model(sensorData, s.samples[i])
		s.samples[i].Weight = w
		total += w
	}

	if total <= 0 {
		f.log.WithField("samples", s.n).Warn("sensor update collapsed all weights, resetting to uniform")
		normalize(s)
		return
	}

	sumSq := 0.0
	for i := 0; i < s.n; i++ {
		s.samples[i].Weight /= total
		sumSq += s.samples[i].Weight * s.samples[i].Weight
	}
	s.sumSqWeight = sumSq
}
