// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package pf_test

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/js-arias/amcl/gridmap"
	"github.com/js-arias/amcl/hyp"
	"github.com/js-arias/amcl/pf"
	"github.com/js-arias/amcl/pose"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func freeGrid() *gridmap.Grid {
	g := gridmap.NewGrid(20, 20, 1, 0, 0)
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			g.Set(i, j, gridmap.Free)
		}
	}
	return g
}

func TestInitMapProducesOnlyFreeSamples(t *testing.T) {
	f := pf.Alloc(50, 500, 0, 0, discardLog())
	g := freeGrid()
	f.InitMap(g)

	s := f.Current()
	if s.Len() != 500 {
		t.Fatalf("Len() = %d, want 500", s.Len())
	}
	for _, sm := range s.Samples() {
		if !g.IsFree(sm.Pose.X, sm.Pose.Y) {
			t.Fatalf("sample at (%.2f,%.2f) not free", sm.Pose.X, sm.Pose.Y)
		}
	}
}

func TestUpdateSensorCollapseResetsToUniform(t *testing.T) {
	f := pf.Alloc(50, 200, 0, 0, discardLog())
	f.InitMap(freeGrid())

	// A sensor model that rejects everything must not leave the set
	// with all-zero (or NaN) weights.
	f.UpdateSensor(nil, func(_ any, _ pf.Sample) float64 { return 0 })

	s := f.Current()
	sum := 0.0
	for _, sm := range s.Samples() {
		if sm.Weight <= 0 {
			t.Fatalf("weight %.6f <= 0 after collapse reset", sm.Weight)
		}
		sum += sm.Weight
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("weights sum to %.6f, want 1", sum)
	}
}

func TestUpdateSensorNormalizes(t *testing.T) {
	f := pf.Alloc(50, 200, 0, 0, discardLog())
	f.InitMap(freeGrid())

	f.UpdateSensor(nil, func(_ any, sm pf.Sample) float64 { return sm.Pose.X + 1 })

	sum := 0.0
	for _, sm := range f.Current().Samples() {
		sum += sm.Weight
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("weights sum to %.6f, want 1", sum)
	}
	if ess := f.EffectiveSampleSize(); ess <= 0 || ess > 200 {
		t.Errorf("EffectiveSampleSize() = %.2f, want in (0,200]", ess)
	}
}

func TestUpdateSensorConstantLikelihoodIsIdempotentFromNonUniformPrior(t *testing.T) {
	f := pf.Alloc(50, 200, 0, 0, discardLog())
	f.InitMap(freeGrid())

	// Drive the set to a non-uniform posterior first, without an
	// intervening resample, the way two sensor updates in a row
	// (cmd/amcl/run's ResampleEvery > 1) would.
	f.UpdateSensor(nil, func(_ any, sm pf.Sample) float64 { return sm.Pose.X + 1 })

	n := f.Current().Len()
	f.UpdateSensor(nil, func(_ any, _ pf.Sample) float64 { return 1 })

	want := 1 / float64(n)
	for _, sm := range f.Current().Samples() {
		if math.Abs(sm.Weight-want) > 1e-9 {
			t.Fatalf("weight = %.9f, want %.9f: constant-likelihood update must reset to uniform regardless of the prior distribution", sm.Weight, want)
		}
	}
}

func TestResampleFlipsCurrentSet(t *testing.T) {
	f := pf.Alloc(50, 200, 0, 0, discardLog())
	f.InitMap(freeGrid())
	before := f.Current()

	f.UpdateSensor(nil, func(_ any, sm pf.Sample) float64 { return sm.Pose.X + 11 })
	f.Resample(200)

	after := f.Current()
	if before == after {
		t.Fatal("Resample did not flip the current set")
	}
	if after.Len() == 0 {
		t.Fatal("resampled set is empty")
	}
	sum := 0.0
	for _, sm := range after.Samples() {
		sum += sm.Weight
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("resampled weights sum to %.6f, want 1", sum)
	}
}

func TestResampleMapOnlyInjectsFreeCells(t *testing.T) {
	f := pf.Alloc(50, 300, 0, 0, discardLog())
	g := freeGrid()
	f.InitMap(g)
	f.UpdateSensor(nil, func(_ any, sm pf.Sample) float64 { return 1 })

	f.ResampleMap(g)

	for _, sm := range f.Current().Samples() {
		if !g.IsFree(sm.Pose.X, sm.Pose.Y) {
			t.Fatalf("injected sample at (%.2f,%.2f) not free", sm.Pose.X, sm.Pose.Y)
		}
	}
}

func TestResampleHypsInjectsNearHypothesis(t *testing.T) {
	f := pf.Alloc(50, 200, 40, 0, discardLog())
	g := freeGrid()
	f.InitMap(g)
	f.UpdateSensor(nil, func(_ any, sm pf.Sample) float64 { return 1 })

	h := hyp.Hypothesis{
		Mean: pose.Pose{X: 5, Y: 5},
		Cov:  [2][2]float64{{0.1, 0}, {0, 0.1}},
	}
	f.ResampleHyps(g, []hyp.Hypothesis{h})

	if n := f.Current().Len(); n > 200 {
		t.Fatalf("Len() = %d, want <= 200 (max_samples)", n)
	}
	near := 0
	for _, sm := range f.Current().Samples() {
		if math.Hypot(sm.Pose.X-5, sm.Pose.Y-5) < 2 {
			near++
		}
	}
	if near == 0 {
		t.Fatal("ResampleHyps injected no samples near the hypothesis mean")
	}
}

func TestResampleHyps3StaysWithinMaxSamples(t *testing.T) {
	f := pf.Alloc(50, 200, 40, 0, discardLog())
	g := freeGrid()
	f.InitMap(g)
	f.UpdateSensor(nil, func(_ any, sm pf.Sample) float64 { return 1 })

	hyps := []hyp.Hypothesis{
		{Mean: pose.Pose{X: 5, Y: 5}, Cov: [2][2]float64{{0.1, 0}, {0, 0.1}}},
		{Mean: pose.Pose{X: -5, Y: -5}, Cov: [2][2]float64{{0.1, 0}, {0, 0.1}}},
	}
	f.ResampleHyps3(g, hyps)

	if n := f.Current().Len(); n > 200 {
		t.Fatalf("Len() = %d, want <= 200 (max_samples)", n)
	}
	near := map[int]int{}
	for _, sm := range f.Current().Samples() {
		for i, h := range hyps {
			if math.Hypot(sm.Pose.X-h.Mean.X, sm.Pose.Y-h.Mean.Y) < 2 {
				near[i]++
			}
		}
	}
	for i := range hyps {
		if near[i] == 0 {
			t.Errorf("ResampleHyps3 injected no samples near hypothesis %d", i)
		}
	}
}

func TestResampleAddParticlesStaysWithinMaxSamples(t *testing.T) {
	f := pf.Alloc(50, 200, 0, 0, discardLog())
	g := freeGrid()
	f.InitMap(g)
	f.UpdateSensor(nil, func(_ any, sm pf.Sample) float64 { return 1 })

	const k = 30
	f.ResampleAddParticles(k, g)

	if n := f.Current().Len(); n > 200 {
		t.Fatalf("Len() = %d, want <= 200 (max_samples)", n)
	}
	for _, sm := range f.Current().Samples() {
		if !g.IsFree(sm.Pose.X, sm.Pose.Y) {
			t.Fatalf("sample at (%.2f,%.2f) not free", sm.Pose.X, sm.Pose.Y)
		}
	}
}

func TestCEPStatsCircularMean(t *testing.T) {
	f := pf.Alloc(10, 10, 0, 0, discardLog())
	f.SetInitHeading(pf.HeadingZero)
	f.InitToPoint(pose.Pose{X: 1, Y: 2}, freeGrid())

	mean, variance := f.CEPStats()
	if math.Abs(mean.X-1) > 1e-9 || math.Abs(mean.Y-2) > 1e-9 {
		t.Errorf("mean = (%.4f,%.4f), want (1,2)", mean.X, mean.Y)
	}
	if math.Abs(pose.Wrap(mean.Heading)) > 1e-9 {
		t.Errorf("mean.Heading = %.6f, want 0", mean.Heading)
	}
	if variance < 0 {
		t.Errorf("variance = %.6f, want >= 0", variance)
	}
}
