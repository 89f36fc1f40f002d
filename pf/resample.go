// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package pf

import (
	"github.com/js-arias/amcl/gridmap"
	"github.com/js-arias/amcl/hyp"
	"github.com/js-arias/amcl/kdtree"
	"github.com/js-arias/amcl/pose"
	"github.com/js-arias/amcl/sampling"
)

func normalize(s *Set) {
	if s.n == 0 {
		return
	}
	w := 1 / float64(s.n)
	sumSq := 0.0
	for i := 0; i < s.n; i++ {
		s.samples[i].Weight = w
		sumSq += w * w
	}
	s.sumSqWeight = sumSq
}

// drawImportance draws weighted samples from src into dst by
// categorical (with-replacement) resampling, stopping at the first of
// nMax draws or the KLD resample limit computed from the number of
// distinct histogram buckets touched so far, per Fox's adaptive
// criterion. Particles injected by the map- and hypothesis-based
// variants are appended by their callers after this draw returns.
// Drawing a zero-weight sample is an invariant breach and panics.
func (f *Filter) drawImportance(src, dst *Set, nMax int) {
	dst.tree.Clear()
	dst.n = 0

	weights := make([]float64, src.n)
	for i, sm := range src.samples[:src.n] {
		weights[i] = sm.Weight
	}
	cat := sampling.NewCategorical(weights, f.rng)

	limit := f.minSamples
	for dst.n < nMax {
		i := cat.Sample()
		sm := src.samples[i]
		if sm.Weight <= 0 {
			panic("pf: categorical draw selected a zero-weight sample")
		}
		dst.samples[dst.n] = sm
		dst.n++
		dst.tree.Insert(sm.Pose, sm.Weight)

		k := dst.tree.LeafCount()
		limit = kldLimit(k, f.minSamples, f.maxSamples, f.popErr, f.popZ)
		if dst.n >= limit {
			break
		}
	}
}

func (f *Filter) finishResample(dst *Set) {
	normalize(dst)
	clusterStats(dst)
	f.current = 1 - f.current
}

// Resample draws a new generation from the current set into the
// scratch set by plain KLD-adaptive importance resampling, then makes
// the scratch set current. nMax bounds the draw independent of the
// KLD cutoff; pass f's maxSamples for the ordinary case.
func (f *Filter) Resample(nMax int) {
	src, dst := f.Current(), f.scratch()
	if nMax > len(dst.samples) {
		nMax = len(dst.samples)
	}
	f.drawImportance(src, dst, nMax)
	f.finishResample(dst)
}

// ResampleMap is Resample drawn to N_max = max_samples - overhead_samples,
// followed by a conditional map-constrained top-up per §4.4.2: if the
// draw came up short of min_samples+10 (the adaptive cutoff collapsed
// hard, a sign of possible kidnapped-robot failure), up to 100
// additional samples are drawn from m's free cells and appended,
// weight 1.0, never past max_samples.
func (f *Filter) ResampleMap(m gridmap.Map) {
	const topUpThreshold = 10
	const maxTopUp = 100

	src, dst := f.Current(), f.scratch()
	nMax := f.maxSamples - f.overhead
	if nMax < 0 {
		nMax = 0
	}
	f.drawImportance(src, dst, nMax)

	if dst.n < f.minSamples+topUpThreshold {
		u := sampling.NewMapUniform(f.rng, m)
		for added := 0; added < maxTopUp && dst.n < f.maxSamples && dst.n < len(dst.samples); added++ {
			x, y := u.Sample()
			p := pose.Pose{X: x, Y: y, Heading: f.drawHeading()}
			dst.samples[dst.n] = Sample{Pose: p, Weight: 1}
			dst.tree.Insert(p, 1)
			dst.n++
		}
	}
	f.finishResample(dst)
}

// ResampleAddParticles is Resample drawn to N_max = max_samples - k,
// followed by the unconditional injection of exactly k extra particles
// drawn uniformly from m's free cells, appended on top of the
// KLD-adaptive draw so the final n never exceeds max_samples.
func (f *Filter) ResampleAddParticles(k int, m gridmap.Map) {
	src, dst := f.Current(), f.scratch()
	nMax := f.maxSamples - k
	if nMax < 0 {
		nMax = 0
	}
	f.drawImportance(src, dst, nMax)

	u := sampling.NewMapUniform(f.rng, m)
	for i := 0; i < k && dst.n < len(dst.samples); i++ {
		x, y := u.Sample()
		p := pose.Pose{X: x, Y: y, Heading: f.drawHeading()}
		dst.samples[dst.n] = Sample{Pose: p, Weight: 1}
		dst.tree.Insert(p, 1)
		dst.n++
	}
	f.finishResample(dst)
}

// injectHypothesis draws up to budget accepted samples from h's
// Gaussian, each attempt retried against the map's free-cell predicate
// per §4.4.4: the budget bounds attempts, not acceptances, so a
// hypothesis parked entirely over occupied space contributes nothing
// rather than looping forever.
func injectHypothesis(f *Filter, dst *Set, m gridmap.Map, h hyp.Hypothesis, budget int) {
	cov := h.Cov2()
	for attempt := 0; attempt < budget && dst.n < len(dst.samples); attempt++ {
		p := f.gauss.Sample(h.Mean, cov)
		if !gridmap.IsFree(m, p.X, p.Y) {
			continue
		}
		dst.samples[dst.n] = Sample{Pose: p, Weight: 1}
		dst.tree.Insert(p, 1)
		dst.n++
	}
}

// ResampleHyps is Resample drawn to N_max = max_samples -
// overhead_samples (§4.4.4 step 1), followed by injection of samples
// drawn from each externally supplied hypothesis, budgeted at
// overhead_samples/h per hypothesis (§4.4.4 step 2) so the total
// injected across every hypothesis never exceeds overhead_samples and
// the final n never exceeds max_samples.
func (f *Filter) ResampleHyps(m gridmap.Map, hyps []hyp.Hypothesis) {
	src, dst := f.Current(), f.scratch()

	nMax := f.maxSamples - f.overhead
	if nMax < 0 {
		nMax = 0
	}
	f.drawImportance(src, dst, nMax)

	perHyp := 0
	if len(hyps) > 0 {
		perHyp = f.overhead / len(hyps)
	}
	for _, h := range hyps {
		injectHypothesis(f, dst, m, h, perHyp)
	}
	f.finishResample(dst)
}

// ResampleHyps3 is ResampleHyps with a per-hypothesis secondary KLD
// cutoff, per the source's resample_hyps_3 variant: the draw and the
// per-hypothesis budget (overhead_samples/h) are computed exactly as
// in ResampleHyps, but each hypothesis is first guaranteed up to 10
// particles (capped to its budget), then injection continues into a
// private histogram until that histogram's own KLD limit is reached,
// using a denominator 5 times larger than the ordinary formula (the
// source's stated "5 * 2 * pop_err").
func (f *Filter) ResampleHyps3(m gridmap.Map, hyps []hyp.Hypothesis) {
	const minPerHyp = 10

	src, dst := f.Current(), f.scratch()

	nMax := f.maxSamples - f.overhead
	if nMax < 0 {
		nMax = 0
	}
	f.drawImportance(src, dst, nMax)

	budget := 0
	if len(hyps) > 0 {
		budget = f.overhead / len(hyps)
	}
	guaranteed := minPerHyp
	if guaranteed > budget {
		guaranteed = budget
	}

	for _, h := range hyps {
		injectHypothesis3(f, dst, m, h, guaranteed, budget)
	}
	f.finishResample(dst)
}

// injectHypothesis3 guarantees minPerHyp accepted samples from h (subject
// to budget as an attempt cap), then keeps injecting into a private
// per-hypothesis histogram until either budget attempts are exhausted or
// that histogram's own KLD cutoff (§4.4.4's "secondary KLD cutoff") is
// met. Every accepted sample, guaranteed or budgeted, must still satisfy
// the map's free-cell predicate per §4.4.4/invariant 6.
func injectHypothesis3(f *Filter, dst *Set, m gridmap.Map, h hyp.Hypothesis, minPerHyp, budget int) {
	cov := h.Cov2()
	local := kdtree.New(3 * (budget + 1))

	accepted := 0
	attempt := 0
	for accepted < minPerHyp && attempt < budget && dst.n < len(dst.samples) {
		attempt++
		p := f.gauss.Sample(h.Mean, cov)
		if !gridmap.IsFree(m, p.X, p.Y) {
			continue
		}
		dst.samples[dst.n] = Sample{Pose: p, Weight: 1}
		dst.tree.Insert(p, 1)
		local.Insert(p, 1)
		dst.n++
		accepted++
	}

	for accepted < budget && attempt < budget && dst.n < len(dst.samples) {
		attempt++
		p := f.gauss.Sample(h.Mean, cov)
		if !gridmap.IsFree(m, p.X, p.Y) {
			continue
		}
		dst.samples[dst.n] = Sample{Pose: p, Weight: 1}
		dst.tree.Insert(p, 1)
		local.Insert(p, 1)
		dst.n++
		accepted++

		k := local.LeafCount()
		limit := kldLimitScaled(k, minPerHyp, budget, 10, f.popErr, f.popZ)
		if accepted >= limit {
			break
		}
	}
}
