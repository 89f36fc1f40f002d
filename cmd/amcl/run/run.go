// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package run implements a command to run an AMCL filter simulation
// over a scenario, writing the per-step cluster statistics to a
// tab-delimited file.
package run

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/js-arias/command"

	"github.com/js-arias/amcl/gridmap"
	"github.com/js-arias/amcl/hyp"
	"github.com/js-arias/amcl/params"
	"github.com/js-arias/amcl/pf"
	"github.com/js-arias/amcl/pose"
	"github.com/js-arias/amcl/runconfig"
	"github.com/js-arias/amcl/scenario"
)

var Command = &command.Command{
	Usage: `run [-v|--verbose] <scenario-file>`,
	Short: "run a filter simulation",
	Long: `
Command run simulates a random-walking agent over a scenario's occupancy map
and tracks it with an AMCL filter, writing the filter's per-step cluster
statistics to a tab-delimited file.

The argument is an AMCL scenario file, giving the paths of the occupancy map,
the numeric filter parameters, the run configuration, and (for the
hypothesis-guided resampling variants) a set of external hypotheses.

Ground truth and the sensor likelihood are simulated internally: there is no
external odometry or sensor log. Use the flag --verbose, or -v, to log every
step instead of only the final summary.
	`,
	SetFlags: setFlags,
	Run:      runIt,
}

var verbose bool

func setFlags(c *command.Command) {
	c.Flags().BoolVar(&verbose, "verbose", false, "")
	c.Flags().BoolVar(&verbose, "v", false, "")
}

// driftStep is the per-step standard deviation of the simulated
// ground-truth random walk, in the map's world units.
const driftStep = 0.3

// sensorSigma is the standard deviation of the Gaussian sensor
// likelihood kernel around the true pose.
const sensorSigma = 1.0

func runIt(c *command.Command, args []string) (err error) {
	if len(args) < 1 {
		return c.UsageError("expecting scenario file")
	}

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	sc, err := scenario.Read(args[0])
	if err != nil {
		return err
	}

	mapFile := sc.Path(scenario.Map)
	if mapFile == "" {
		return c.UsageError(fmt.Sprintf("map not defined in scenario %q", args[0]))
	}
	m, err := gridmap.Read(mapFile)
	if err != nil {
		return err
	}

	paramFile := sc.Path(scenario.Params)
	if paramFile == "" {
		return c.UsageError(fmt.Sprintf("params not defined in scenario %q", args[0]))
	}
	pr, err := params.Read(paramFile)
	if err != nil {
		return err
	}

	cfg := runconfig.Default()
	if cfgFile := sc.Path(scenario.Config); cfgFile != "" {
		cfg, err = runconfig.Read(cfgFile)
		if err != nil {
			return err
		}
	}

	var hyps []hyp.Hypothesis
	if cfg.Resampler == runconfig.Hyps || cfg.Resampler == runconfig.Hyps3 {
		hypsFile := sc.Path(scenario.Hyps)
		if hypsFile == "" {
			return c.UsageError(fmt.Sprintf("hyps not defined in scenario %q", args[0]))
		}
		hyps, err = hyp.Read(hypsFile)
		if err != nil {
			return err
		}
	}

	truthSeed := cfg.Seed
	if truthSeed == 0 {
		truthSeed = time.Now().UnixNano()
	} else {
		// Derive a distinct but deterministic seed for the ground-truth
		// walk so it doesn't share a stream with the filter's own PRNG.
		truthSeed++
	}
	truth := rand.New(rand.NewSource(truthSeed))

	f := pr.Alloc(cfg.Seed, entry)
	f.InitMap(m)

	outFile := sc.Path(scenario.Output)
	if outFile == "" {
		outFile = "amcl-run"
	}
	outFile += "-trace.tab"

	out, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer func() {
		e := out.Close()
		if err == nil && e != nil {
			err = e
		}
	}()
	w := bufio.NewWriter(out)
	tsv, err := outHeader(w, args[0], cfg)
	if err != nil {
		return fmt.Errorf("while writing header on %q: %v", outFile, err)
	}

	minX, minY, maxX, maxY := m.Bounds()
	truePose := pose.Pose{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}

	for step := 0; step < cfg.Steps; step++ {
		truePose = stepTruth(truth, truePose, m, minX, minY, maxX, maxY)

		f.UpdateAction(driftStep, motionModel)
		f.UpdateSensor(truePose, sensorModel)

		if (step+1)%cfg.ResampleEvery == 0 {
			resample(f, cfg.Resampler, m, hyps, cfg.AddParticlesCount, pr.MaxSamples())
		} else {
			f.Cluster()
		}

		if err := writeStep(tsv, step, f, truePose); err != nil {
			return fmt.Errorf("while writing data on %q: %v", outFile, err)
		}

		if verbose {
			mean, variance := f.CEPStats()
			entry.WithFields(logrus.Fields{
				"step":      step,
				"clusters":  f.NumClusters(),
				"ess":       f.EffectiveSampleSize(),
				"mean_x":    mean.X,
				"mean_y":    mean.Y,
				"variance":  variance,
				"true_x":    truePose.X,
				"true_y":    truePose.Y,
			}).Debug("step complete")
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("while writing data on %q: %v", outFile, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("while writing data on %q: %v", outFile, err)
	}

	entry.WithField("steps", cfg.Steps).Info("simulation complete")
	return nil
}

func stepTruth(rng *rand.Rand, p pose.Pose, m gridmap.Map, minX, minY, maxX, maxY float64) pose.Pose {
	for {
		x := p.X + rng.NormFloat64()*driftStep
		y := p.Y + rng.NormFloat64()*driftStep
		if x < minX || x > maxX || y < minY || y > maxY {
			continue
		}
		if !gridmap.IsFree(m, x, y) {
			continue
		}
		return pose.Pose{X: x, Y: y, Heading: pose.Wrap(p.Heading + rng.NormFloat64()*0.1)}
	}
}

// motionModel perturbs every sample by the same drift standard
// deviation used to advance the simulated ground truth, reflecting
// the filter's uncertainty about the true motion.
func motionModel(actionData any, set *pf.Set) {
	sigma := actionData.(float64)
	samples := set.Samples()
	for i := range samples {
		samples[i].Pose.X += jitter(sigma)
		samples[i].Pose.Y += jitter(sigma)
		samples[i].Pose.Heading = pose.Wrap(samples[i].Pose.Heading + jitter(0.1))
	}
}

// jitter is a package-level scratch PRNG for the motion model; it
// need not be cryptographically independent from the filter's own
// rng, only a usable noise source for the demo motion model.
var jitterRng = rand.New(rand.NewSource(1))

func jitter(sigma float64) float64 {
	return jitterRng.NormFloat64() * sigma
}

// sensorModel returns a Gaussian likelihood of the sample given the
// true pose, simulating a sensor that reports distance to a single
// beacon at the ground-truth location.
func sensorModel(sensorData any, sample pf.Sample) float64 {
	truePose := sensorData.(pose.Pose)
	dx := sample.Pose.X - truePose.X
	dy := sample.Pose.Y - truePose.Y
	d2 := dx*dx + dy*dy
	return math.Exp(-d2 / (2 * sensorSigma * sensorSigma))
}

func resample(f *pf.Filter, r runconfig.Resampler, m gridmap.Map, hyps []hyp.Hypothesis, addCount, maxSamples int) {
	switch r {
	case runconfig.Map:
		f.ResampleMap(m)
	case runconfig.AddParticles:
		f.ResampleAddParticles(addCount, m)
	case runconfig.Hyps:
		f.ResampleHyps(m, hyps)
	case runconfig.Hyps3:
		f.ResampleHyps3(m, hyps)
	default:
		f.Resample(maxSamples)
	}
}

var traceHeader = []string{
	"step", "clusters", "ess",
	"mean_x", "mean_y", "mean_heading", "variance",
	"true_x", "true_y",
}

func outHeader(w io.Writer, scenarioFile string, cfg runconfig.Config) (*csv.Writer, error) {
	fmt.Fprintf(w, "# amcl run trace of scenario %q\n", scenarioFile)
	fmt.Fprintf(w, "# resampler: %s\n", cfg.Resampler)
	fmt.Fprintf(w, "# steps: %d\n", cfg.Steps)
	fmt.Fprintf(w, "# date: %s\n", time.Now().Format(time.RFC3339))

	tsv := csv.NewWriter(w)
	tsv.Comma = '\t'
	tsv.UseCRLF = true
	if err := tsv.Write(traceHeader); err != nil {
		return nil, err
	}
	return tsv, nil
}

func writeStep(tsv *csv.Writer, step int, f *pf.Filter, truePose pose.Pose) error {
	mean, variance := f.CEPStats()
	row := []string{
		strconv.Itoa(step),
		strconv.Itoa(f.NumClusters()),
		strconv.FormatFloat(f.EffectiveSampleSize(), 'g', -1, 64),
		strconv.FormatFloat(mean.X, 'g', -1, 64),
		strconv.FormatFloat(mean.Y, 'g', -1, 64),
		strconv.FormatFloat(mean.Heading, 'g', -1, 64),
		strconv.FormatFloat(variance, 'g', -1, 64),
		strconv.FormatFloat(truePose.X, 'g', -1, 64),
		strconv.FormatFloat(truePose.Y, 'g', -1, 64),
	}
	return tsv.Write(row)
}
