// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package hyp defines the external multi-hypothesis input consumed by
// the filter's hypothesis-guided resampling.
package hyp

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/js-arias/amcl/pose"
)

// Hypothesis is an externally supplied Gaussian candidate pose region
// used to guide resampling (see pf.Filter.ResampleHyps).
//
// Cov preserves the source's documented convention for the diagonal
// and off-diagonal entries, rather than correcting it: Cov[0][0] and
// Cov[1][1] are standard deviations, not variances, and Cov[0][1] is
// a raw correlation numerator, divided by the product of the two
// standard deviations to recover a correlation. This is almost
// certainly a naming bug in the system this was distilled from, but
// output parity requires preserving the behavior rather than
// silently fixing it; see Cov2.
type Hypothesis struct {
	Mean pose.Pose
	Cov  [2][2]float64
}

// Cov2 returns the 2x2 linear covariance actually implied by Cov
// under the preserved convention documented on Hypothesis.
func (h Hypothesis) Cov2() pose.Cov {
	sx := h.Cov[0][0]
	sy := h.Cov[1][1]
	var rho float64
	if sx != 0 && sy != 0 {
		rho = h.Cov[0][1] / (sx * sy)
	}
	return pose.Cov{
		XX: sx * sx,
		YY: sy * sy,
		XY: rho * sx * sy,
	}
}

var header = []string{"x", "y", "heading", "cov_xx", "cov_xy", "cov_yy"}

// Read reads a collection of hypotheses from a tab-delimited file.
//
// Each row gives a hypothesis mean pose and its covariance under the
// convention documented on Hypothesis: cov_xx and cov_yy are standard
// deviations, cov_xy a raw correlation numerator.
//
//	# amcl hypotheses
//	x	y	heading	cov_xx	cov_xy	cov_yy
//	10.0	4.5	0	0.3	0	0.3
//	-2.0	6.0	1.57	0.5	0.1	0.5
func Read(name string) ([]Hypothesis, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tsv := csv.NewReader(f)
	tsv.Comma = '\t'
	tsv.Comment = '#'

	head, err := tsv.Read()
	if err != nil {
		return nil, fmt.Errorf("on file %q: header: %v", name, err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		fields[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range header {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("on file %q: expecting field %q", name, h)
		}
	}

	var hyps []Hypothesis
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
		}

		get := func(field string) (float64, error) {
			v, err := strconv.ParseFloat(row[fields[field]], 64)
			if err != nil {
				return 0, fmt.Errorf("on file %q: on row %d: field %q: %v", name, ln, field, err)
			}
			return v, nil
		}

		x, err := get("x")
		if err != nil {
			return nil, err
		}
		y, err := get("y")
		if err != nil {
			return nil, err
		}
		heading, err := get("heading")
		if err != nil {
			return nil, err
		}
		cxx, err := get("cov_xx")
		if err != nil {
			return nil, err
		}
		cxy, err := get("cov_xy")
		if err != nil {
			return nil, err
		}
		cyy, err := get("cov_yy")
		if err != nil {
			return nil, err
		}

		hyps = append(hyps, Hypothesis{
			Mean: pose.Pose{X: x, Y: y, Heading: heading},
			Cov:  [2][2]float64{{cxx, cxy}, {cxy, cyy}},
		})
	}
	return hyps, nil
}

// Write writes a collection of hypotheses to a tab-delimited file.
func Write(name string, hyps []Hypothesis) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if err == nil && e != nil {
			err = e
		}
	}()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# amcl hypotheses\n")
	fmt.Fprintf(bw, "# date: %s\n", time.Now().Format(time.RFC3339))

	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true
	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("on file %q: while writing header: %v", name, err)
	}
	for _, h := range hyps {
		row := []string{
			strconv.FormatFloat(h.Mean.X, 'g', -1, 64),
			strconv.FormatFloat(h.Mean.Y, 'g', -1, 64),
			strconv.FormatFloat(h.Mean.Heading, 'g', -1, 64),
			strconv.FormatFloat(h.Cov[0][0], 'g', -1, 64),
			strconv.FormatFloat(h.Cov[0][1], 'g', -1, 64),
			strconv.FormatFloat(h.Cov[1][1], 'g', -1, 64),
		}
		if err := tsv.Write(row); err != nil {
			return fmt.Errorf("on file %q: %v", name, err)
		}
	}
	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
