// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package params implements reading and writing of the numeric AMCL
// filter parameters, as a TSV file.
package params

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

	"github.com/sirupsen/logrus"

	"github.com/js-arias/amcl/pf"
)

// Param is a keyword identifying a parameter in a params file.
type Param string

// Valid parameters.
const (
	// MinSamples is the KLD-sampling resample-limit lower bound.
	MinSamples Param = "minsamples"

	// MaxSamples is the KLD-sampling resample-limit upper bound, and
	// the capacity of each internal sample set.
	MaxSamples Param = "maxsamples"

	// Overhead is extra per-set capacity reserved for particles
	// injected after the KLD-adaptive draw (ResampleMap,
	// ResampleHyps, ResampleHyps3).
	Overhead Param = "overhead"

	// PopErr is the KLD-sampling error bound.
	PopErr Param = "poperr"

	// PopZ is the standard-normal quantile corresponding to PopErr.
	PopZ Param = "popz"

	// InitHeading selects the heading distribution used by map- and
	// point-based initialization: "uniform" or "zero".
	InitHeading Param = "initheading"
)

// PF is a collection of AMCL filter parameters.
type PF struct {
	name string

	minSamples int
	maxSamples int
	overhead   int

	popErr float64
	popZ   float64

	initHeading pf.HeadingInit
}

// New creates a parameter collection with the package defaults: the
// bounds and error rate used by the original AMCL implementation.
func New(name string) *PF {
	return &PF{
		name:        name,
		minSamples:  100,
		maxSamples:  5000,
		popErr:      0.01,
		popZ:        2.33,
		initHeading: pf.HeadingUniform,
	}
}

var header = []string{
	"parameter",
	"value",
}

// Read reads a params file from a TSV file.
//
// The TSV must contain the following fields:
//
//   - parameter, the name of the parameter
//   - value, the value of the parameter
//
// Here is an example file:
//
//	# amcl filter parameters
//	parameter	value
//	minsamples	100
//	maxsamples	5000
//	overhead	200
//	poperr	0.01
//	popz	2.33
//	initheading	uniform
func Read(name string) (*PF, error) {
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
		fields[strings.ToLower(h)] = i
	}
	for _, h := range header {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("on file %q: expecting field %q", name, h)
		}
	}

	p := New(name)
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
		}

		f := "parameter"
		keyword := Param(strings.ToLower(row[fields[f]]))

		f = "value"
		switch keyword {
		case MinSamples:
			v, err := strconv.Atoi(row[fields[f]])
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			p.minSamples = v
		case MaxSamples:
			v, err := strconv.Atoi(row[fields[f]])
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			p.maxSamples = v
		case Overhead:
			v, err := strconv.Atoi(row[fields[f]])
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			p.overhead = v
		case PopErr:
			v, err := strconv.ParseFloat(row[fields[f]], 64)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			p.popErr = v
		case PopZ:
			v, err := strconv.ParseFloat(row[fields[f]], 64)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			p.popZ = v
		case InitHeading:
			v := strings.ToLower(row[fields[f]])
			switch v {
			case "uniform":
				p.initHeading = pf.HeadingUniform
			case "zero":
				p.initHeading = pf.HeadingZero
			default:
				return nil, fmt.Errorf("on file %q: on row %d, field %q: unknown heading init %q", name, ln, f, v)
			}
		}
	}
	return p, nil
}

// Name returns the name used for this parameter collection.
func (p *PF) Name() string { return p.name }

// MinSamples returns the KLD-sampling resample-limit lower bound.
func (p *PF) MinSamples() int { return p.minSamples }

// MaxSamples returns the KLD-sampling resample-limit upper bound.
func (p *PF) MaxSamples() int { return p.maxSamples }

// Overhead returns the extra per-set injection capacity.
func (p *PF) Overhead() int { return p.overhead }

// PopErr returns the KLD-sampling error bound.
func (p *PF) PopErr() float64 { return p.popErr }

// PopZ returns the standard-normal quantile paired with PopErr.
func (p *PF) PopZ() float64 { return p.popZ }

// InitHeading returns the heading distribution for map- and
// point-based initialization.
func (p *PF) InitHeading() pf.HeadingInit { return p.initHeading }

// SetMinSamples sets the KLD-sampling resample-limit lower bound.
func (p *PF) SetMinSamples(v int) error {
	if v < 1 {
		return fmt.Errorf("invalid minSamples value: %d", v)
	}
	p.minSamples = v
	return nil
}

// SetMaxSamples sets the KLD-sampling resample-limit upper bound.
func (p *PF) SetMaxSamples(v int) error {
	if v < 1 {
		return fmt.Errorf("invalid maxSamples value: %d", v)
	}
	p.maxSamples = v
	return nil
}

// SetOverhead sets the extra per-set injection capacity.
func (p *PF) SetOverhead(v int) error {
	if v < 0 {
		return fmt.Errorf("invalid overhead value: %d", v)
	}
	p.overhead = v
	return nil
}

// SetPopParams sets the KLD-sampling error bound and its matching
// standard-normal quantile.
func (p *PF) SetPopParams(popErr, popZ float64) error {
	if popErr <= 0 || popErr >= 1 {
		return fmt.Errorf("invalid popErr value: %v", popErr)
	}
	p.popErr = popErr
	p.popZ = popZ
	return nil
}

// SetInitHeading sets the heading distribution for map- and
// point-based initialization.
func (p *PF) SetInitHeading(h pf.HeadingInit) {
	p.initHeading = h
}

// Alloc builds a *pf.Filter from this parameter collection, seeding
// its PRNG with seed (0 derives a seed from the current time) and
// wiring log as its diagnostics sink.
func (p *PF) Alloc(seed int64, log *logrus.Entry) *pf.Filter {
	f := pf.Alloc(p.minSamples, p.maxSamples, p.overhead, seed, log)
	f.SetPopParams(p.popErr, p.popZ)
	f.SetInitHeading(p.initHeading)
	return f
}

// Write writes the parameter collection to a TSV file.
func (p *PF) Write(name string) (err error) {
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
	fmt.Fprintf(bw, "# amcl filter parameters\n")
	fmt.Fprintf(bw, "# date: %s\n", time.Now().Format(time.RFC3339))

	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true
	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("on file %q: while writing header: %v", name, err)
	}

	initHeading := "uniform"
	if p.initHeading == pf.HeadingZero {
		initHeading = "zero"
	}
	rows := [][]string{
		{string(MinSamples), strconv.Itoa(p.minSamples)},
		{string(MaxSamples), strconv.Itoa(p.maxSamples)},
		{string(Overhead), strconv.Itoa(p.overhead)},
		{string(PopErr), strconv.FormatFloat(p.popErr, 'g', -1, 64)},
		{string(PopZ), strconv.FormatFloat(p.popZ, 'g', -1, 64)},
		{string(InitHeading), initHeading},
	}
	for _, row := range rows {
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
