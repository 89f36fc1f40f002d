// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package scenario implements reading and writing of AMCL scenario
// files.
//
// An AMCL scenario is a tab-delimited file (TSV) used to store the
// paths of the different data files required to run a filter
// simulation: the occupancy map, the parameter collection, and
// optionally a run configuration, a set of hypotheses, an output
// prefix, and a log of recorded actions and sensor readings. The amcl
// run command does not read the log.
package scenario

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"
)

// Dataset is a keyword identifying the type of a dataset file in a
// scenario.
type Dataset string

// Valid dataset types.
const (
	// Map is the occupancy grid file.
	Map Dataset = "map"

	// Params is the numeric filter parameter file.
	Params Dataset = "params"

	// Hyps is the file of externally supplied hypotheses used by
	// ResampleHyps and ResampleHyps3.
	Hyps Dataset = "hyps"

	// Config is the YAML run configuration file.
	Config Dataset = "config"

	// Log is the file of recorded actions and sensor readings, one
	// record per simulation step. The path is stored and written back,
	// but the amcl run command does not read or replay it.
	Log Dataset = "log"

	// Output is the path prefix used for the simulation's result
	// files.
	Output Dataset = "output"
)

// A Scenario represents a collection of paths for the datasets needed
// to run an AMCL filter simulation.
type Scenario struct {
	name  string
	paths map[Dataset]string
}

// New creates a new empty scenario.
func New() *Scenario {
	return &Scenario{
		paths: make(map[Dataset]string),
	}
}

var header = []string{
	"dataset",
	"path",
}

// Read reads a scenario file from a TSV file.
//
// The TSV must contain the following fields:
//
//   - dataset, for the kind of file
//   - path, for the path of the file
//
// Here is an example file:
//
//	# amcl scenario files
//	dataset	path
//	map	office.tab
//	params	office.params.tab
//	hyps	doors.hyps.tab
//	log	run-1.log.tab
//	output	run-1
func Read(name string) (*Scenario, error) {
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

	s := New()
	s.name = name
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
		}

		f := "dataset"
		d := Dataset(strings.ToLower(row[fields[f]]))

		f = "path"
		path := row[fields[f]]
		s.paths[d] = path
	}

	return s, nil
}

// Add adds the filepath of a dataset to the scenario. It returns the
// previous value for the dataset.
func (s *Scenario) Add(set Dataset, path string) string {
	prev := s.paths[set]
	if path == "" {
		delete(s.paths, set)
		return prev
	}
	s.paths[set] = path
	return prev
}

// Path returns the path of the given dataset.
func (s *Scenario) Path(set Dataset) string {
	return s.paths[set]
}

// Sets returns the datasets defined on the scenario.
func (s *Scenario) Sets() []Dataset {
	var sets []Dataset
	for d := range s.paths {
		sets = append(sets, d)
	}
	slices.Sort(sets)
	return sets
}

// SetName sets the scenario file name.
func (s *Scenario) SetName(name string) {
	s.name = name
}

// Write writes the scenario to its file.
func (s *Scenario) Write() (err error) {
	f, err := os.Create(s.name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# amcl scenario files\n")
	fmt.Fprintf(bw, "# date saved: %s\n", time.Now().Format(time.RFC3339))
	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("on file %q: while writing header: %v", s.name, err)
	}

	for _, d := range s.Sets() {
		row := []string{string(d), s.paths[d]}
		if err := tsv.Write(row); err != nil {
			return fmt.Errorf("on file %q: %v", s.name, err)
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", s.name, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", s.name, err)
	}
	return nil
}
