// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package gridmap

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Grid is a concrete, in-memory occupancy grid: a minimal owner of
// the Map interface, loadable from a tab-delimited file.
type Grid struct {
	sizeX, sizeY     int
	scale            float64
	originX, originY float64
	cells            []int8
}

var _ Map = (*Grid)(nil)

// NewGrid creates an empty (all-unknown) grid of the given size and
// geometry.
func NewGrid(sizeX, sizeY int, scale, originX, originY float64) *Grid {
	return &Grid{
		sizeX: sizeX, sizeY: sizeY,
		scale: scale, originX: originX, originY: originY,
		cells: make([]int8, sizeX*sizeY),
	}
}

func (g *Grid) SizeX() int       { return g.sizeX }
func (g *Grid) SizeY() int       { return g.sizeY }
func (g *Grid) Scale() float64   { return g.scale }
func (g *Grid) OriginX() float64 { return g.originX }
func (g *Grid) OriginY() float64 { return g.originY }

// GXWX converts a world x coordinate to a cell column.
func (g *Grid) GXWX(x float64) int {
	return int(math.Floor((x-g.originX)/g.scale+0.5)) + g.sizeX/2
}

// GYWY converts a world y coordinate to a cell row.
func (g *Grid) GYWY(y float64) int {
	return int(math.Floor((y-g.originY)/g.scale+0.5)) + g.sizeY/2
}

func (g *Grid) Valid(i, j int) bool {
	return i >= 0 && i < g.sizeX && j >= 0 && j < g.sizeY
}

func (g *Grid) Index(i, j int) int { return j*g.sizeX + i }

func (g *Grid) Cell(idx int) int8 { return g.cells[idx] }

// Bounds returns the world extent of the grid: the region GXWX and
// GYWY map onto cells, with the cell sizeX/2 (sizeY/2) centered on
// the origin.
func (g *Grid) Bounds() (minX, minY, maxX, maxY float64) {
	minX = g.originX + (float64(-(g.sizeX/2))-0.5)*g.scale
	maxX = g.originX + (float64(g.sizeX-g.sizeX/2)-0.5)*g.scale
	minY = g.originY + (float64(-(g.sizeY/2))-0.5)*g.scale
	maxY = g.originY + (float64(g.sizeY-g.sizeY/2)-0.5)*g.scale
	return minX, minY, maxX, maxY
}

// IsFree reports whether (x, y) maps to a valid, free cell.
func (g *Grid) IsFree(x, y float64) bool { return IsFree(g, x, y) }

// Set sets the occupancy state of cell (i, j); out-of-bounds cells
// are ignored.
func (g *Grid) Set(i, j int, state int8) {
	if !g.Valid(i, j) {
		return
	}
	g.cells[g.Index(i, j)] = state
}

var header = []string{"i", "j", "state"}

// Read reads an occupancy grid from a tab-delimited file.
//
// The file starts with comment lines carrying the grid geometry:
//
//	# amcl occupancy grid
//	# size_x	200
//	# size_y	200
//	# scale	0.05
//	# origin_x	0
//	# origin_y	0
//
// followed by a header row and one row per non-unknown cell:
//
//	i	j	state
//	10	12	-1
//	11	12	1
//
// Cells absent from the file default to Unknown.
func Read(name string) (*Grid, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := readFrom(f)
	if err != nil {
		return nil, fmt.Errorf("on file %q: %v", name, err)
	}
	return g, nil
}

func readFrom(r io.Reader) (*Grid, error) {
	br := bufio.NewReader(r)
	g := &Grid{scale: 1}

	meta := make(map[string]string)
	for {
		b, err := br.Peek(1)
		if err != nil || len(b) == 0 || b[0] != '#' {
			break
		}
		line, err := br.ReadString('\n')
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
		if fields := strings.Fields(line); len(fields) == 2 {
			meta[strings.ToLower(fields[0])] = fields[1]
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while reading header: %v", err)
		}
	}

	for _, k := range []string{"size_x", "size_y"} {
		v, ok := meta[k]
		if !ok {
			return nil, fmt.Errorf("missing %q", k)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %v", k, err)
		}
		if k == "size_x" {
			g.sizeX = n
		} else {
			g.sizeY = n
		}
	}
	if v, ok := meta["scale"]; ok {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: %v", "scale", err)
		}
		g.scale = s
	}
	if v, ok := meta["origin_x"]; ok {
		g.originX, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := meta["origin_y"]; ok {
		g.originY, _ = strconv.ParseFloat(v, 64)
	}
	g.cells = make([]int8, g.sizeX*g.sizeY)

	tsv := csv.NewReader(br)
	tsv.Comma = '\t'
	tsv.Comment = '#'
	tsv.FieldsPerRecord = -1

	head, err := tsv.Read()
	if errors.Is(err, io.EOF) {
		return g, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		fields[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range header {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "i"
		i, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		f = "j"
		j, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		if !g.Valid(i, j) {
			return nil, fmt.Errorf("on row %d: cell (%d,%d) out of bounds", ln, i, j)
		}
		f = "state"
		state, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		g.cells[g.Index(i, j)] = int8(state)
	}

	return g, nil
}

// Write writes the grid to a tab-delimited file, skipping unknown
// cells.
func (g *Grid) Write(name string) (err error) {
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
	fmt.Fprintf(bw, "# amcl occupancy grid\n")
	fmt.Fprintf(bw, "# size_x\t%d\n", g.sizeX)
	fmt.Fprintf(bw, "# size_y\t%d\n", g.sizeY)
	fmt.Fprintf(bw, "# scale\t%.6f\n", g.scale)
	fmt.Fprintf(bw, "# origin_x\t%.6f\n", g.originX)
	fmt.Fprintf(bw, "# origin_y\t%.6f\n", g.originY)
	fmt.Fprintf(bw, "# date: %s\n", time.Now().Format(time.RFC3339))

	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true
	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("on file %q: while writing header: %v", name, err)
	}
	for j := 0; j < g.sizeY; j++ {
		for i := 0; i < g.sizeX; i++ {
			st := g.cells[g.Index(i, j)]
			if st == Unknown {
				continue
			}
			row := []string{strconv.Itoa(i), strconv.Itoa(j), strconv.Itoa(int(st))}
			if err := tsv.Write(row); err != nil {
				return fmt.Errorf("on file %q: %v", name, err)
			}
		}
	}
	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
