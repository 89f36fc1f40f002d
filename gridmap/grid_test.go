// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package gridmap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/js-arias/amcl/gridmap"
)

func TestTransformAndFreeCell(t *testing.T) {
	g := gridmap.NewGrid(10, 10, 1.0, 0, 0)
	g.Set(5, 5, gridmap.Free)
	g.Set(6, 5, gridmap.Occupied)

	if i, j := g.GXWX(0), g.GYWY(0); i != 5 || j != 5 {
		t.Fatalf("GXWX(0),GYWY(0) = (%d,%d), want (5,5)", i, j)
	}
	if !g.IsFree(0, 0) {
		t.Errorf("IsFree(0,0) = false, want true")
	}
	if g.IsFree(1, 0) {
		t.Errorf("IsFree(1,0) = true, want false (occupied)")
	}
	if g.IsFree(1000, 1000) {
		t.Errorf("IsFree out of bounds = true, want false")
	}
}

func TestWriteRead(t *testing.T) {
	g := gridmap.NewGrid(4, 4, 0.5, 1, 2)
	g.Set(0, 0, gridmap.Free)
	g.Set(1, 1, gridmap.Occupied)

	name := filepath.Join(t.TempDir(), "grid.tab")
	if err := g.Write(name); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := gridmap.Read(name)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.SizeX() != 4 || got.SizeY() != 4 {
		t.Errorf("size = (%d,%d), want (4,4)", got.SizeX(), got.SizeY())
	}
	if got.Cell(got.Index(0, 0)) != gridmap.Free {
		t.Errorf("cell (0,0) = %d, want Free", got.Cell(got.Index(0, 0)))
	}
	if got.Cell(got.Index(1, 1)) != gridmap.Occupied {
		t.Errorf("cell (1,1) = %d, want Occupied", got.Cell(got.Index(1, 1)))
	}

	if _, err := os.Stat(name); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}
