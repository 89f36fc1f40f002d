// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package params_test

import (
	"math"
	"os"
	"testing"

	"github.com/js-arias/amcl/params"
	"github.com/js-arias/amcl/pf"
)

func TestParams(t *testing.T) {
	p := params.New("test")
	if err := p.SetMinSamples(50); err != nil {
		t.Fatalf("SetMinSamples: %v", err)
	}
	if err := p.SetMaxSamples(2000); err != nil {
		t.Fatalf("SetMaxSamples: %v", err)
	}
	if err := p.SetOverhead(100); err != nil {
		t.Fatalf("SetOverhead: %v", err)
	}
	if err := p.SetPopParams(0.05, 1.65); err != nil {
		t.Fatalf("SetPopParams: %v", err)
	}
	p.SetInitHeading(pf.HeadingZero)

	testParams(t, p)

	name := "tmp-params-for-test.tab"
	defer os.Remove(name)

	if err := p.Write(name); err != nil {
		t.Fatalf("error when writing data: %v", err)
	}

	np, err := params.Read(name)
	if err != nil {
		t.Fatalf("error when reading data: %v", err)
	}
	testParams(t, np)
}

func testParams(t testing.TB, p *params.PF) {
	t.Helper()

	if p.MinSamples() != 50 {
		t.Errorf("MinSamples() = %d, want 50", p.MinSamples())
	}
	if p.MaxSamples() != 2000 {
		t.Errorf("MaxSamples() = %d, want 2000", p.MaxSamples())
	}
	if p.Overhead() != 100 {
		t.Errorf("Overhead() = %d, want 100", p.Overhead())
	}
	if math.Abs(p.PopErr()-0.05) > 1e-9 {
		t.Errorf("PopErr() = %v, want 0.05", p.PopErr())
	}
	if math.Abs(p.PopZ()-1.65) > 1e-9 {
		t.Errorf("PopZ() = %v, want 1.65", p.PopZ())
	}
	if p.InitHeading() != pf.HeadingZero {
		t.Errorf("InitHeading() = %v, want HeadingZero", p.InitHeading())
	}
}

func TestInvalidMinSamples(t *testing.T) {
	p := params.New("test")
	if err := p.SetMinSamples(0); err == nil {
		t.Error("SetMinSamples(0) = nil error, want error")
	}
}
