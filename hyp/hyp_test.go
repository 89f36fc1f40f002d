// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package hyp_test

import (
	"math"
	"os"
	"testing"

	"github.com/js-arias/amcl/hyp"
	"github.com/js-arias/amcl/pose"
)

func TestWriteRead(t *testing.T) {
	want := []hyp.Hypothesis{
		{Mean: pose.Pose{X: 10, Y: 4.5, Heading: 0}, Cov: [2][2]float64{{0.3, 0}, {0, 0.3}}},
		{Mean: pose.Pose{X: -2, Y: 6, Heading: 1.57}, Cov: [2][2]float64{{0.5, 0.1}, {0.1, 0.5}}},
	}

	name := "tmp-hyps-for-test.tab"
	defer os.Remove(name)

	if err := hyp.Write(name, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := hyp.Read(name)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Read() returned %d hypotheses, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i].Mean.X-want[i].Mean.X) > 1e-9 ||
			math.Abs(got[i].Mean.Y-want[i].Mean.Y) > 1e-9 ||
			math.Abs(got[i].Mean.Heading-want[i].Mean.Heading) > 1e-9 {
			t.Errorf("hypothesis %d mean = %+v, want %+v", i, got[i].Mean, want[i].Mean)
		}
		if got[i].Cov != want[i].Cov {
			t.Errorf("hypothesis %d cov = %+v, want %+v", i, got[i].Cov, want[i].Cov)
		}
	}
}
