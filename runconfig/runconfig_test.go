// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package runconfig_test

import (
	"os"
	"testing"

	"github.com/js-arias/amcl/runconfig"
)

func TestWriteRead(t *testing.T) {
	cfg := runconfig.Default()
	cfg.Steps = 500
	cfg.ResampleEvery = 5
	cfg.Resampler = runconfig.Hyps3
	cfg.Seed = 42

	name := "tmp-runconfig-for-test.yaml"
	defer os.Remove(name)

	if err := cfg.Write(name); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := runconfig.Read(name)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != cfg {
		t.Errorf("Read() = %+v, want %+v", got, cfg)
	}
}

func TestReadRejectsUnknownResampler(t *testing.T) {
	name := "tmp-runconfig-bad-for-test.yaml"
	defer os.Remove(name)
	if err := os.WriteFile(name, []byte("steps: 10\nresampler: bogus\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := runconfig.Read(name); err == nil {
		t.Error("Read with unknown resampler = nil error, want error")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := runconfig.Default()
	name := "tmp-runconfig-default-for-test.yaml"
	defer os.Remove(name)
	if err := cfg.Write(name); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := runconfig.Read(name); err != nil {
		t.Errorf("Read(Default()) = %v, want nil", err)
	}
}
