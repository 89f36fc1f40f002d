// Copyright © 2023 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// AMCL is a tool for running adaptive Monte Carlo localization filter
// simulations.
package main

import (
	"github.com/js-arias/command"

	"github.com/js-arias/amcl/cmd/amcl/run"
)

var app = &command.Command{
	Usage: "amcl <command> [<argument>...]",
	Short: "a tool for adaptive Monte Carlo localization simulations",
}

func init() {
	app.Add(run.Command)
}

func main() {
	app.Main()
}
