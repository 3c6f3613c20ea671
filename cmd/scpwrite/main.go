/*
   scpwrite - SuperCard Pro flux image writer
   Copyright (c) 2022, the scpwrite authors

   This file is part of scpwrite.

   scpwrite is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   scpwrite is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with scpwrite. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"fmt"
	"os"

	"github.com/fluxlab/scpwrite/pkg/run"
)

//
var ScpWriteVersion string

//
func synopsis() {
	fmt.Print(`
synopsis: scpwrite {write|info|verify|serve|status|version} ...

run 'scpwrite {action} -h|--help' to see detailed info

`)
}

//
func version() {
	fmt.Printf("\nscpwrite %s\n\n", ScpWriteVersion)
}

//
func main() {

	var action string
	var args []string

	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	switch action {

	case "write":
		run.DieOnError(run.NewWrite().Execute(args))

	case "info":
		run.DieOnError(run.NewInfo().Execute(args))

	case "verify":
		run.DieOnError(run.NewVerify().Execute(args))

	case "serve":
		version()
		run.DieOnError(run.NewServe().Execute(args))

	case "status":
		run.DieOnError(run.NewStatus().Execute(args))

	case "version":
		version()

	case "":
		fallthrough
	case "-h":
		fallthrough
	case "--help":
		synopsis()

	default:
		run.Die("unknown action: %s\n", action)
	}
}
