/*
   cbmlink - Commodore disk drive access over IEC bus adapters
   Copyright (c) 2025, the cbmlink authors

   This file is part of cbmlink.

   cbmlink is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   cbmlink is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with cbmlink. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"fmt"
	"os"

	"github.com/cbmlink/cbmlink/pkg/run"
)

//
var CbmlinkVersion string

//
func synopsis() {
	fmt.Print(`
synopsis: cbmctl {serve|status|dir|identify|scan|reset|format|validate|init
                  |read|write|delete|shell|version} ...

run 'cbmctl {action} -h|--help' to see detailed info

`)
}

//
func version() {
	fmt.Printf("\ncbmlink %s\n\n", CbmlinkVersion)
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

	case "serve":
		version()
		run.DieOnError(run.NewServe().Execute(args))

	case "status":
		run.DieOnError(run.NewStatus().Execute(args))

	case "dir":
		run.DieOnError(run.NewDir().Execute(args))

	case "identify":
		run.DieOnError(run.NewIdentify().Execute(args))

	case "scan":
		run.DieOnError(run.NewScan().Execute(args))

	case "reset":
		run.DieOnError(run.NewReset().Execute(args))

	case "format":
		run.DieOnError(run.NewFormat().Execute(args))

	case "validate":
		run.DieOnError(run.NewValidate().Execute(args))

	case "init":
		run.DieOnError(run.NewInit().Execute(args))

	case "read":
		run.DieOnError(run.NewRead().Execute(args))

	case "write":
		run.DieOnError(run.NewWrite().Execute(args))

	case "delete":
		run.DieOnError(run.NewDelete().Execute(args))

	case "shell":
		run.DieOnError(run.NewShell().Execute(args))

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
