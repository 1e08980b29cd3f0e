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

package run

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/cbmlink/cbmlink/pkg/cbm"
)

//
func NewShell() *Shell {

	s := &Shell{}
	s.Runner = *NewRunner(
		"shell [-D|--drive-device {device}] [-p|--port {port}]",
		"interactive drive shell",
		`
Use the shell command for an interactive session with a drive. Commands
issued at the prompt map onto the daemon's API; 'help' lists them.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Device, "drive-device", "D", "CBMLINK_DRIVE_DEVICE",
		cbm.DefaultDeviceNum, "IEC device number of the drive", false)

	return s
}

//
type Shell struct {
	//
	Runner
	//
	Device int
}

//
const shellHelp = `
  status              read drive status
  dir [0|1]           list directory, optionally of a sub-drive
  identify            identify drive model
  scan [from [to]]    scan bus for devices
  init                initialize drive unit
  reset               reset the IEC bus
  delete {name}       scratch a file
  validate            run BAM recovery scan
  device [num]        show or switch the target device
  help                show this help
  exit                leave the shell
`

//
func (s *Shell) Run() error {

	s.ParseSettings()

	if err := validateDevice(s.Device); err != nil {
		return err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      s.prompt(),
		HistoryFile: filepath.Join(home, ".cbmlink_history"),
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("status"),
			readline.PcItem("dir"),
			readline.PcItem("identify"),
			readline.PcItem("scan"),
			readline.PcItem("init"),
			readline.PcItem("reset"),
			readline.PcItem("delete"),
			readline.PcItem("validate"),
			readline.PcItem("device"),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			return nil
		}

		if done := s.process(strings.Fields(strings.TrimSpace(line))); done {
			return nil
		}
		rl.SetPrompt(s.prompt())
	}
}

//
func (s *Shell) prompt() string {
	return fmt.Sprintf("cbm(%d)> ", s.Device)
}

// process runs one shell line; the return value says whether to leave.
func (s *Shell) process(args []string) bool {

	if len(args) == 0 {
		return false
	}

	var err error

	switch args[0] {

	case "status":
		err = s.apiCallPrint("GET", fmt.Sprintf("/status/%d", s.Device))

	case "dir":
		path := fmt.Sprintf("/dir/%d", s.Device)
		if len(args) > 1 {
			path = fmt.Sprintf("%s?drive=%s", path, args[1])
		}
		err = s.apiCallPrint("GET", path)

	case "identify":
		err = s.apiCallPrint("GET", fmt.Sprintf("/identify/%d", s.Device))

	case "scan":
		path := "/scan"
		if len(args) > 2 {
			path = fmt.Sprintf("/scan?from=%s&to=%s", args[1], args[2])
		} else if len(args) > 1 {
			path = fmt.Sprintf("/scan?from=%s", args[1])
		}
		err = s.apiCallPrint("GET", path)

	case "init":
		err = s.apiCallPrint("PUT", fmt.Sprintf("/init/%d", s.Device))

	case "reset":
		err = s.apiCallPrint("PUT", "/reset")

	case "delete":
		if len(args) < 2 {
			fmt.Println("delete needs a file name")
			break
		}
		if GetUserConfirmation(fmt.Sprintf("delete '%s'?", args[1])) {
			err = s.apiCallPrint("DELETE", fmt.Sprintf("/file/%d/%s",
				s.Device, url.PathEscape(args[1])))
		}

	case "validate":
		err = s.apiCallPrint("PUT", fmt.Sprintf("/validate/%d", s.Device))

	case "device":
		if len(args) < 2 {
			fmt.Printf("targeting device %d\n", s.Device)
			break
		}
		d, convErr := strconv.Atoi(args[1])
		if convErr != nil || validateDevice(d) != nil {
			fmt.Printf("invalid device number: %s\n", args[1])
			break
		}
		s.Device = d

	case "help":
		fmt.Print(shellHelp, "\n")

	case "exit", "quit":
		return true

	default:
		fmt.Printf("unrecognized command: %s\n", args[0])
	}

	if err != nil {
		fmt.Printf("%v\n", err)
	}
	return false
}
