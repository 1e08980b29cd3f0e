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
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/cbmlink/cbmlink/pkg/cbm"
	"github.com/cbmlink/cbmlink/pkg/control"
	"github.com/cbmlink/cbmlink/pkg/xum"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		`serve -d|--device {device} [-a|--address {address}] [-r|--reset]`,
		"daemon & API server command",
		`Use the serve command for running the daemon and API server. The daemon owns
the serial port of the USB-to-IEC adapter; all other cbmctl commands talk to
the daemon's API. Optionally, the IEC bus can be reset once after connecting
to the adapter.`,
		"", `- Logging can be configured with these environment variables:

  LOG_FORMAT		set to 'json' for JSON logging
  LOG_FORCE_COLORS	set to non-empty for forcing colorized log entries
  LOG_METHODS		set to non-empty for including methods in log
  LOG_LEVEL		panic, fatal, error, warn, info, debug, trace

`+runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Device, "device", "d", "CBMLINK_DEVICE", nil,
		"serial port device for adapter", true)
	s.AddSetting(&s.Address, "address", "a", "CBMLINK_ADDRESS", "0.0.0.0",
		"listen address for API server", false)
	s.AddSetting(&s.Reset, "reset", "r", "", nil,
		"reset the IEC bus after connecting to the adapter", false)

	return s
}

//
type Serve struct {
	//
	Runner
	//
	Device  string
	Address string
	Reset   bool
}

//
func (s *Serve) Run() error {

	s.ParseSettings()

	c, err := cbm.New(xum.Opener(s.Device))
	if err != nil {
		return err
	}

	if s.Reset {
		if err := c.ResetBus(); err != nil {
			log.Errorf("initial bus reset failed: %v", err)
		}
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)

	api := control.NewAPIServer(s.Address, c)
	go func() {
		defer wg.Done()
		if err := api.Serve(); err != nil {
			log.Errorf("API server closed with error: %v", err)
		} else {
			log.Info("API server stopped")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sigCount := 0
	done := make(chan bool)

	for {

		select {

		case sig := <-sigs: // interrupt signal
			log.WithField("signal", sig).Info("signal received")
			sigCount++

			switch sigCount {

			case 1:
				go func() {
					log.Info("shutting down, hit Ctrl-C twice to force exit...")
					api.Stop()
					if err := c.Close(); err != nil {
						log.Errorf("closing adapter: %v", err)
					}
					wg.Wait()
					log.Info("cbmlink stopped")
					done <- true
				}()

			case 2:
				log.Warn("shutdown in progress, hit Ctrl-C again to force exit")

			default:
				log.Warn("forcing daemon to stop immediately")
				os.Exit(1)
			}

		case <-done: // shutdown sequence complete
			return nil
		}
	}
}
