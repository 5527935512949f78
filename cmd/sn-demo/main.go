// Command sn-demo drives the safe node's uP-Slave boot sequence: the
// dual-processor UART ping/pong handshake (C12/C13), the sync-wait time
// base alignment (C14), then the cyclic PSI instance once both
// processors agree they are ready.
package main

import (
	"flag"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/epsg/go-psi/pkg/config"
	"github.com/epsg/go-psi/pkg/constime"
	"github.com/epsg/go-psi/pkg/framework"
	"github.com/epsg/go-psi/pkg/handshake"
	"github.com/epsg/go-psi/pkg/ioserial"
	"github.com/epsg/go-psi/pkg/platform"
	"github.com/epsg/go-psi/pkg/snstate"
	"github.com/epsg/go-psi/pkg/statehandler"
	"github.com/epsg/go-psi/pkg/syncwait"
)

type alwaysApproveTransitions struct{}

func (alwaysApproveTransitions) PerformTransPreOp(uint64) bool { return true }
func (alwaysApproveTransitions) EnterOpState(uint64) bool      { return true }

func main() {
	device := flag.String("device", "", "UART device to the peer processor (empty uses an in-process loopback pair)")
	baud := flag.Uint("baud", 115200, "UART baud rate")
	cyclePeriod := flag.Duration("cycle", time.Millisecond, "fieldbus cycle period")
	flag.Parse()

	log.SetLevel(log.InfoLevel)

	var port ioserial.Port
	if *device == "" {
		a, b := ioserial.NewPipePair()
		defer b.Close()
		port = a
	} else {
		p, err := ioserial.OpenHardware(*device, uint32(*baud))
		if err != nil {
			log.WithError(err).Fatal("failed to open UART device")
		}
		port = p
	}
	defer port.Close()

	clock := platform.NewSystemClock()

	log.Info("running uP-Slave boot handshake")
	peerState, err := handshake.RunSlave(port, clock, snstate.Booting, time.Second, 10)
	if err != nil {
		log.WithError(err).Fatal("boot handshake failed")
	}
	log.WithField("peerState", peerState).Info("handshake complete")

	counter := platform.NewSystemClock16(clock)
	ct, err := constime.New(counter, config.DefaultConsecutiveTimeDivider)
	if err != nil {
		log.WithError(err).Fatal("failed to construct consecutive time base")
	}

	log.Info("waiting for sync alignment")
	alignedBase, err := syncwait.RunSlave(port, clock, ct, time.Second, 10)
	if err != nil {
		log.WithError(err).Fatal("sync-wait alignment failed")
	}
	log.WithField("consecutiveTimeUs", alignedBase).Info("time base aligned")

	cfg := config.Default()
	inst, err := framework.New(framework.Params{
		Config:      cfg,
		Transitions: alwaysApproveTransitions{},
		Clock:       clock,
		Counter:     counter,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize PSI instance")
	}
	inst.State().AddStateChangeCallback(func(s statehandler.State) {
		log.WithField("state", s).Info("SN state changed")
	})
	inst.State().RequestEnterPreOperational()
	inst.State().RequestEnterOperational()

	ticker := time.NewTicker(*cyclePeriod)
	defer ticker.Stop()
	for range ticker.C {
		if err := inst.ProcessSync(); err != nil {
			log.WithError(err).Warn("sync cycle failed")
		}
		inst.ProcessAsync()
		if inst.Errors().ShouldShutdown() {
			log.Info("fatal error reported, shutting down")
			return
		}
	}
}
