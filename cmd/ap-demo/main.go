// Command ap-demo drives a PSI instance from the application-processor
// side: it runs the cyclic stream engine on a ticker, requests the state
// transitions up to Operational, and logs every state change and error
// report, in the style of a ticker-driven main loop with flag-parsed CLI options.
package main

import (
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/epsg/go-psi/pkg/config"
	"github.com/epsg/go-psi/pkg/framework"
	"github.com/epsg/go-psi/pkg/pdoimage"
	"github.com/epsg/go-psi/pkg/statehandler"
	"github.com/epsg/go-psi/pkg/stream"
)

type alwaysApproveTransitions struct{}

func (alwaysApproveTransitions) PerformTransPreOp(uint64) bool { return true }
func (alwaysApproveTransitions) EnterOpState(uint64) bool      { return true }

func main() {
	cyclePeriod := flag.Duration("cycle", time.Millisecond, "fieldbus cycle period")
	logLevel := flag.String("log-level", "info", "logrus level")
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("invalid -log-level %q: %v", *logLevel, err)
	}
	log.SetLevel(level)

	cfg := config.Default()
	inst, err := framework.New(framework.Params{
		Config:      cfg,
		Topology:    stream.TopologySingle,
		Transitions: alwaysApproveTransitions{},
		RpdoImage:   make([]byte, 16),
		TpdoImage:   make([]byte, 16),
		PdoSync: func(rpdo, tpdo *pdoimage.Channel) error {
			return nil
		},
	})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize PSI instance")
	}

	inst.State().AddStateChangeCallback(func(s statehandler.State) {
		log.WithField("state", s).Info("SN state changed")
	})

	go func() {
		asyncTicker := time.NewTicker(10 * time.Millisecond)
		defer asyncTicker.Stop()
		for range asyncTicker.C {
			inst.ProcessAsync()
			if inst.Errors().ShouldShutdown() {
				return
			}
		}
	}()

	inst.State().RequestEnterPreOperational()
	inst.State().RequestEnterOperational()

	ticker := time.NewTicker(*cyclePeriod)
	defer ticker.Stop()
	for range ticker.C {
		if err := inst.ProcessSync(); err != nil {
			log.WithError(err).Warn("sync cycle failed")
		}
		if inst.Errors().ShouldShutdown() {
			log.Info("fatal error reported, shutting down")
			os.Exit(1)
		}
	}
}
