// Package framework is the composition root (C11): it owns every other
// component instance, lays out the triple-buffer descriptor table, wires
// the stream engine's pre/post actions and sync callback. New constructs
// an instance; the main loop drives ProcessSync, ProcessAsync and Exit.
//
// Grounded on pkg/network.Network's "owns every subsystem, wires
// callbacks at construction, exposes Process()" composition style,
// generalized from a CANopen node to a PSI/SN instance per
// original_source/.../psi/psi.c's psi_init()/psi_processDataIn()/
// psi_processDataOut() split.
package framework

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/epsg/go-psi/pkg/cc"
	"github.com/epsg/go-psi/pkg/config"
	"github.com/epsg/go-psi/pkg/constime"
	"github.com/epsg/go-psi/pkg/cyclemon"
	"github.com/epsg/go-psi/pkg/errorhandler"
	"github.com/epsg/go-psi/pkg/logbook"
	"github.com/epsg/go-psi/pkg/pdoimage"
	"github.com/epsg/go-psi/pkg/platform"
	"github.com/epsg/go-psi/pkg/seqnr"
	"github.com/epsg/go-psi/pkg/ssdo"
	"github.com/epsg/go-psi/pkg/statehandler"
	"github.com/epsg/go-psi/pkg/status"
	"github.com/epsg/go-psi/pkg/stream"
	"github.com/epsg/go-psi/pkg/tbuf"
)

// Params bundles everything the composition root needs to wire one PSI/SN
// instance at startup.
type Params struct {
	Config      *config.Config
	Topology    stream.Topology
	Objects     []config.ObjectDef
	Store       cc.ObjectStore
	Logger      *log.Logger
	Transitions statehandler.Transitions
	Clock       platform.Clock
	Counter     platform.HardwareCounter
	RpdoImage   []byte
	TpdoImage   []byte
	PdoSync     pdoimage.SyncCallback
	SsdoRx      []ssdo.RxHandler // one per configured SSDO channel
}

// Instance is one running PSI/SN composition: every component wired
// together behind the three calls the main loop drives.
type Instance struct {
	mu sync.Mutex

	cfg    *config.Config
	errs   *errorhandler.Handler
	stream *stream.Engine
	status *status.Channel
	pdo    *pdoimage.Exchange
	cc     *cc.Channel
	ssdo   []*ssdo.Channel
	log    []*logbook.Channel
	state  *statehandler.Handler
	ct     *constime.ConsecutiveTime
	mon    *cyclemon.Monitor
	clock  platform.Clock
}

const ccObjectMax = 64 // largest single CC payload this build's descriptor table reserves

func New(p Params) (*Instance, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := p.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	clock := p.Clock
	if clock == nil {
		clock = platform.NewSystemClock()
	}
	counter := p.Counter
	if counter == nil {
		counter = platform.NewSystemClock16(clock)
	}

	errs := errorhandler.New(logger, nil)

	ct, err := constime.New(counter, cfg.ConsecutiveTimeDivider)
	if err != nil {
		return nil, err
	}

	engine := stream.New(p.Topology, errs)
	ack := tbuf.NewAckRegister()

	statusCh := status.New(nil)
	statusInData := make([]byte, status.InboundFrameLen)
	statusInData[10], statusInData[11] = 0xFF, 0xFF // async_cons_status idle: see status.flagsIdle
	statusIn := tbuf.New(tbuf.ID(platform.StatusIn), statusInData, ack)
	statusOut := tbuf.New(tbuf.ID(platform.StatusOut), make([]byte, status.OutboundFrameLen), ack)
	engine.RegisterBuffer(statusIn)
	engine.RegisterBuffer(statusOut)
	mustRegister(engine, stream.PhasePre, platform.StatusIn, statusCh.DecodeInbound)
	mustRegister(engine, stream.PhasePost, platform.StatusOut, statusCh.EncodeOutbound)

	rpdoCh := pdoimage.NewChannel(p.RpdoImage)
	tpdoCh := pdoimage.NewChannel(p.TpdoImage)
	pdoExchange := pdoimage.NewExchange(rpdoCh, tpdoCh, p.PdoSync)
	rpdoBuf := tbuf.New(tbuf.ID(platform.RpdoImage), make([]byte, bufLen(p.RpdoImage)), ack)
	tpdoBuf := tbuf.New(tbuf.ID(platform.TpdoImage), make([]byte, bufLen(p.TpdoImage)), ack)
	engine.RegisterBuffer(rpdoBuf)
	engine.RegisterBuffer(tpdoBuf)
	mustRegister(engine, stream.PhasePre, platform.RpdoImage, rpdoCh.DecodeInto)
	mustRegister(engine, stream.PhasePost, platform.TpdoImage, tpdoCh.EncodeFrom)

	ccCh := cc.New(p.Objects, p.Store, errs, int(cfg.CcTxTimeoutCycles))
	ccIn := tbuf.New(tbuf.ID(platform.CcInput), make([]byte, 8+ccObjectMax), ack)
	ccOut := tbuf.New(tbuf.ID(platform.CcOutput), make([]byte, 8+ccObjectMax), ack)
	engine.RegisterBuffer(ccIn)
	engine.RegisterBuffer(ccOut)
	mustRegister(engine, stream.PhasePre, platform.CcInput, ccCh.DecodeInbound)
	mustRegister(engine, stream.PhasePost, platform.CcOutput, ccCh.EncodeOutbound)

	// ssdo channel i's receive-ack bit occupies bit i of the status
	// channel's producer flags; logbook channels follow immediately after,
	// mirroring platform.LogTxID's buffer-id offsetting convention.
	ssdoChannels := make([]*ssdo.Channel, cfg.SsdoChannelCount)
	for i := 0; i < cfg.SsdoChannelCount; i++ {
		var rx ssdo.RxHandler
		if i < len(p.SsdoRx) {
			rx = p.SsdoRx[i]
		}
		ch := ssdo.New(uint16(cfg.SsdoPayloadMax*4), rx, errs, "ssdo", int(cfg.SsdoTxTimeoutCycles))
		ssdoChannels[i] = ch

		txID := platform.SsdoTxID(i)
		rxID := platform.SsdoRxID(cfg.SsdoChannelCount, i)
		txBuf := tbuf.New(tbuf.ID(txID), make([]byte, cfg.SsdoPayloadMax+2), ack)
		rxBuf := tbuf.New(tbuf.ID(rxID), make([]byte, cfg.SsdoPayloadMax+2), ack)
		engine.RegisterBuffer(txBuf)
		engine.RegisterBuffer(rxBuf)
		mustRegister(engine, stream.PhasePost, txID, ch.EncodeOutbound)

		bit := i
		mustRegister(engine, stream.PhasePre, rxID, func(buf *tbuf.Buffer) error {
			if err := ch.DecodeInbound(buf); err != nil {
				return err
			}
			statusCh.SetAsyncRxChanFlag(bit, ch.RxAckBit())
			return nil
		})
	}

	logChannels := make([]*logbook.Channel, cfg.LogbookChannelCount)
	for i := 0; i < cfg.LogbookChannelCount; i++ {
		ch := logbook.New(uint16(64), errs, "logbook", int(cfg.LogTxTimeoutCycles))
		logChannels[i] = ch
		txID := platform.LogTxID(cfg.SsdoChannelCount, i)
		txBuf := tbuf.New(tbuf.ID(txID), make([]byte, 32), ack)
		engine.RegisterBuffer(txBuf)
		mustRegister(engine, stream.PhasePost, txID, ch.EncodeOutbound)
	}
	if len(logChannels) > 0 {
		errs.AttachLogbook(logChannels[0])
	}

	mon := cyclemon.New(clock, cfg)
	state := statehandler.New(p.Transitions, errs, logger)

	inst := &Instance{
		cfg: cfg, errs: errs, stream: engine, status: statusCh, pdo: pdoExchange,
		cc: ccCh, ssdo: ssdoChannels, log: logChannels, state: state, ct: ct, mon: mon, clock: clock,
	}

	engine.RegisterSyncCallback(func() error {
		ct.Process()
		now := ct.GetTimeBase()
		mon.OnSyncPulse(now)
		state.HandleStateChange(now)
		return pdoExchange.RunSync()
	})

	return inst, nil
}

// ProcessSync runs one fieldbus cycle: all registered pre-actions, the
// sync callback, transfers, then post-actions. Called from the
// sync-interrupt context, so it must stay free of blocking operations.
func (i *Instance) ProcessSync() error {
	return i.stream.ProcessSync()
}

// ProcessAsync runs the main-loop housekeeping that must not run from the
// sync-interrupt context: cycle-timeout detection, the Timeout→Init
// recovery, and draining CC/SSDO/logbook acknowledgments reported by the
// remote on the status channel. A post/write staged by WriteObject,
// PostPayload, or PostLogEntry is released here once the status channel's
// flags confirm the remote observed it, or by the channel's own
// EncodeOutbound when its timeout cycle count runs out.
func (i *Instance) ProcessAsync() {
	i.mon.Process()
	now := i.ct.GetTimeBase()
	if i.mon.CheckTimeout(now) {
		i.errs.Report(errorhandler.Report{
			Source: "cyclemon", Severity: errorhandler.SeverityFailSafe,
			Kind: errorhandler.KindCycleMonStateInvalid,
		})
	}

	i.cc.ConfirmDelivered(i.status.GetIccStatus())

	for idx, ch := range i.ssdo {
		ch.PostAcked(seqnr.FromBit(i.status.GetAsyncTxChanFlag(idx)))
	}
	for idx, ch := range i.log {
		ch.PostAcked(seqnr.FromBit(i.status.GetAsyncTxChanFlag(i.cfg.SsdoChannelCount + idx)))
	}
}

// Exit requests an orderly shutdown; the state handler transitions to
// Shutdown on the next ProcessSync.
func (i *Instance) Exit() {
	i.state.RequestShutdown()
}

func (i *Instance) Errors() *errorhandler.Handler    { return i.errs }
func (i *Instance) State() *statehandler.Handler     { return i.state }
func (i *Instance) ConsecutiveTime() *constime.ConsecutiveTime { return i.ct }
func (i *Instance) CycleMonitor() *cyclemon.Monitor  { return i.mon }
func (i *Instance) CC() *cc.Channel                  { return i.cc }
func (i *Instance) SSDO(ch int) *ssdo.Channel        { return i.ssdo[ch] }
func (i *Instance) Logbook(ch int) *logbook.Channel  { return i.log[ch] }

func bufLen(image []byte) int {
	if len(image) == 0 {
		return 1
	}
	return len(image)
}

func mustRegister(engine *stream.Engine, phase stream.Phase, id platform.BufferID, action stream.Action) {
	if err := engine.RegisterAction(phase, id, action); err != nil {
		panic(err) // programmer error: descriptor table and registration calls disagree
	}
}
