// Package spect is the L1 controller of the spectrometer board: it drives
// the board over its link, accumulates the spectrum and serves L1 commands.
package spect

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/spectrig/pkg/framework"
	"github.com/robotalks/spectrig/pkg/l0/comm"
	"github.com/robotalks/spectrig/pkg/l1"
	env "github.com/robotalks/spectrig/pkg/l1/env/controller"
	"github.com/robotalks/spectrig/pkg/l1/msgs"
	"github.com/robotalks/spectrig/pkg/l1/spect/histfile"
)

// CpmThresholdKey is the host side property holding the lowest channel
// counted in the rate.
const CpmThresholdKey = "cpm_threshold"

// MaxPendingPeaks bounds the peaks waiting for the next PulseEvent.
const MaxPendingPeaks = 4096

// ErrBusy rejects a command when too many are queued.
var ErrBusy = errors.New("busy")

// Opener opens the link to the board.
type Opener func() (io.ReadWriteCloser, error)

// Controller is the L1 controller of a spectrometer board.
type Controller struct {
	Env           *env.Env
	Open          Opener
	EventInterval time.Duration
	RetryInterval time.Duration

	hist         *Histogram
	cmdCh        chan l1.Command
	client       atomic.Pointer[comm.Client]
	cpmThreshold atomic.Uint32

	peaksLock sync.Mutex
	peaks     []uint32
	missed    uint64
}

// NewController creates a Controller.
func NewController(e *env.Env, open Opener) *Controller {
	c := &Controller{
		Env:           e,
		Open:          open,
		EventInterval: defaultConfig.EventInterval,
		RetryInterval: defaultConfig.RetryInterval,
		hist:          NewHistogram(),
		cmdCh:         make(chan l1.Command, 16),
	}
	c.cpmThreshold.Store(uint32(defaultConfig.CpmThreshold))
	return c
}

// Histogram gets the accumulated spectrum.
func (c *Controller) Histogram() *Histogram {
	return c.hist
}

// CpmThreshold is the lowest channel counted in the rate.
func (c *Controller) CpmThreshold() uint16 {
	return uint16(c.cpmThreshold.Load())
}

// SetCpmThreshold sets the lowest channel counted in the rate.
func (c *Controller) SetCpmThreshold(v uint16) {
	c.cpmThreshold.Store(uint32(v))
}

// Export captures the histogram text export.
func (c *Controller) Export() *histfile.File {
	f := c.hist.Export(time.Now())
	if f.Meta == nil {
		f.Meta = make(map[string]string)
	}
	f.Meta[CpmThresholdKey] = strconv.Itoa(int(c.CpmThreshold()))
	return f
}

// Spectrum captures the accumulated spectrum, threshold 0 uses
// CpmThreshold.
func (c *Controller) Spectrum(threshold uint16, withCounts bool) *msgs.Spectrum {
	if threshold == 0 {
		threshold = c.CpmThreshold()
	}
	return c.hist.Snapshot(time.Now(), threshold, withCounts)
}

// Connected tells whether the board answers on the link.
func (c *Controller) Connected() bool {
	return c.client.Load() != nil
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(c)
	loop.AddController(fx.PrLvControl, c)
	loop.AddController(fx.PrLvPostProc, fx.ControlFunc(c.publishPulses))
}

// Run implements Runnable.
func (c *Controller) Run(ctx context.Context) error {
	return fx.NewRunnerWith(ctx).
		Go(fx.NamedRun("link", fx.RunnableFunc(c.runLink))).
		Go(fx.NamedRun("commands", fx.RunnableFunc(c.runCommands))).
		Go(fx.NamedRun("pulses", fx.RunnableFunc(c.runPulses))).
		Wait()
}

// Control implements Controller.
func (c *Controller) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		msg, ok := mctx.CurrentMessage().(*l1.CommandMsg)
		if !ok {
			return
		}
		switch msg.Command.Msg().(type) {
		case *msgs.Ping, *msgs.PropGet, *msgs.PropSet,
			*msgs.AcqStart, *msgs.AcqStop,
			*msgs.SpectrumQuery, *msgs.SpectrumReset:
			mctx.MessageTaken()
			select {
			case c.cmdCh <- msg.Command:
			default:
				msg.Command.Done(msgs.NewCommandErr(ErrBusy))
			}
		}
	}))
	return nil
}

// runCommands executes commands in order they are received.
func (c *Controller) runCommands(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.cmdCh:
			if err := cmd.Done(c.Execute(ctx, cmd.Msg())); err != nil {
				glog.Warningf("reply %s: %v", msgs.Name(cmd.Msg()), err)
			}
		}
	}
}

// Execute runs a single command and returns the reply.
func (c *Controller) Execute(ctx context.Context, msg fx.Message) fx.Message {
	now := time.Now()
	switch m := msg.(type) {
	case *msgs.SpectrumQuery:
		if m.CpmThreshold >= Channels {
			return msgs.NewCommandErrFromMsg("cpm_threshold out of range")
		}
		return c.Spectrum(uint16(m.CpmThreshold), !m.NoCounts)
	case *msgs.SpectrumReset:
		c.hist.Reset(now)
		return msgs.NewCommandOK()
	case *msgs.PropGet:
		if m.Key == CpmThresholdKey {
			return &msgs.PropValue{Key: m.Key, Value: uint32(c.CpmThreshold())}
		}
	case *msgs.PropSet:
		if m.Key == CpmThresholdKey {
			if m.Value >= Channels {
				return msgs.NewCommandErrFromMsg("cpm_threshold out of range")
			}
			c.SetCpmThreshold(uint16(m.Value))
			return msgs.NewCommandOK()
		}
	}

	client := c.client.Load()
	if client == nil {
		return commandErr(comm.ErrNotReady)
	}
	var err error
	switch m := msg.(type) {
	case *msgs.Ping:
		err = client.Ping(ctx)
	case *msgs.PropGet:
		var key comm.PropKey
		var val uint16
		if key, err = comm.ParsePropKey(m.Key); err == nil {
			if val, err = client.GetValue(ctx, key); err == nil {
				return &msgs.PropValue{Key: key.String(), Value: uint32(val)}
			}
		}
	case *msgs.PropSet:
		var key comm.PropKey
		if key, err = comm.ParsePropKey(m.Key); err == nil {
			if m.Value > 0xffff {
				return msgs.NewCommandErrFromMsg(key.String() + " out of range")
			}
			err = client.SetValue(ctx, key, uint16(m.Value))
		}
	case *msgs.AcqStart:
		if err = client.Start(); err == nil {
			c.hist.Start(now)
		}
	case *msgs.AcqStop:
		if err = client.End(); err == nil {
			c.hist.Stop(time.Now())
		}
	default:
		err = msgs.ErrUnsupportedCommand
	}
	if err != nil {
		return commandErr(err)
	}
	return msgs.NewCommandOK()
}

// Props reads the board properties.
func (c *Controller) Props(ctx context.Context) ([]msgs.PropValue, error) {
	client := c.client.Load()
	if client == nil {
		return nil, comm.ErrNotReady
	}
	props := make([]msgs.PropValue, 0, len(comm.KeyLengths)+1)
	for _, key := range comm.Keys() {
		val, err := client.GetValue(ctx, key)
		if err != nil {
			return nil, err
		}
		props = append(props, msgs.PropValue{Key: key.String(), Value: uint32(val)})
	}
	props = append(props, msgs.PropValue{Key: CpmThresholdKey, Value: uint32(c.CpmThreshold())})
	return props, nil
}

func commandErr(err error) *msgs.CommandErr {
	var cmdErr *comm.CommandError
	if errors.As(err, &cmdErr) {
		return &msgs.CommandErr{Message: cmdErr.Code.Error(), Code: uint32(cmdErr.Code)}
	}
	return msgs.NewCommandErr(err)
}

// runLink keeps the board attached, reopening the link after failures.
func (c *Controller) runLink(ctx context.Context) error {
	for {
		if err := c.attach(ctx); err != nil && ctx.Err() == nil {
			glog.Warningf("link: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.RetryInterval):
		}
	}
}

func (c *Controller) attach(ctx context.Context) error {
	rw, err := c.Open()
	if err != nil {
		return err
	}
	client := comm.NewClient(rw)
	errCh := make(chan error, 1)
	go func() {
		errCh <- fx.RunWithContextCloser(ctx, rw, func() error {
			return client.Run(ctx)
		})
	}()
	defer c.client.Store(nil)

	ready := time.NewTicker(10 * time.Millisecond)
	for !client.Running() {
		select {
		case err = <-errCh:
			ready.Stop()
			return err
		case <-ready.C:
		}
	}
	ready.Stop()

	if err = client.Sync(ctx); err != nil {
		rw.Close()
		<-errCh
		return err
	}
	if ver, err := client.Version(ctx); err == nil {
		glog.Infof("board attached, firmware %s", ver)
	}
	if c.hist.Running() {
		if err = client.Start(); err != nil {
			glog.Warningf("resume acquisition: %v", err)
		}
	}
	c.client.Store(client)

	for {
		select {
		case peak := <-client.EventChan():
			c.addPeak(peak)
		case err = <-errCh:
			glog.Warningf("board detached")
			return err
		}
	}
}

func (c *Controller) addPeak(peak uint16) {
	c.hist.Add(peak)
	c.peaksLock.Lock()
	if len(c.peaks) < MaxPendingPeaks {
		c.peaks = append(c.peaks, uint32(peak))
	} else {
		c.missed++
	}
	c.peaksLock.Unlock()
}

func (c *Controller) takePeaks() *pulseBatchMsg {
	c.peaksLock.Lock()
	defer c.peaksLock.Unlock()
	if len(c.peaks) == 0 {
		return nil
	}
	batch := &pulseBatchMsg{peaks: c.peaks, missed: c.missed}
	c.peaks = nil
	return batch
}

// runPulses posts the detected peaks to the loop periodically.
func (c *Controller) runPulses(ctx context.Context) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	ticker := time.NewTicker(c.EventInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if batch := c.takePeaks(); batch != nil {
				loopCtl.PostMessage(batch)
				loopCtl.TriggerNext()
			}
		}
	}
}

func (c *Controller) publishPulses(cc fx.ControlContext) error {
	var batches []*pulseBatchMsg
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if batch, ok := mctx.CurrentMessage().(*pulseBatchMsg); ok {
			mctx.MessageTaken()
			batches = append(batches, batch)
		}
	}))
	var errs fx.AggregatedError
	for _, batch := range batches {
		var missed uint64
		if client := c.client.Load(); client != nil {
			missed = client.Dropped()
		}
		errs.Add(c.Env.Registrar.SendEvent(cc.Context(), &msgs.PulseEvent{
			Peaks:  batch.peaks,
			Time:   cc.Time().UnixNano(),
			Missed: missed + batch.missed,
		}))
	}
	return errs.Aggregate()
}

type pulseBatchMsg struct {
	peaks  []uint32
	missed uint64
}

func (m *pulseBatchMsg) NewMessage() fx.Message { return &pulseBatchMsg{} }
