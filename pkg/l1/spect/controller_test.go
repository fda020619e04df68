package spect

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/spectrig/pkg/framework"
	"github.com/robotalks/spectrig/pkg/l0/acq"
	"github.com/robotalks/spectrig/pkg/l0/comm"
	"github.com/robotalks/spectrig/pkg/l0/hw"
	l1comm "github.com/robotalks/spectrig/pkg/l1/comm"
	env "github.com/robotalks/spectrig/pkg/l1/env/controller"
	"github.com/robotalks/spectrig/pkg/l1/msgs"
)

type testTransfer struct {
	lock sync.Mutex
	dst  []uint16
	isr  func(acq.Half)
}

func (x *testTransfer) Setup(dst []uint16) { x.dst = dst }

func (x *testTransfer) Enable(isr func(acq.Half)) {
	x.lock.Lock()
	x.isr = isr
	x.lock.Unlock()
}

func (x *testTransfer) Disable() {
	x.lock.Lock()
	x.isr = nil
	x.lock.Unlock()
}

func (x *testTransfer) complete(samples ...uint16) {
	x.lock.Lock()
	defer x.lock.Unlock()
	half := x.dst[:acq.BufferSize/2]
	for i := range half {
		half[i] = 0
	}
	copy(half, samples)
	if x.isr != nil {
		x.isr(acq.FirstHalf)
	}
}

// boardLink connects the host directly to a Device.
type boardLink struct {
	device *comm.Device
	r      *io.PipeReader
	w      *io.PipeWriter
}

func (l *boardLink) Read(p []byte) (int, error) {
	return l.r.Read(p)
}

func (l *boardLink) Write(p []byte) (int, error) {
	l.device.Push(p)
	return len(p), nil
}

func (l *boardLink) Close() error {
	l.w.Close()
	return nil
}

type eventRecorder struct {
	lock   sync.Mutex
	events []*msgs.PulseEvent
}

func (r *eventRecorder) SendEvent(_ context.Context, msg fx.Message) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if ev, ok := msg.(*msgs.PulseEvent); ok {
		r.events = append(r.events, ev)
	}
	return nil
}

func (r *eventRecorder) peaks() (peaks []uint32) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, ev := range r.events {
		peaks = append(peaks, ev.Peaks...)
	}
	return
}

type controllerTestEnv struct {
	xfer   *testTransfer
	device *comm.Device
	events *eventRecorder
	ctl    *Controller
	opens  int
	link   *boardLink
	lock   sync.Mutex
}

func newControllerTestEnv(t *testing.T) (*controllerTestEnv, func()) {
	te := &controllerTestEnv{xfer: &testTransfer{}, events: &eventRecorder{}}
	open := func() (io.ReadWriteCloser, error) {
		te.lock.Lock()
		defer te.lock.Unlock()
		te.opens++
		pr, pw := io.Pipe()
		sender := comm.NewSender(comm.NewOutbox(pw))
		engine := acq.NewEngine(acq.NewChannel(), te.xfer, sender, nil, nil)
		engine.Init()
		te.device = comm.NewDevice(engine, hw.NewSwitch(nil), sender, 77)
		te.link = &boardLink{device: te.device, r: pr, w: pw}
		return te.link, nil
	}
	e := &env.Env{Registrar: &l1comm.RegistrarMux{}}
	e.Registrar.Add(te.events)
	te.ctl = NewController(e, open)
	te.ctl.EventInterval = 10 * time.Millisecond
	te.ctl.RetryInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	loop := fx.NewLoop().Add(e, te.ctl)
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	waitFor(t, te.ctl.Connected)
	return te, func() {
		cancel()
		<-done
	}
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestControllerProps(t *testing.T) {
	te, stop := newControllerTestEnv(t)
	defer stop()
	ctx := context.Background()

	testCases := []struct {
		name  string
		msg   fx.Message
		reply fx.Message
	}{
		{"ping", &msgs.Ping{}, msgs.NewCommandOK()},
		{"get serial", &msgs.PropGet{Key: "serial"}, &msgs.PropValue{Key: "serial", Value: 77}},
		{"get by number", &msgs.PropGet{Key: "1"}, &msgs.PropValue{Key: "firmware", Value: 0x0002}},
		{"set threshold", &msgs.PropSet{Key: "threshold", Value: 300}, msgs.NewCommandOK()},
		{"get threshold", &msgs.PropGet{Key: "threshold"}, &msgs.PropValue{Key: "threshold", Value: 300}},
		{"set read-only", &msgs.PropSet{Key: "firmware", Value: 3}, &msgs.CommandErr{Message: comm.ErrUnsupported.Error(), Code: 3}},
		{"get unknown", &msgs.PropGet{Key: "99"}, &msgs.CommandErr{Message: comm.ErrUnknownKey.Error(), Code: 2}},
		{"set out of range", &msgs.PropSet{Key: "threshold", Value: 0x10000}, msgs.NewCommandErrFromMsg("threshold out of range")},
		{"set cpm threshold", &msgs.PropSet{Key: CpmThresholdKey, Value: 50}, msgs.NewCommandOK()},
		{"get cpm threshold", &msgs.PropGet{Key: CpmThresholdKey}, &msgs.PropValue{Key: CpmThresholdKey, Value: 50}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.reply, te.ctl.Execute(ctx, tc.msg))
		})
	}

	reply := te.ctl.Execute(ctx, &msgs.PropGet{Key: "gain"})
	require.IsType(t, &msgs.CommandErr{}, reply)

	props, err := te.ctl.Props(ctx)
	require.NoError(t, err)
	require.Len(t, props, len(comm.Keys())+1)
	require.Equal(t, msgs.PropValue{Key: "threshold", Value: 300}, props[1])
	require.Equal(t, msgs.PropValue{Key: CpmThresholdKey, Value: 50}, props[len(props)-1])
}

func TestControllerAcquisition(t *testing.T) {
	te, stop := newControllerTestEnv(t)
	defer stop()
	ctx := context.Background()

	require.Equal(t, msgs.NewCommandOK(), te.ctl.Execute(ctx, &msgs.PropSet{Key: "rthresh", Value: 0}))
	require.Equal(t, msgs.NewCommandOK(), te.ctl.Execute(ctx, &msgs.AcqStart{}))
	require.True(t, te.device.Engine.Running())

	te.xfer.complete(0, 200, 0, 300, 0)
	waitFor(t, func() bool { return te.ctl.Histogram().Total() == 2 })
	waitFor(t, func() bool { return len(te.events.peaks()) == 2 })
	require.Equal(t, []uint32{200, 300}, te.events.peaks())

	reply := te.ctl.Execute(ctx, &msgs.SpectrumQuery{CpmThreshold: 250})
	spect, ok := reply.(*msgs.Spectrum)
	require.True(t, ok)
	require.Len(t, spect.Counts, Channels)
	require.Equal(t, uint32(1), spect.Counts[200])
	require.Equal(t, uint32(1), spect.Counts[300])
	require.Equal(t, uint64(2), spect.Total)
	require.Equal(t, uint32(250), spect.CpmThreshold)
	require.True(t, spect.Running)

	require.Equal(t, msgs.NewCommandOK(), te.ctl.Execute(ctx, &msgs.AcqStop{}))
	require.False(t, te.device.Engine.Running())
	spect = te.ctl.Execute(ctx, &msgs.SpectrumQuery{NoCounts: true}).(*msgs.Spectrum)
	require.Nil(t, spect.Counts)
	require.False(t, spect.Running)
	require.Equal(t, uint32(te.ctl.CpmThreshold()), spect.CpmThreshold)

	export := te.ctl.Export()
	require.False(t, export.From.IsZero())
	require.Equal(t, uint32(1), export.Counts[300])
	require.Equal(t, uint64(2), export.Total())
	require.Equal(t, strconv.Itoa(int(te.ctl.CpmThreshold())), export.Meta[CpmThresholdKey])

	require.Equal(t, msgs.NewCommandOK(), te.ctl.Execute(ctx, &msgs.SpectrumReset{}))
	require.Zero(t, te.ctl.Histogram().Total())
}

func TestControllerRelink(t *testing.T) {
	te, stop := newControllerTestEnv(t)
	defer stop()

	te.lock.Lock()
	te.link.Close()
	te.lock.Unlock()
	waitFor(t, func() bool {
		te.lock.Lock()
		defer te.lock.Unlock()
		return te.opens > 1
	})
	waitFor(t, te.ctl.Connected)
	require.Equal(t, msgs.NewCommandOK(), te.ctl.Execute(context.Background(), &msgs.Ping{}))
}

func TestControllerNotConnected(t *testing.T) {
	ctl := NewController(&env.Env{Registrar: &l1comm.RegistrarMux{}}, func() (io.ReadWriteCloser, error) {
		return nil, errors.New("no board")
	})
	reply := ctl.Execute(context.Background(), &msgs.Ping{})
	require.Equal(t, msgs.NewCommandErr(comm.ErrNotReady), reply)
	_, err := ctl.Props(context.Background())
	require.Equal(t, comm.ErrNotReady, err)

	// host side commands work without the board
	_, ok := ctl.Execute(context.Background(), &msgs.SpectrumQuery{}).(*msgs.Spectrum)
	require.True(t, ok)
}

func TestControllerCommandsThroughLoop(t *testing.T) {
	te, stop := newControllerTestEnv(t)
	defer stop()

	done := make(chan fx.Message, 1)
	te.ctl.cmdCh <- &testCommand{msg: &msgs.PropGet{Key: "serial"}, done: done}
	select {
	case reply := <-done:
		require.Equal(t, &msgs.PropValue{Key: "serial", Value: 77}, reply)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply")
	}
}

type testCommand struct {
	msg  fx.Message
	done chan fx.Message
}

func (c *testCommand) Msg() fx.Message { return c.msg }

func (c *testCommand) Done(msg fx.Message) error {
	c.done <- msg
	return nil
}
