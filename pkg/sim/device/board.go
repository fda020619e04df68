// Package device assembles the simulated acquisition board: the
// firmware packages run on a synthetic front end and the USB endpoint is
// served over websocket.
package device

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/spectrig/pkg/framework"
	"github.com/robotalks/spectrig/pkg/l0/acq"
	"github.com/robotalks/spectrig/pkg/l0/boot"
	"github.com/robotalks/spectrig/pkg/l0/comm"
	"github.com/robotalks/spectrig/pkg/l0/hw"
	"github.com/robotalks/spectrig/pkg/l0/hw/periph"
	"github.com/robotalks/spectrig/pkg/link"
	"github.com/robotalks/spectrig/pkg/sim/config"
	"github.com/robotalks/spectrig/pkg/sim/frontend"
)

// Endpoint paths.
const (
	USBPath = "/usb"
	DFUPath = "/dfu"
)

var (
	// ErrNoHost indicates nothing is attached to the USB endpoint.
	ErrNoHost = errors.New("no host attached")
	// ErrReset is returned by Run when the application requested a reset.
	ErrReset = errors.New("reset requested")
)

// Board is the simulated board running the acquisition firmware.
type Board struct {
	Config   *config.Config
	Engine   *acq.Engine
	Bias     *hw.Switch
	Outbox   *comm.Outbox
	Sender   *comm.Sender
	Device   *comm.Device
	Transfer *frontend.Transfer
	// Marker is the update marker register.
	Marker boot.Word

	port    port
	resetCh chan struct{}
	once    sync.Once
}

// New creates a Board. GPIOs named in the config are opened.
func New(conf *config.Config, marker boot.Word) (*Board, error) {
	var pins [3]hw.Pin
	for n, name := range []string{conf.Board.GPIO.Bias, conf.Board.GPIO.Amp, conf.Board.GPIO.LED} {
		if name == "" {
			continue
		}
		pin, err := periph.Open(name)
		if err != nil {
			return nil, err
		}
		pins[n] = pin
	}
	if marker == nil {
		marker = &boot.RAMWord{}
	}

	b := &Board{
		Config:  conf,
		Bias:    hw.NewSwitch(pins[0]),
		Marker:  marker,
		resetCh: make(chan struct{}),
	}
	gen := frontend.NewGenerator(conf.Signal, b.Bias)
	b.Transfer = frontend.NewTransfer(gen)
	b.Outbox = comm.NewOutbox(&b.port)
	b.Sender = comm.NewSender(b.Outbox)

	ch := acq.NewChannel()
	ch.Threshold.Store(conf.Board.Threshold)
	ch.RearmThreshold.Store(conf.Board.Rthresh)
	b.Engine = acq.NewEngine(ch, b.Transfer, b.Sender, pins[1], pins[2])
	gen.Gates = append(gen.Gates, b.Engine.Amp)
	b.Device = comm.NewDevice(b.Engine, b.Bias, b.Sender, conf.Board.Serial)
	b.Engine.Init()
	return b, nil
}

// Handler serves the USB endpoint and the update request.
func (b *Board) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(USBPath, websocket.Handler(b.ServeUSB))
	mux.HandleFunc(DFUPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		glog.Info("update requested")
		b.RequestUpdate()
		w.WriteHeader(http.StatusAccepted)
	})
	return mux
}

// ServeUSB attaches a host. Only one host is attached at a time, others
// are disconnected immediately.
func (b *Board) ServeUSB(ws *websocket.Conn) {
	conn := link.NewConn(ws)
	if !b.port.attach(conn) {
		glog.Warningf("host %s rejected, endpoint busy", ws.Request().RemoteAddr)
		return
	}
	defer b.port.detach(conn)
	glog.Infof("host %s attached", ws.Request().RemoteAddr)
	b.Device.Reset()
	for {
		pkt, err := conn.ReadPacket()
		if err != nil {
			glog.Infof("host detached: %v", err)
			return
		}
		b.Device.Push(pkt)
	}
}

// Attached reports whether a host is attached.
func (b *Board) Attached() bool {
	return b.port.attached()
}

// RequestUpdate reboots into update mode.
func (b *Board) RequestUpdate() {
	boot.RequestUpdate(b.Marker, b.reset)
}

func (b *Board) reset() {
	b.once.Do(func() { close(b.resetCh) })
}

// Run serves the USB endpoint on the configured address until ctx is done
// or a reset is requested.
func (b *Board) Run(ctx context.Context) error {
	srv := &http.Server{Addr: b.Config.Board.Listen, Handler: b.Handler()}
	glog.Infof("USB endpoint ws://%s%s", b.Config.Board.Listen, USBPath)
	return b.run(ctx, func() error { return srv.ListenAndServe() }, func() { srv.Close() })
}

func (b *Board) run(ctx context.Context, serve func() error, stop func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer b.Engine.Pause()

	go func() {
		select {
		case <-b.resetCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	err := fx.NewRunnerWith(ctx).Go(
		fx.NamedRun("outbox", fx.RunnableFunc(b.Outbox.Run)),
		fx.NamedRun("usb", fx.RunnableFunc(func(ctx context.Context) error {
			defer cancel()
			return fx.RunWithContextCancel(ctx, stop, serve)
		})),
	).Wait()
	select {
	case <-b.resetCh:
		return ErrReset
	default:
		return err
	}
}

type port struct {
	lock sync.Mutex
	conn *link.Conn
}

func (p *port) attach(conn *link.Conn) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.conn != nil {
		return false
	}
	p.conn = conn
	return true
}

func (p *port) detach(conn *link.Conn) {
	p.lock.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.lock.Unlock()
}

func (p *port) attached() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.conn != nil
}

// Write sends one USB packet to the host.
func (p *port) Write(data []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.conn == nil {
		return 0, ErrNoHost
	}
	return p.conn.Write(data)
}
