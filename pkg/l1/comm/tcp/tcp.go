// Package tcp connects L2 tools to an L1 controller directly, without a
// registry, using length-prefixed packets over TCP.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/spectrig/pkg/framework"
	"github.com/robotalks/spectrig/pkg/l1"
	"github.com/robotalks/spectrig/pkg/l1/comm"
	"github.com/robotalks/spectrig/pkg/l1/comm/stream"
)

// ErrNoDiscovery is returned by Connector.Discover.
var ErrNoDiscovery = errors.New("discovery not supported over tcp")

// Registrar accepts L2 clients on a TCP address, one at a time. Events
// are dropped while no client is connected.
type Registrar struct {
	Addr string

	lock   sync.Mutex
	client *comm.Registrar
}

// NewRegistrar creates a Registrar listening on addr.
func NewRegistrar(addr string) *Registrar {
	return &Registrar{Addr: addr}
}

// SendEvent implements l1.Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	r.lock.Lock()
	client := r.client
	r.lock.Unlock()
	if client == nil {
		return nil
	}
	return client.SendEvent(ctx, msg)
}

// AddToLoop implements fx.LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(r)
}

// Run implements fx.Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.Addr)
	if err != nil {
		return err
	}
	return r.Serve(ctx, ln)
}

// Serve accepts clients from ln until ctx is done. ctx must come from
// the Loop.
func (r *Registrar) Serve(ctx context.Context, ln net.Listener) error {
	glog.Infof("L1 listening on tcp %s", ln.Addr())
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			r.serve(ctx, conn)
		}
	})
}

func (r *Registrar) serve(ctx context.Context, conn net.Conn) {
	glog.Infof("L2 client %s connected", conn.RemoteAddr())
	client := &comm.Registrar{}
	client.Init(stream.New(conn))
	r.lock.Lock()
	r.client = client
	r.lock.Unlock()

	err := fx.RunWithContextCloser(ctx, client, func() error {
		return client.Run(ctx)
	})

	r.lock.Lock()
	r.client = nil
	r.lock.Unlock()
	glog.Infof("L2 client %s disconnected: %v", conn.RemoteAddr(), err)
}

// Connector dials the controller at Addr.
type Connector struct {
	Addr        string
	DialTimeout time.Duration
}

// DefaultDialTimeout is used when Connector.DialTimeout is not set.
const DefaultDialTimeout = 3 * time.Second

// NewConnector creates a Connector for addr.
func NewConnector(addr string) *Connector {
	return &Connector{Addr: addr, DialTimeout: DefaultDialTimeout}
}

// Discover implements l1.Connector.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	return nil, ErrNoDiscovery
}

// Connect implements l1.Connector. The address identifies the
// controller, ref is only logged. The returned connection must be Run.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	timeout := c.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("connected %s at %s", ref.Name(), c.Addr)
	cc := &comm.ControllerConn{}
	cc.Init(stream.New(conn))
	return cc, nil
}
