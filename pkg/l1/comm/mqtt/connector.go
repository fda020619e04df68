package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/spectrig/pkg/framework"
	"github.com/robotalks/spectrig/pkg/l1"
	"github.com/robotalks/spectrig/pkg/l1/comm"
)

// Connector implements l1.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	brokerURL string
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	if _, _, err := ClientOptionsFromURL(brokerURL); err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		brokerURL:       brokerURL,
	}, nil
}

// Discover implements Connector. Controllers announce themselves with a
// retained TYPE/ID/meta message, an empty one means it has gone.
func (c *Connector) Discover(ctx context.Context) (res []l1.ControllerInfo, err error) {
	q, err := NewQueueFromURL(c.brokerURL)
	if err != nil {
		return nil, err
	}
	token := q.Connect()
	token.Wait()
	if err = token.Error(); err != nil {
		return nil, err
	}
	defer q.Close()
	resCh := make(chan l1.ControllerInfo, 1)
	q.Sub("+/+/meta", Handler(func(topic string, payload []byte) {
		info, ok := ParseMeta(topic, payload)
		if !ok {
			return
		}
		select {
		case resCh <- info:
		case <-time.After(time.Second):
		}
	}))

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// ParseMeta extracts ControllerInfo from a meta topic (relative to the
// prefix) and its payload.
func ParseMeta(topic string, payload []byte) (info l1.ControllerInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != "meta" || len(payload) == 0 {
		return
	}
	info.Ref = l1.ControllerRef{Type: items[0], ID: items[1]}
	if !info.Ref.IsValid() {
		return
	}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("%s: invalid meta: %v", info.Ref.Name(), err)
	}
	return info, true
}

// Connect implements Connector. The returned connection must be Run.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	q, err := NewQueueFromURL(c.brokerURL)
	if err != nil {
		return nil, err
	}
	conn := &ControllerConn{Queue: q, rw: NewPacketReadWriter(q).ForConnector(ref)}
	conn.Init(conn.rw)
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	return conn, nil
}

// ControllerConn implements ControllerConn using MQTT.
type ControllerConn struct {
	comm.ControllerConn
	Queue *Queue

	rw *ReadWriter
}

// Run implements Runnable. It subscribes the reply topic and processes
// replies until ctx is done, then disconnects.
func (c *ControllerConn) Run(ctx context.Context) error {
	defer c.Queue.Close()
	return fx.NewRunnerWith(ctx).
		Go(fx.NamedRun("mqtt-sub", c.rw)).
		Go(fx.NamedRun("conn", fx.RunnableFunc(c.ControllerConn.Run))).
		Wait()
}
