package comm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// SyncNOPs is the number of NOPs written by Sync to flush a partial
// packet left in the device frame buffer.
const SyncNOPs = 100

// Client provides host side operations over a device link.
//
// The protocol carries no sequence numbers, so requests are serialized:
// only one request waits for replies at any time.
type Client struct {
	Timeout time.Duration

	rw      io.ReadWriter
	reader  *Reader
	eventCh chan uint16
	waveCh  chan []uint16
	replyCh chan *Packet

	cmdLock   sync.Mutex
	writeLock sync.Mutex
	running   atomic.Bool
	dropped   atomic.Uint64
}

// NewClient creates a client over rw.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{
		Timeout: time.Second,
		rw:      rw,
		reader:  NewReader(rw),
		eventCh: make(chan uint16, 1024),
		waveCh:  make(chan []uint16, 16),
		replyCh: make(chan *Packet, 4),
	}
}

// EventChan retrieves the peaks of detected pulses.
func (c *Client) EventChan() <-chan uint16 {
	return c.eventCh
}

// WaveChan retrieves raw waveforms.
func (c *Client) WaveChan() <-chan []uint16 {
	return c.waveCh
}

// Dropped returns the number of stream packets dropped because nobody
// was reading EventChan or WaveChan.
func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

// Running reports whether Run is reading the link.
func (c *Client) Running() bool {
	return c.running.Load()
}

// Run reads from the link until ctx is done or the link fails. The
// reading goroutine stays blocked on the link after ctx is done, so the
// caller must close the link, e.g. with fx.RunWithContextCloser.
func (c *Client) Run(ctx context.Context) error {
	pktCh, errCh := make(chan *Packet), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.readLoop(subCtx, pktCh, errCh)

	c.running.Store(true)
	defer c.running.Store(false)
	for {
		select {
		case pkt := <-pktCh:
			c.dispatch(pkt)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) readLoop(ctx context.Context, pktCh chan *Packet, errCh chan error) {
	for {
		pkt, err := c.reader.Next()
		if err != nil {
			errCh <- err
			return
		}
		select {
		case pktCh <- pkt:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) dispatch(pkt *Packet) {
	glog.V(4).Infof("recv %s % x", pkt.Type, pkt.Data)
	switch pkt.Type {
	case PacketEvent:
		select {
		case c.eventCh <- pkt.Peak():
		default:
			c.dropped.Add(1)
		}
	case PacketWave:
		select {
		case c.waveCh <- pkt.Samples():
		default:
			c.dropped.Add(1)
		}
	default:
		select {
		case c.replyCh <- pkt:
		default:
			glog.Warningf("unexpected %s dropped", pkt.Type)
		}
	}
}

func (c *Client) write(p []byte) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	glog.V(4).Infof("send % x", p)
	_, err := c.rw.Write(p)
	return err
}

// do writes req and feeds replies to match until it reports done.
func (c *Client) do(ctx context.Context, req []byte, match func(*Packet) (bool, error)) error {
	if !c.running.Load() {
		return ErrNotReady
	}
	c.cmdLock.Lock()
	defer c.cmdLock.Unlock()

	for drained := false; !drained; {
		select {
		case pkt := <-c.replyCh:
			glog.V(3).Infof("stale %s discarded", pkt.Type)
		default:
			drained = true
		}
	}
	if err := c.write(req); err != nil {
		return err
	}

	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()
	for {
		select {
		case pkt := <-c.replyCh:
			if done, err := match(pkt); done {
				return err
			}
		case <-timer.C:
			return ErrNoReply
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sync flushes the device frame buffer and checks the device answers.
func (c *Client) Sync(ctx context.Context) error {
	if err := c.write(bytes.Repeat([]byte{byte(PacketNOP)}, SyncNOPs)); err != nil {
		return err
	}
	return c.Ping(ctx)
}

// Ping checks the device is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, []byte{byte(PacketPing)}, func(pkt *Packet) (bool, error) {
		switch pkt.Type {
		case PacketPong:
			return true, nil
		case PacketError:
			return true, &CommandError{Code: pkt.Code()}
		}
		return false, nil
	})
}

// Get reads the raw value of a property.
func (c *Client) Get(ctx context.Context, key PropKey) (val []byte, err error) {
	err = c.do(ctx, AppendGet(nil, key), func(pkt *Packet) (bool, error) {
		switch pkt.Type {
		case PacketGetResp:
			if pkt.Key() != key {
				return false, nil
			}
			val = pkt.Value()
			return true, nil
		case PacketError:
			return true, &CommandError{Code: pkt.Code()}
		}
		return false, nil
	})
	return
}

// Set writes the raw value of a property. SET has no reply on success, so
// a PING follows it and an ERROR received before the PONG fails the Set.
func (c *Client) Set(ctx context.Context, key PropKey, val []byte) error {
	var cmdErr error
	req := append(AppendSet(nil, key, val), byte(PacketPing))
	return c.do(ctx, req, func(pkt *Packet) (bool, error) {
		switch pkt.Type {
		case PacketError:
			cmdErr = &CommandError{Code: pkt.Code()}
		case PacketPong:
			return true, cmdErr
		}
		return false, nil
	})
}

// GetValue reads a property as an integer.
func (c *Client) GetValue(ctx context.Context, key PropKey) (uint16, error) {
	val, err := c.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return DecodeValue(val), nil
}

// SetValue writes a property from an integer.
func (c *Client) SetValue(ctx context.Context, key PropKey, v uint16) error {
	return c.Set(ctx, key, EncodeValue(key, v))
}

// Version reads the firmware version as "major.minor".
func (c *Client) Version(ctx context.Context) (string, error) {
	v, err := c.GetValue(ctx, KeyFirmware)
	if err != nil {
		return "", err
	}
	return FormatVersion(v), nil
}

// Start starts the event stream.
func (c *Client) Start() error {
	return c.write([]byte{byte(PacketStart)})
}

// End stops the event stream.
func (c *Client) End() error {
	return c.write([]byte{byte(PacketEnd)})
}

// FormatVersion formats a firmware version, major in the high byte.
func FormatVersion(v uint16) string {
	return fmt.Sprintf("%d.%d", v>>8, v&0xff)
}
