// Package link opens the byte stream between a host and the device.
//
// A link is addressed by URL:
//
//	serial:///dev/ttyACM0?baud=115200  USB CDC tty of a real board
//	/dev/ttyACM0                      same, with default settings
//	ws://localhost:8090/usb           simulated board
package link

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/term"
	"golang.org/x/net/websocket"
)

// Defaults for serial links.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
)

// Open opens a link by URL.
func Open(rawurl string) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(rawurl, "/") {
		rawurl = "serial://" + rawurl
	}
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("invalid link URL: %v", err)
	}
	switch u.Scheme {
	case "serial", "tty":
		return openSerial(u)
	case "ws", "wss":
		return Dial(u.String())
	default:
		return nil, fmt.Errorf("unknown link URL scheme: %q", u.Scheme)
	}
}

func openSerial(u *url.URL) (io.ReadWriteCloser, error) {
	dev := u.Path
	if dev == "" {
		dev = u.Opaque
	}
	if dev == "" {
		return nil, fmt.Errorf("serial device required")
	}
	baud := DefaultBaud
	if val := u.Query().Get("baud"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid baud %q", val)
		}
		baud = n
	}
	glog.V(2).Infof("open %s at %d baud", dev, baud)
	t, err := term.Open(dev, term.RawMode, term.Speed(baud), term.ReadTimeout(DefaultReadTimeout))
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", dev, err)
	}
	return &serial{Term: t}, nil
}

// serial hides read timeouts from readers expecting a blocking stream.
type serial struct {
	*term.Term
}

func (s *serial) Read(p []byte) (int, error) {
	for {
		n, err := s.Term.Read(p)
		if n > 0 || err != io.EOF {
			return n, err
		}
	}
}

// Conn is a link over websocket. Each write is sent as one binary
// message, like a USB bulk packet, and reads consume messages in order.
type Conn struct {
	ws      *websocket.Conn
	pending []byte
}

// Dial connects to a websocket link.
func Dial(rawurl string) (*Conn, error) {
	origin := "http://localhost/"
	ws, err := websocket.Dial(rawurl, "", origin)
	if err != nil {
		return nil, err
	}
	return NewConn(ws), nil
}

// NewConn wraps an established websocket, either side.
func NewConn(ws *websocket.Conn) *Conn {
	ws.PayloadType = websocket.BinaryFrame
	return &Conn{ws: ws}
}

// ReadPacket receives a whole message.
func (c *Conn) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive(c.ws, &pkt)
	return
}

// WritePacket sends a whole message.
func (c *Conn) WritePacket(pkt []byte) error {
	return websocket.Message.Send(c.ws, pkt)
}

// Read implements io.Reader.
func (c *Conn) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		pkt, err := c.ReadPacket()
		if err != nil {
			return 0, err
		}
		c.pending = pkt
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (c *Conn) Write(p []byte) (int, error) {
	if err := c.WritePacket(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (c *Conn) Close() error {
	return c.ws.Close()
}
