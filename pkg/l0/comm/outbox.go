package comm

import (
	"context"
	"io"
	"sync"
	"time"
)

// TxCapacity is the size of the transmit buffer, one USB bulk packet.
const TxCapacity = 64

// DefaultFlushInterval is the period of the forced flush.
const DefaultFlushInterval = 15 * time.Millisecond

// Outbox batches outbound packets into TxCapacity sized writes.
type Outbox struct {
	Writer   io.Writer
	Interval time.Duration

	lock sync.Mutex
	buf  [TxCapacity]byte
	n    int
}

// NewOutbox creates an Outbox.
func NewOutbox(w io.Writer) *Outbox {
	return &Outbox{Writer: w, Interval: DefaultFlushInterval}
}

// Send queues a whole packet, flushing first if it doesn't fit.
// It reports false if the packet was dropped, including by a failed
// flush requested with flush.
func (o *Outbox) Send(p []byte, flush bool) bool {
	if len(p) > TxCapacity {
		return false
	}
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.n+len(p) > TxCapacity {
		if err := o.flushLocked(); err != nil {
			return false
		}
	}
	o.n += copy(o.buf[o.n:], p)
	if flush {
		return o.flushLocked() == nil
	}
	return true
}

// Flush writes out buffered bytes. They are discarded even if the write fails.
func (o *Outbox) Flush() error {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.flushLocked()
}

// Buffered returns the number of bytes waiting.
func (o *Outbox) Buffered() int {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.n
}

func (o *Outbox) flushLocked() error {
	if o.n == 0 {
		return nil
	}
	n := o.n
	o.n = 0
	_, err := o.Writer.Write(o.buf[:n])
	return err
}

// Run flushes periodically until ctx is done.
func (o *Outbox) Run(ctx context.Context) error {
	interval := o.Interval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.Flush()
		}
	}
}
