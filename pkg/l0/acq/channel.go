package acq

import "sync/atomic"

// BufferSize is the number of samples in the circular transfer buffer.
// Each completion hands half of it to the detector.
const BufferSize = 1000

// Defaults after reset.
const (
	DefaultThreshold      uint16 = 100
	DefaultRearmThreshold uint16 = 2
)

// Level is a 16-bit setting shared between the protocol context (writer)
// and the acquisition context (reader). Every access is a single atomic
// load or store, so the reader never sees a torn value.
type Level struct {
	v atomic.Uint32
}

// Load reads the value.
func (l *Level) Load() uint16 {
	return uint16(l.v.Load())
}

// Store writes the value.
func (l *Level) Store(val uint16) {
	l.v.Store(uint32(val))
}

// Half identifies the half of the sample buffer which just completed.
type Half int

// Buffer halves.
const (
	FirstHalf Half = iota
	SecondHalf
)

// Channel is the state of one acquisition channel.
type Channel struct {
	Threshold      Level
	RearmThreshold Level

	det Detector
	buf [BufferSize]uint16
}

// NewChannel creates a Channel with reset defaults.
func NewChannel() *Channel {
	c := &Channel{}
	c.Threshold.Store(DefaultThreshold)
	c.RearmThreshold.Store(DefaultRearmThreshold)
	return c
}

// Buffer is the transfer destination.
func (c *Channel) Buffer() []uint16 {
	return c.buf[:]
}

// half returns the samples of h.
func (c *Channel) half(h Half) []uint16 {
	if h == FirstHalf {
		return c.buf[:BufferSize/2]
	}
	return c.buf[BufferSize/2:]
}

// process runs the detector over the completed half and reports each
// accepted peak. Settings are latched once per half.
func (c *Channel) process(h Half, sink EventSink) {
	c.det.Threshold = c.Threshold.Load()
	c.det.RearmThreshold = c.RearmThreshold.Load()
	for _, s := range c.half(h) {
		if peak, ok := c.det.Push(s); ok {
			sink.SendEvent(peak)
		}
	}
}
