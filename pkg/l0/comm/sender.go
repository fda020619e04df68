package comm

import (
	"math"
	"sync/atomic"
)

// Sender encodes device packets into an Outbox. Packets are never retried,
// each one the Outbox rejects is counted as missed.
type Sender struct {
	Out *Outbox

	missed atomic.Uint32
}

// NewSender creates a Sender.
func NewSender(out *Outbox) *Sender {
	return &Sender{Out: out}
}

// Missed returns the number of dropped packets, saturated at MaxUint32.
func (s *Sender) Missed() uint32 {
	return s.missed.Load()
}

func (s *Sender) send(p []byte, flush bool) {
	if s.Out.Send(p, flush) {
		return
	}
	for {
		n := s.missed.Load()
		if n == math.MaxUint32 || s.missed.CompareAndSwap(n, n+1) {
			return
		}
	}
}

// SendEvent implements acq.EventSink. Events are flushed immediately.
func (s *Sender) SendEvent(peak uint16) {
	var b [EventLen]byte
	s.send(AppendEvent(b[:0], peak), true)
}

// SendWave sends raw samples, truncated to MaxWaveSamples.
func (s *Sender) SendWave(samples []uint16) {
	if len(samples) > MaxWaveSamples {
		samples = samples[:MaxWaveSamples]
	}
	var b [TxCapacity]byte
	s.send(AppendWave(b[:0], samples), false)
}

// SendPong answers PING.
func (s *Sender) SendPong() {
	var b [PongLen]byte
	s.send(AppendPong(b[:0]), true)
}

// SendError reports a failed request.
func (s *Sender) SendError(code ErrorCode) {
	var b [ErrorLen]byte
	s.send(AppendError(b[:0], code), true)
}

// sendRaw sends an already encoded reply.
func (s *Sender) sendRaw(p []byte) {
	s.send(p, true)
}
