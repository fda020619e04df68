package comm

// FrameCapacity is the size of the receive frame buffer.
const FrameCapacity = 64

// Handler handles the packet at the start of buf. It returns the number
// of bytes consumed, or 0 if the packet is not complete yet.
type Handler func(buf []byte) int

// Framer splits the inbound byte stream into packets.
//
// Byte 0 of the buffer is always the tag of a candidate packet. Bytes
// without a handler are dropped one at a time until a known tag shows up.
type Framer struct {
	handlers [256]Handler
	buf      [FrameCapacity]byte
	n        int
}

// Handle registers h for packets tagged t. Handlers are registered
// before the first Push.
func (f *Framer) Handle(t PacketType, h Handler) {
	f.handlers[t] = h
}

// Buffered returns the number of bytes waiting for more input.
func (f *Framer) Buffered() int {
	return f.n
}

// Reset drops everything buffered.
func (f *Framer) Reset() {
	f.n = 0
}

// Push feeds newly received bytes and dispatches every complete packet.
func (f *Framer) Push(data []byte) {
	for {
		if len(data) > 0 && f.n < FrameCapacity {
			c := copy(f.buf[f.n:], data)
			f.n += c
			data = data[c:]
		}
		if f.n == 0 {
			return
		}

		consumed := 1
		if h := f.handlers[f.buf[0]]; h != nil {
			consumed = h(f.buf[:f.n])
		}
		if consumed > f.n {
			consumed = f.n
		}

		if consumed > 0 {
			f.n = copy(f.buf[:], f.buf[consumed:f.n])
			continue
		}
		if f.n < FrameCapacity {
			// need more
			return
		}
		// a full buffer that can't be parsed is garbage
		f.n = 0
	}
}
