package comm

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/golang/glog"
)

// Packet is a packet received by the host.
type Packet struct {
	Type PacketType
	// Data is the payload following the tag.
	Data []byte
}

// Peak decodes an EVENT.
func (p *Packet) Peak() uint16 {
	return binary.LittleEndian.Uint16(p.Data)
}

// Code decodes an ERROR.
func (p *Packet) Code() ErrorCode {
	return ErrorCode(p.Data[0])
}

// Key returns the key of a GETRESP.
func (p *Packet) Key() PropKey {
	return PropKey(p.Data[0])
}

// Value returns the raw value of a GETRESP.
func (p *Packet) Value() []byte {
	return p.Data[1:]
}

// Samples decodes a WAVE.
func (p *Packet) Samples() []uint16 {
	n := int(p.Data[0])
	samples := make([]uint16, n)
	for i := range samples {
		samples[i] = binary.BigEndian.Uint16(p.Data[1+i*2:])
	}
	return samples
}

// DecodeValue converts a raw property value to an integer.
func DecodeValue(v []byte) uint16 {
	switch len(v) {
	case 0:
		return 0
	case 1:
		return uint16(v[0])
	}
	return binary.LittleEndian.Uint16(v)
}

// EncodeValue converts an integer to the raw value of key.
func EncodeValue(key PropKey, v uint16) []byte {
	if KeyLengths[key] == 1 {
		return []byte{byte(v)}
	}
	return binary.LittleEndian.AppendUint16(nil, v)
}

// Reader parses the device to host stream. Unknown bytes are skipped.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next reads the next packet.
func (r *Reader) Next() (*Packet, error) {
	for {
		tag, err := r.r.ReadByte()
		if err != nil {
			return nil, err
		}
		pkt := &Packet{Type: PacketType(tag)}
		switch pkt.Type {
		case PacketPong:
			return pkt, nil
		case PacketEvent:
			return pkt, r.read(pkt, 2)
		case PacketError:
			return pkt, r.read(pkt, 1)
		case PacketGetResp:
			key, err := r.r.ReadByte()
			if err != nil {
				return nil, err
			}
			size, ok := KeyLengths[PropKey(key)]
			if !ok {
				glog.V(3).Infof("GETRESP with unknown key %d dropped", key)
				r.r.UnreadByte()
				continue
			}
			pkt.Data = append(make([]byte, 0, size+1), key)
			return pkt, r.readMore(pkt, size)
		case PacketWave:
			n, err := r.r.ReadByte()
			if err != nil {
				return nil, err
			}
			pkt.Data = append(make([]byte, 0, 1+int(n)*2), n)
			return pkt, r.readMore(pkt, int(n)*2)
		default:
			glog.V(4).Infof("skip byte 0x%02x", tag)
		}
	}
}

func (r *Reader) read(pkt *Packet, size int) error {
	pkt.Data = make([]byte, size)
	_, err := io.ReadFull(r.r, pkt.Data)
	return err
}

func (r *Reader) readMore(pkt *Packet, size int) error {
	off := len(pkt.Data)
	pkt.Data = pkt.Data[:off+size]
	_, err := io.ReadFull(r.r, pkt.Data[off:])
	return err
}
