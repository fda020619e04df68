package comm

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// PacketType is the leading tag byte of a packet.
type PacketType byte

// Host to device.
const (
	PacketNOP   PacketType = 0x01
	PacketPing  PacketType = 0x02
	PacketGet   PacketType = 0x03
	PacketSet   PacketType = 0x04
	PacketStart PacketType = 0x05
	PacketEnd   PacketType = 0x06
)

// Device to host.
const (
	PacketPong    PacketType = 0x82
	PacketGetResp PacketType = 0x83
	PacketEvent   PacketType = 0x87
	PacketWave    PacketType = 0x88
	PacketError   PacketType = 0xff
)

var packetNames = map[PacketType]string{
	PacketNOP:     "NOP",
	PacketPing:    "PING",
	PacketGet:     "GET",
	PacketSet:     "SET",
	PacketStart:   "START",
	PacketEnd:     "END",
	PacketPong:    "PONG",
	PacketGetResp: "GETRESP",
	PacketEvent:   "EVENT",
	PacketWave:    "WAVE",
	PacketError:   "ERROR",
}

func (t PacketType) String() string {
	if name, ok := packetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", byte(t))
}

// ErrorCode is the payload of an ERROR packet.
type ErrorCode byte

// Error codes.
const (
	ErrInternal    ErrorCode = 1
	ErrUnknownKey  ErrorCode = 2
	ErrUnsupported ErrorCode = 3
)

// Error implements error.
func (c ErrorCode) Error() string {
	switch c {
	case ErrInternal:
		return "internal error"
	case ErrUnknownKey:
		return "unknown key"
	case ErrUnsupported:
		return "unsupported operation"
	}
	return fmt.Sprintf("error %d", byte(c))
}

// PropKey identifies a property.
type PropKey byte

// Property keys.
const (
	KeyFirmware       PropKey = 0x01
	KeyThreshold      PropKey = 0x02
	KeyBias           PropKey = 0x03
	KeyAmp            PropKey = 0x04
	KeyRearmThreshold PropKey = 0x05
	KeySerial         PropKey = 0x06
)

var keyNames = map[PropKey]string{
	KeyFirmware:       "firmware",
	KeyThreshold:      "threshold",
	KeyBias:           "bias",
	KeyAmp:            "amp",
	KeyRearmThreshold: "rthresh",
	KeySerial:         "serial",
}

// KeyLengths is the size of the value of each known property on the wire.
var KeyLengths = map[PropKey]int{
	KeyFirmware:       2,
	KeyThreshold:      2,
	KeyBias:           1,
	KeyAmp:            1,
	KeyRearmThreshold: 2,
	KeySerial:         2,
}

// Keys lists the known properties in key order.
func Keys() []PropKey {
	keys := make([]PropKey, 0, len(KeyLengths))
	for k := range KeyLengths {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (k PropKey) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("key-%d", byte(k))
}

// ParsePropKey resolves a property by name or number.
func ParsePropKey(s string) (PropKey, error) {
	for k, name := range keyNames {
		if name == s {
			return k, nil
		}
	}
	var n uint8
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("unknown property %q", s)
	}
	return PropKey(n), nil
}

// Fixed packet sizes.
const (
	PongLen  = 1
	EventLen = 3
	ErrorLen = 2
)

// MaxWaveSamples is the largest WAVE which fits a single transmit buffer.
const MaxWaveSamples = (TxCapacity - 2) / 2

// AppendPong appends a PONG packet.
func AppendPong(dst []byte) []byte {
	return append(dst, byte(PacketPong))
}

// AppendEvent appends an EVENT packet, peak is little-endian.
func AppendEvent(dst []byte, peak uint16) []byte {
	return binary.LittleEndian.AppendUint16(append(dst, byte(PacketEvent)), peak)
}

// AppendError appends an ERROR packet.
func AppendError(dst []byte, code ErrorCode) []byte {
	return append(dst, byte(PacketError), byte(code))
}

// AppendGetResp appends a GETRESP header, the caller appends the value.
func AppendGetResp(dst []byte, key PropKey) []byte {
	return append(dst, byte(PacketGetResp), byte(key))
}

// AppendWave appends a WAVE packet. Samples are big-endian and at most
// 255 of them are encoded.
func AppendWave(dst []byte, samples []uint16) []byte {
	if len(samples) > 0xff {
		samples = samples[:0xff]
	}
	dst = append(dst, byte(PacketWave), byte(len(samples)))
	for _, s := range samples {
		dst = binary.BigEndian.AppendUint16(dst, s)
	}
	return dst
}

// Host requests.

// AppendGet appends a GET request.
func AppendGet(dst []byte, key PropKey) []byte {
	return append(dst, byte(PacketGet), byte(key))
}

// AppendSet appends a SET request with a raw value.
func AppendSet(dst []byte, key PropKey, value []byte) []byte {
	return append(append(dst, byte(PacketSet), byte(key)), value...)
}
