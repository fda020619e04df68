package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/spectrig/pkg/framework"
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() fx.Message { return &CommandOK{} }

// TypeID implements SerializableMessage.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// Serializable implements SerializableMessage.
func (m *CommandOK) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// CommandErr is the generic message representing command error.
// Code carries the device error code when the device refused.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
	Code    uint32 `protobuf:"varint,2,opt,name=code,proto3" json:"code,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return NewCommandErrFromMsg(err.Error())
}

// NewCommandErrFromMsg creates a CommandErr.
func NewCommandErrFromMsg(message string) *CommandErr {
	return &CommandErr{Message: message}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// Ping checks the instrument answers. Replied with CommandOK.
type Ping struct {
}

// NewMessage implements Message.
func (m *Ping) NewMessage() fx.Message { return &Ping{} }

// TypeID implements SerializableMessage.
func (m *Ping) TypeID() uint32 { return PingTypeID }

// Serializable implements SerializableMessage.
func (m *Ping) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Ping) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Ping) Reset() { *m = Ping{} }

// String implements proto.Message.
func (m *Ping) String() string { return proto.CompactTextString(m) }

// PropGet reads a property by name. Replied with PropValue.
type PropGet struct {
	Key string `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
}

// NewMessage implements Message.
func (m *PropGet) NewMessage() fx.Message { return &PropGet{} }

// TypeID implements SerializableMessage.
func (m *PropGet) TypeID() uint32 { return PropGetTypeID }

// Serializable implements SerializableMessage.
func (m *PropGet) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *PropGet) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PropGet) Reset() { *m = PropGet{} }

// String implements proto.Message.
func (m *PropGet) String() string { return proto.CompactTextString(m) }

// PropSet writes a property by name. Replied with PropValue.
type PropSet struct {
	Key   string `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
	Value uint32 `protobuf:"varint,2,opt,name=value,proto3" json:"value"`
}

// NewMessage implements Message.
func (m *PropSet) NewMessage() fx.Message { return &PropSet{} }

// TypeID implements SerializableMessage.
func (m *PropSet) TypeID() uint32 { return PropSetTypeID }

// Serializable implements SerializableMessage.
func (m *PropSet) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *PropSet) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PropSet) Reset() { *m = PropSet{} }

// String implements proto.Message.
func (m *PropSet) String() string { return proto.CompactTextString(m) }

// PropValue is the value of a property.
type PropValue struct {
	Key   string `protobuf:"bytes,1,opt,name=key,proto3" json:"key,omitempty"`
	Value uint32 `protobuf:"varint,2,opt,name=value,proto3" json:"value"`
}

// NewMessage implements Message.
func (m *PropValue) NewMessage() fx.Message { return &PropValue{} }

// TypeID implements SerializableMessage.
func (m *PropValue) TypeID() uint32 { return PropValueTypeID }

// Serializable implements SerializableMessage.
func (m *PropValue) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *PropValue) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PropValue) Reset() { *m = PropValue{} }

// String implements proto.Message.
func (m *PropValue) String() string { return proto.CompactTextString(m) }

// AcqStart starts acquisition. Replied with CommandOK.
type AcqStart struct {
}

// NewMessage implements Message.
func (m *AcqStart) NewMessage() fx.Message { return &AcqStart{} }

// TypeID implements SerializableMessage.
func (m *AcqStart) TypeID() uint32 { return AcqStartTypeID }

// Serializable implements SerializableMessage.
func (m *AcqStart) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *AcqStart) ProtoMessage() {}

// Reset implements proto.Message.
func (m *AcqStart) Reset() { *m = AcqStart{} }

// String implements proto.Message.
func (m *AcqStart) String() string { return proto.CompactTextString(m) }

// AcqStop stops acquisition. Replied with CommandOK.
type AcqStop struct {
}

// NewMessage implements Message.
func (m *AcqStop) NewMessage() fx.Message { return &AcqStop{} }

// TypeID implements SerializableMessage.
func (m *AcqStop) TypeID() uint32 { return AcqStopTypeID }

// Serializable implements SerializableMessage.
func (m *AcqStop) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *AcqStop) ProtoMessage() {}

// Reset implements proto.Message.
func (m *AcqStop) Reset() { *m = AcqStop{} }

// String implements proto.Message.
func (m *AcqStop) String() string { return proto.CompactTextString(m) }

// SpectrumQuery requests the accumulated spectrum. Replied with Spectrum.
type SpectrumQuery struct {
	// CpmThreshold overrides the lowest channel counted in the rate.
	CpmThreshold uint32 `protobuf:"varint,1,opt,name=cpm_threshold,json=cpmThreshold,proto3" json:"cpm_threshold,omitempty"`
	// NoCounts omits the channel counts.
	NoCounts bool `protobuf:"varint,2,opt,name=no_counts,json=noCounts,proto3" json:"no_counts,omitempty"`
}

// NewMessage implements Message.
func (m *SpectrumQuery) NewMessage() fx.Message { return &SpectrumQuery{} }

// TypeID implements SerializableMessage.
func (m *SpectrumQuery) TypeID() uint32 { return SpectrumQueryTypeID }

// Serializable implements SerializableMessage.
func (m *SpectrumQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SpectrumQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SpectrumQuery) Reset() { *m = SpectrumQuery{} }

// String implements proto.Message.
func (m *SpectrumQuery) String() string { return proto.CompactTextString(m) }

// SpectrumReset clears the accumulated spectrum. Replied with CommandOK.
type SpectrumReset struct {
}

// NewMessage implements Message.
func (m *SpectrumReset) NewMessage() fx.Message { return &SpectrumReset{} }

// TypeID implements SerializableMessage.
func (m *SpectrumReset) TypeID() uint32 { return SpectrumResetTypeID }

// Serializable implements SerializableMessage.
func (m *SpectrumReset) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SpectrumReset) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SpectrumReset) Reset() { *m = SpectrumReset{} }

// String implements proto.Message.
func (m *SpectrumReset) String() string { return proto.CompactTextString(m) }

// Spectrum is the accumulated pulse height histogram.
type Spectrum struct {
	Counts []uint32 `protobuf:"varint,1,rep,packed,name=counts,proto3" json:"counts,omitempty"`
	Total  uint64   `protobuf:"varint,2,opt,name=total,proto3" json:"total"`
	// StartedAt is the start of accumulation in unix nanoseconds.
	StartedAt int64 `protobuf:"varint,3,opt,name=started_at,json=startedAt,proto3" json:"started_at,omitempty"`
	// LiveSeconds is the time spent acquiring.
	LiveSeconds float64 `protobuf:"fixed64,4,opt,name=live_seconds,json=liveSeconds,proto3" json:"live_seconds"`
	// Cpm is counts per minute above CpmThreshold.
	Cpm          float64 `protobuf:"fixed64,5,opt,name=cpm,proto3" json:"cpm"`
	CpmThreshold uint32  `protobuf:"varint,6,opt,name=cpm_threshold,json=cpmThreshold,proto3" json:"cpm_threshold"`
	Running      bool    `protobuf:"varint,7,opt,name=running,proto3" json:"running"`
}

// NewMessage implements Message.
func (m *Spectrum) NewMessage() fx.Message { return &Spectrum{} }

// TypeID implements SerializableMessage.
func (m *Spectrum) TypeID() uint32 { return SpectrumTypeID }

// Serializable implements SerializableMessage.
func (m *Spectrum) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Spectrum) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Spectrum) Reset() { *m = Spectrum{} }

// String implements proto.Message.
func (m *Spectrum) String() string { return proto.CompactTextString(m) }

// PulseEvent carries the peaks detected since the previous event.
type PulseEvent struct {
	Peaks []uint32 `protobuf:"varint,1,rep,packed,name=peaks,proto3" json:"peaks,omitempty"`
	// Time of the event in unix nanoseconds.
	Time int64 `protobuf:"varint,2,opt,name=time,proto3" json:"time,omitempty"`
	// Missed is the number of peaks lost on the host since start.
	Missed uint64 `protobuf:"varint,3,opt,name=missed,proto3" json:"missed,omitempty"`
}

// NewMessage implements Message.
func (m *PulseEvent) NewMessage() fx.Message { return &PulseEvent{} }

// TypeID implements SerializableMessage.
func (m *PulseEvent) TypeID() uint32 { return PulseEventTypeID }

// Serializable implements SerializableMessage.
func (m *PulseEvent) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *PulseEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PulseEvent) Reset() { *m = PulseEvent{} }

// String implements proto.Message.
func (m *PulseEvent) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupSpect   uint32 = 0x00030000
	GroupCustom  uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	CommandOKTypeID     uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID    uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	PingTypeID          uint32 = GroupCommand | 0x0002
	PropGetTypeID       uint32 = GroupSpect | 0x0000
	PropSetTypeID       uint32 = GroupSpect | 0x0001
	PropValueTypeID     uint32 = PropGetTypeID | TypeIDMaskReply
	AcqStartTypeID      uint32 = GroupSpect | 0x0002
	AcqStopTypeID       uint32 = GroupSpect | 0x0003
	SpectrumQueryTypeID uint32 = GroupSpect | 0x0004
	SpectrumTypeID      uint32 = SpectrumQueryTypeID | TypeIDMaskReply
	SpectrumResetTypeID uint32 = GroupSpect | 0x0005
	PulseEventTypeID    uint32 = GroupSpect | TypeIDKindEvent | 0x0000
)

// MessageTypes are predefined mapping of type ID to messages.
var MessageTypes = map[uint32]SerializableMessage{
	CommandOKTypeID:     (*CommandOK)(nil),
	CommandErrTypeID:    (*CommandErr)(nil),
	PingTypeID:          (*Ping)(nil),
	PropGetTypeID:       (*PropGet)(nil),
	PropSetTypeID:       (*PropSet)(nil),
	PropValueTypeID:     (*PropValue)(nil),
	AcqStartTypeID:      (*AcqStart)(nil),
	AcqStopTypeID:       (*AcqStop)(nil),
	SpectrumQueryTypeID: (*SpectrumQuery)(nil),
	SpectrumTypeID:      (*Spectrum)(nil),
	SpectrumResetTypeID: (*SpectrumReset)(nil),
	PulseEventTypeID:    (*PulseEvent)(nil),
}
