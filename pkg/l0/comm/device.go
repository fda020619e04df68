package comm

import (
	"github.com/robotalks/spectrig/pkg/l0/acq"
	"github.com/robotalks/spectrig/pkg/l0/hw"
)

// FirmwareVersion is reported by KeyFirmware, major in the high byte.
const FirmwareVersion uint16 = 2

// Device is the firmware side of the protocol. Push is called from the
// USB receive context, Sender is shared with the acquisition context.
type Device struct {
	Engine   *acq.Engine
	Bias     *hw.Switch
	Sender   *Sender
	Registry *Registry

	framer Framer
	// reply scratch, only touched from Push
	reply [8]byte
}

// NewDevice binds the protocol to the acquisition engine and bias supply.
func NewDevice(engine *acq.Engine, bias *hw.Switch, sender *Sender, serial uint16) *Device {
	d := &Device{
		Engine: engine,
		Bias:   bias,
		Sender: sender,
		Registry: MustNewRegistry(
			Const16(KeyFirmware, FirmwareVersion),
			Scalar16(KeyThreshold, &engine.Channel.Threshold),
			Toggle(KeyBias, bias),
			Toggle(KeyAmp, engine.Amp),
			Scalar16(KeyRearmThreshold, &engine.Channel.RearmThreshold),
			Const16(KeySerial, serial),
		),
	}
	d.framer.Handle(PacketNOP, d.handleNOP)
	d.framer.Handle(PacketPing, d.handlePing)
	d.framer.Handle(PacketGet, d.handleGet)
	d.framer.Handle(PacketSet, d.handleSet)
	d.framer.Handle(PacketStart, d.handleStart)
	d.framer.Handle(PacketEnd, d.handleEnd)
	return d
}

// Push feeds bytes received from the host.
func (d *Device) Push(data []byte) {
	d.framer.Push(data)
}

// Reset drops a partially received packet, e.g. on host reconnect.
func (d *Device) Reset() {
	d.framer.Reset()
}

func (d *Device) handleNOP([]byte) int {
	return 1
}

func (d *Device) handlePing([]byte) int {
	d.Sender.SendPong()
	return 1
}

func (d *Device) handleGet(buf []byte) int {
	if len(buf) < 2 {
		return 0
	}
	key := PropKey(buf[1])
	p := AppendGetResp(d.reply[:0], key)
	p, err := d.Registry.Get(p, key)
	if err != nil {
		d.Sender.SendError(codeOf(err))
	} else {
		d.Sender.sendRaw(p)
	}
	return 2
}

func (d *Device) handleSet(buf []byte) int {
	if len(buf) < 2 {
		return 0
	}
	n, err := d.Registry.Set(PropKey(buf[1]), buf[2:])
	switch err {
	case nil:
	case ErrIncomplete:
		return 0
	default:
		d.Sender.SendError(codeOf(err))
	}
	return 2 + n
}

func (d *Device) handleStart([]byte) int {
	d.Engine.Start()
	return 1
}

func (d *Device) handleEnd([]byte) int {
	d.Engine.Pause()
	return 1
}

func codeOf(err error) ErrorCode {
	if code, ok := err.(ErrorCode); ok {
		return code
	}
	return ErrInternal
}
