package acq

import (
	"sync/atomic"

	"github.com/robotalks/spectrig/pkg/l0/hw"
)

// HeartbeatPeriod is the number of completions between LED toggles.
const HeartbeatPeriod = 300

// EventSink receives accepted pulse peaks.
type EventSink interface {
	SendEvent(peak uint16)
}

// SendEventFunc is func form of EventSink.
type SendEventFunc func(uint16)

// SendEvent implements EventSink.
func (f SendEventFunc) SendEvent(peak uint16) {
	f(peak)
}

// Transfer is the continuous circular peripheral-to-memory transfer
// which fills the sample buffer.
type Transfer interface {
	// Setup binds the destination buffer, the transfer stays disabled.
	Setup(dst []uint16)
	// Enable starts the transfer, isr is called after each half completes.
	Enable(isr func(Half))
	// Disable stops the transfer and its notifications. It must not return
	// while isr is executing.
	Disable()
}

// Engine drives the acquisition of one channel.
type Engine struct {
	Channel  *Channel
	Transfer Transfer
	Events   EventSink
	Amp      *hw.Switch
	LED      *hw.Toggler

	running     atomic.Bool
	completions int
}

// NewEngine creates an Engine. amp and led may be nil.
func NewEngine(ch *Channel, xfer Transfer, events EventSink, amp, led hw.Pin) *Engine {
	if led == nil {
		led = hw.NopPin{}
	}
	return &Engine{
		Channel:  ch,
		Transfer: xfer,
		Events:   events,
		Amp:      hw.NewSwitch(amp),
		LED:      &hw.Toggler{Pin: led},
	}
}

// Init prepares the transfer, with the amplifier off.
func (e *Engine) Init() {
	e.Amp.Disable()
	e.LED.Clear()
	e.Transfer.Setup(e.Channel.Buffer())
}

// Start begins continuous sampling.
func (e *Engine) Start() {
	if e.running.Swap(true) {
		return
	}
	// the completion handler is not armed yet, so the detector is ours
	e.Channel.det.Reset()
	e.completions = 0
	e.Transfer.Enable(e.HandleCompletion)
}

// Pause stops sampling. No completion is handled after it returns.
func (e *Engine) Pause() {
	if !e.running.Swap(false) {
		return
	}
	e.Transfer.Disable()
	e.LED.Clear()
}

// Running reports whether sampling is enabled.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// HandleCompletion is the transfer completion handler: it runs the
// detector over the half which has just been filled.
func (e *Engine) HandleCompletion(h Half) {
	if !e.running.Load() {
		return
	}
	e.Channel.process(h, e.Events)

	e.completions++
	if e.completions > HeartbeatPeriod {
		e.LED.Toggle()
		e.completions = 0
	}
}

// AmpEnable switches the front-end amplifier on.
func (e *Engine) AmpEnable() {
	e.Amp.Enable()
}

// AmpDisable switches the front-end amplifier off.
func (e *Engine) AmpDisable() {
	e.Amp.Disable()
}

// AmpIsEnabled reports the amplifier state.
func (e *Engine) AmpIsEnabled() bool {
	return e.Amp.IsEnabled()
}
