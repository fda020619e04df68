// Package hw defines the board-level hardware seams used by the L0 firmware.
package hw

import "sync/atomic"

// Pin is a single digital output line.
type Pin interface {
	Set(high bool)
}

// PinFunc is func form of Pin.
type PinFunc func(bool)

// Set implements Pin.
func (f PinFunc) Set(high bool) {
	f(high)
}

// NopPin is a Pin connected to nothing.
type NopPin struct{}

// Set implements Pin.
func (NopPin) Set(bool) {}

// Toggler is a Pin which can be flipped without knowing its level.
type Toggler struct {
	Pin Pin

	level atomic.Bool
}

// Toggle flips the line.
func (t *Toggler) Toggle() {
	high := !t.level.Load()
	t.level.Store(high)
	t.Pin.Set(high)
}

// Clear drives the line low.
func (t *Toggler) Clear() {
	t.level.Store(false)
	t.Pin.Set(false)
}

// Switch is a boolean capability backed by an output line,
// e.g. the detector bias supply or the front-end amplifier.
type Switch struct {
	Pin Pin

	enabled atomic.Bool
}

// NewSwitch creates a Switch driving pin, initially disabled.
func NewSwitch(pin Pin) *Switch {
	if pin == nil {
		pin = NopPin{}
	}
	s := &Switch{Pin: pin}
	s.Disable()
	return s
}

// Enable turns the line on.
func (s *Switch) Enable() {
	s.enabled.Store(true)
	s.Pin.Set(true)
}

// Disable turns the line off.
func (s *Switch) Disable() {
	s.enabled.Store(false)
	s.Pin.Set(false)
}

// IsEnabled reports the last requested state.
func (s *Switch) IsEnabled() bool {
	return s.enabled.Load()
}
