// Package periph drives board lines through periph.io GPIO when the
// firmware runs hosted on a Linux single-board computer.
package periph

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	initOnce sync.Once
	initErr  error
)

// Pin implements hw.Pin over a periph.io GPIO.
type Pin struct {
	Name string

	io gpio.PinIO
}

// Open looks up a GPIO by name (e.g. "GPIO17") and drives it low.
func Open(name string) (*Pin, error) {
	initOnce.Do(func() {
		_, initErr = host.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("periph host init: %v", initErr)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio %q: %v", name, err)
	}
	return &Pin{Name: name, io: p}, nil
}

// Set implements hw.Pin.
func (p *Pin) Set(high bool) {
	level := gpio.Low
	if high {
		level = gpio.High
	}
	if err := p.io.Out(level); err != nil {
		glog.Warningf("gpio %s: %v", p.Name, err)
	}
}
