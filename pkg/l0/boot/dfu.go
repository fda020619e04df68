package boot

import "github.com/golang/glog"

// DFUDone is the only outcome of DFU.
const DFUDone Outcome = 0

// Service is the firmware update service. Serve returns once a new image
// has been written and the host detached.
type Service interface {
	Serve() error
}

// ServeFunc is func form of Service.
type ServeFunc func() error

// Serve implements Service.
func (f ServeFunc) Serve() error {
	return f()
}

// DFUInfo describes the device while in update mode.
type DFUInfo struct {
	Manufacturer string
	Product      string
	Serial       string
	// Layout is the DfuSe memory layout string.
	Layout string
}

// DefaultDFUInfo describes the board flash for dfu-util.
var DefaultDFUInfo = DFUInfo{
	Manufacturer: "IEAP CTU",
	Product:      "Spectrometer Acquisition Board (DFU)",
	Serial:       "DFU",
	Layout:       "@Internal Flash   /0x08000000/6*002Ka,26*002Kg",
}

// DFU is the update mode module.
type DFU struct {
	Info    DFUInfo
	Init    func()
	Service Service
}

// Run initializes the update service and serves until an update completes.
func (d *DFU) Run() Outcome {
	if d.Init != nil {
		d.Init()
	}
	glog.Infof("update mode: %s %s", d.Info.Product, d.Info.Layout)
	for {
		err := d.Service.Serve()
		if err == nil {
			return DFUDone
		}
		glog.Errorf("update failed: %v", err)
	}
}
