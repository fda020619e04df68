package boot

import "errors"

// Modules of the standard chain.
const (
	ModuleAppCtl ModuleID = iota
	ModuleDFU
	ModuleLaunch
	ModuleValidate
)

// ChainConfig describes the board for NewChain.
type ChainConfig struct {
	Marker Word
	Mem    Memory
	Layout Layout
	CPU    CPU
	DFU    *DFU
	CRC    CRCUnit

	// VerifyImage routes every launch through the validator, a failed
	// image goes back to update mode.
	VerifyImage bool
}

// NewChain builds the standard bootloader:
//
//	appctl -continue-> [validate -pass->] launch
//	appctl -flash-> dfu -done-> [validate -pass->] launch
//	validate -fail-> dfu
func NewChain(cfg ChainConfig) (*Bootloader, error) {
	if cfg.Marker == nil || cfg.Mem == nil || cfg.CPU == nil || cfg.DFU == nil {
		return nil, errors.New("incomplete boot chain config")
	}
	if cfg.CRC == nil {
		cfg.CRC = &SoftCRC{}
	}

	appctl := &AppCtl{Marker: cfg.Marker}
	launcher := &Launcher{CPU: cfg.CPU, Mem: cfg.Mem, Layout: cfg.Layout}
	validator := &Validator{CRC: cfg.CRC, Mem: cfg.Mem, Layout: cfg.Layout}

	boot := ModuleLaunch
	if cfg.VerifyImage {
		boot = ModuleValidate
	}
	return NewBootloader(ModuleAppCtl,
		NewModule("appctl", appctl.Check, boot, ModuleDFU),
		NewModule("dfu", cfg.DFU.Run, boot),
		NewModule("launch", launcher.Run),
		NewModule("validate", validator.Validate, ModuleLaunch, ModuleDFU),
	)
}
