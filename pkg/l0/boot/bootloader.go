package boot

import (
	"fmt"

	"github.com/golang/glog"
)

// Outcome is the result of running a Module, it selects the next Module.
type Outcome int

// ModuleID is the index of a Module in a Bootloader.
type ModuleID int

// Terminal marks an outcome without a next module.
const Terminal ModuleID = -1

// Module is a step of the boot process.
type Module struct {
	Name string
	Run  func() Outcome
	// Next maps an Outcome to the next module.
	Next []ModuleID
}

// NewModule creates a module, next is indexed by Outcome.
func NewModule(name string, run func() Outcome, next ...ModuleID) Module {
	return Module{Name: name, Run: run, Next: next}
}

// Bootloader is an immutable graph of modules.
type Bootloader struct {
	modules []Module
	entry   ModuleID
}

// NewBootloader creates a Bootloader starting from entry.
// Every edge must refer to a module in the graph.
func NewBootloader(entry ModuleID, modules ...Module) (*Bootloader, error) {
	valid := func(id ModuleID) bool {
		return id >= 0 && int(id) < len(modules)
	}
	if !valid(entry) {
		return nil, fmt.Errorf("invalid entry module %d", entry)
	}
	for _, m := range modules {
		if m.Run == nil {
			return nil, fmt.Errorf("module %s has no run", m.Name)
		}
		for outcome, next := range m.Next {
			if next != Terminal && !valid(next) {
				return nil, fmt.Errorf("module %s outcome %d: invalid module %d", m.Name, outcome, next)
			}
		}
	}
	return &Bootloader{modules: append([]Module(nil), modules...), entry: entry}, nil
}

// Run walks the graph from the entry module. Terminal modules transfer
// control and never return, so Run only returns if a module yields an
// outcome without an edge.
func (b *Bootloader) Run() error {
	at := b.entry
	for {
		m := &b.modules[at]
		glog.V(2).Infof("boot: %s", m.Name)
		outcome := m.Run()
		if outcome < 0 || int(outcome) >= len(m.Next) || m.Next[outcome] == Terminal {
			return fmt.Errorf("boot: module %s returned outcome %d without next module", m.Name, outcome)
		}
		at = m.Next[outcome]
	}
}
