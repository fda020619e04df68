package boot

import "fmt"

// CPU is the control transfer boundary of the core.
type CPU interface {
	// SetVectorTable relocates the vector table to addr.
	SetVectorTable(addr uint32)
	// Jump loads the stack pointer and branches to entry. It never returns.
	Jump(sp, entry uint32)
}

// Launcher starts the application.
//
// The image must have been validated, if validation is wired, before Run.
type Launcher struct {
	CPU    CPU
	Mem    Memory
	Layout Layout
}

// Run relocates the vector table and jumps to the application reset
// handler. It never returns.
func (l *Launcher) Run() Outcome {
	vt := l.Layout.VectorAddr()
	l.CPU.SetVectorTable(vt)
	sp, entry := l.Mem.Word(vt), l.Mem.Word(vt+4)
	l.CPU.Jump(sp, entry)
	panic(fmt.Sprintf("boot: jump to 0x%08x returned", entry))
}
