// Package boot implements the bootloader of the board.
//
// The bootloader is a small graph of modules. Each module runs and
// returns an Outcome which selects the next module. Launcher is the only
// module which leaves the graph: it hands the CPU over to the
// application and never returns.
package boot
