// Package cpu hosts the boot chain: the core jumps into a Go function and
// reset-persistent registers live in files.
package cpu

import (
	"encoding/binary"
	"io/ioutil"
	"os"
	"sync"

	"github.com/golang/glog"
)

// Entry is the hosted application. It returns when the simulated board
// powers off.
type Entry func(sp, entry uint32) error

// CPU implements boot.CPU.
type CPU struct {
	Entry Entry
	// Halt ends the simulation after the application returns, it must not
	// return. Defaults to exiting the process.
	Halt func(error)

	lock sync.Mutex
	vtor uint32
}

// New creates a CPU running entry.
func New(entry Entry) *CPU {
	return &CPU{Entry: entry}
}

// SetVectorTable implements boot.CPU.
func (c *CPU) SetVectorTable(addr uint32) {
	c.lock.Lock()
	c.vtor = addr
	c.lock.Unlock()
}

// VectorTable returns the relocated vector table address.
func (c *CPU) VectorTable() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.vtor
}

// Jump implements boot.CPU.
func (c *CPU) Jump(sp, entry uint32) {
	glog.Infof("jump sp=0x%08x entry=0x%08x vtor=0x%08x", sp, entry, c.VectorTable())
	err := c.Entry(sp, entry)
	halt := c.Halt
	if halt == nil {
		halt = exit
	}
	halt(err)
}

func exit(err error) {
	if err != nil {
		glog.Exitf("application stopped: %v", err)
	}
	glog.Flush()
	os.Exit(0)
}

// FileWord implements boot.Word backed by a file, surviving a restart
// of the simulator like a backup register survives a reset. A missing or
// unreadable file reads as zero.
type FileWord struct {
	Path string
}

// Load implements boot.Word.
func (w *FileWord) Load() uint32 {
	data, err := ioutil.ReadFile(w.Path)
	if err != nil || len(data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}

// Store implements boot.Word.
func (w *FileWord) Store(v uint32) {
	var data [4]byte
	binary.LittleEndian.PutUint32(data[:], v)
	if err := ioutil.WriteFile(w.Path, data[:], 0644); err != nil {
		glog.Warningf("store %s: %v", w.Path, err)
	}
}
