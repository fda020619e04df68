package boot

import (
	"encoding/binary"
	"sync/atomic"
)

// Memory is word addressable memory of the target.
type Memory interface {
	// Word reads the little-endian word at addr.
	Word(addr uint32) uint32
}

// Erased is the content of erased flash.
const Erased uint32 = 0xffffffff

// Image is a flash image placed at Base.
type Image struct {
	Base uint32
	Data []byte
}

// Word implements Memory. Words outside the image read as erased flash.
func (m *Image) Word(addr uint32) uint32 {
	if addr < m.Base {
		return Erased
	}
	off := addr - m.Base
	if uint64(off)+4 > uint64(len(m.Data)) {
		return Erased
	}
	return binary.LittleEndian.Uint32(m.Data[off:])
}

// End is the first address after the image.
func (m *Image) End() uint32 {
	return m.Base + uint32(len(m.Data))
}

// Word is a reset-persistent memory cell.
type Word interface {
	Load() uint32
	Store(uint32)
}

// RAMWord is a Word in memory which is not cleared on reset.
type RAMWord struct {
	v atomic.Uint32
}

// Load implements Word.
func (w *RAMWord) Load() uint32 {
	return w.v.Load()
}

// Store implements Word.
func (w *RAMWord) Store(v uint32) {
	w.v.Store(v)
}

// Layout describes where the application lives in flash.
type Layout struct {
	// AppBase is the first address of the application image.
	AppBase uint32
	// AppSize is the flash space reserved for the application.
	AppSize uint32
	// HeaderOffset is the offset of the {crc, length} header.
	HeaderOffset uint32
	// VectorOffset is the offset of the vector table.
	VectorOffset uint32
}

// Flash geometry of the board.
const (
	FlashBase      uint32 = 0x08000000
	FlashPageSize  uint32 = 2048
	BootloaderSize        = 6 * FlashPageSize
	AppPages              = 26
)

// DefaultLayout places the application after the bootloader pages, with
// the header at the start and the vector table 0x200 into the image.
var DefaultLayout = Layout{
	AppBase:      FlashBase + BootloaderSize,
	AppSize:      AppPages * FlashPageSize,
	HeaderOffset: 0,
	VectorOffset: 0x200,
}

// CRCAddr is the address of the stored checksum.
func (l Layout) CRCAddr() uint32 {
	return l.AppBase + l.HeaderOffset
}

// LengthAddr is the address of the stored length.
func (l Layout) LengthAddr() uint32 {
	return l.AppBase + l.HeaderOffset + 4
}

// VectorAddr is the address of the vector table.
func (l Layout) VectorAddr() uint32 {
	return l.AppBase + l.VectorOffset
}

// End is the first address after the application space.
func (l Layout) End() uint32 {
	return l.AppBase + l.AppSize
}
