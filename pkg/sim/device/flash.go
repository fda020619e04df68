package device

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/spectrig/pkg/image"
	"github.com/robotalks/spectrig/pkg/l0/boot"
)

// Flash is the application area of the board flash.
type Flash struct {
	Layout boot.Layout

	lock sync.RWMutex
	mem  boot.Image
}

// NewFlash creates an erased Flash.
func NewFlash(l boot.Layout) *Flash {
	f := &Flash{Layout: l}
	f.mem = boot.Image{Base: l.AppBase, Data: make([]byte, l.AppSize)}
	f.erase()
	return f
}

func (f *Flash) erase() {
	for i := range f.mem.Data {
		f.mem.Data[i] = 0xff
	}
}

// Word implements boot.Memory.
func (f *Flash) Word(addr uint32) uint32 {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.mem.Word(addr)
}

// Program erases the application area and writes img.
func (f *Flash) Program(img *boot.Image) error {
	if img.Base != f.Layout.AppBase || uint64(len(img.Data)) > uint64(f.Layout.AppSize) {
		return fmt.Errorf("image 0x%08x+%d outside application flash", img.Base, len(img.Data))
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.erase()
	copy(f.mem.Data, img.Data)
	return nil
}

// Blank stack and reset handler of BlankImage.
const (
	BlankSP    uint32 = 0x2000a000
	blankCode         = 0x100
	blankBytes        = 0x200
)

// BlankImage builds the smallest valid application: a vector table and
// an empty reset handler, with the checksum header patched.
func BlankImage(l boot.Layout) (*boot.Image, error) {
	size := l.VectorOffset + blankBytes
	if size < l.HeaderOffset+8 {
		size = l.HeaderOffset + 8
	}
	img := &boot.Image{Base: l.AppBase, Data: make([]byte, size)}
	vt := img.Data[l.VectorOffset:]
	binary.LittleEndian.PutUint32(vt[0:], BlankSP)
	// thumb bit set
	binary.LittleEndian.PutUint32(vt[4:], l.VectorAddr()+blankCode|1)
	if _, err := image.Patch(img, l); err != nil {
		return nil, err
	}
	return img, nil
}

// LoadImage loads the image file, or BlankImage for an empty path.
func LoadImage(path string, l boot.Layout) (*boot.Image, error) {
	if path == "" {
		return BlankImage(l)
	}
	return image.Load(path, l.AppBase)
}

// DFUService simulates a host running an update: the image file is
// programmed as if downloaded.
type DFUService struct {
	Flash *Flash
	Path  string
	// Delay before a failed attempt returns.
	Delay time.Duration
}

// Serve implements boot.Service.
func (s *DFUService) Serve() error {
	img, err := LoadImage(s.Path, s.Flash.Layout)
	if err == nil {
		err = s.Flash.Program(img)
	}
	if err != nil {
		time.Sleep(s.Delay)
		return err
	}
	glog.Infof("programmed %d bytes at 0x%08x", len(img.Data), img.Base)
	return nil
}

// NewChain builds the bootloader of the board.
func NewChain(flash *Flash, marker boot.Word, cpu boot.CPU, svc boot.Service, verify bool) (*boot.Bootloader, error) {
	return boot.NewChain(boot.ChainConfig{
		Marker:      marker,
		Mem:         flash,
		Layout:      flash.Layout,
		CPU:         cpu,
		DFU:         &boot.DFU{Info: boot.DefaultDFUInfo, Service: svc},
		VerifyImage: verify,
	})
}
