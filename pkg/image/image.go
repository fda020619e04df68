// Package image prepares application images for the bootloader: it loads
// raw binaries or Intel HEX files and patches the checksum header.
package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
	"github.com/pkg/errors"

	"github.com/robotalks/spectrig/pkg/l0/boot"
)

// hexLineLength is the number of data bytes per HEX record.
const hexLineLength = 16

func isHex(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".hex" || ext == ".ihex"
}

// Load reads an image. A raw binary is placed at base, a HEX file carries
// its own address and must contain a single segment.
func Load(path string, base uint32) (*boot.Image, error) {
	if !isHex(path) {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read image")
		}
		return &boot.Image{Base: base, Data: data}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()
	mem := gohex.NewMemory()
	if err = mem.ParseIntelHex(f); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	segments := mem.GetDataSegments()
	if len(segments) != 1 {
		return nil, fmt.Errorf("%s: unexpected number of segments (%d)", path, len(segments))
	}
	return &boot.Image{Base: segments[0].Address, Data: segments[0].Data}, nil
}

// Save writes an image, as HEX if path says so.
func Save(path string, img *boot.Image) error {
	if !isHex(path) {
		return errors.Wrap(ioutil.WriteFile(path, img.Data, 0644), "write image")
	}
	mem := gohex.NewMemory()
	if err := mem.AddBinary(img.Base, img.Data); err != nil {
		return errors.Wrap(err, "encode hex")
	}
	var buf bytes.Buffer
	if err := mem.DumpIntelHex(&buf, hexLineLength); err != nil {
		return errors.Wrap(err, "encode hex")
	}
	return errors.Wrap(ioutil.WriteFile(path, buf.Bytes(), 0644), "write image")
}

func check(img *boot.Image, l boot.Layout) error {
	switch {
	case img.Base != l.AppBase:
		return fmt.Errorf("image at 0x%08x, application expected at 0x%08x", img.Base, l.AppBase)
	case len(img.Data)%4 != 0:
		return fmt.Errorf("image length %d not aligned to 4 bytes", len(img.Data))
	case uint64(len(img.Data)) > uint64(l.AppSize):
		return fmt.Errorf("image length %d exceeds %d", len(img.Data), l.AppSize)
	case l.HeaderOffset+8 > uint32(len(img.Data)):
		return fmt.Errorf("image too short for header at 0x%x", l.HeaderOffset)
	}
	return nil
}

// Patch writes the checksum header covering the whole image.
func Patch(img *boot.Image, l boot.Layout) (boot.Header, error) {
	if err := check(img, l); err != nil {
		return boot.Header{}, err
	}
	hdr := img.Data[l.HeaderOffset:]
	binary.LittleEndian.PutUint32(hdr[0:], 0)
	binary.LittleEndian.PutUint32(hdr[4:], 0)
	h := boot.Header{Length: uint32(len(img.Data))}
	h.CRC = boot.Checksum(&boot.SoftCRC{}, img, l, img.Base, img.End(), h.Length)
	binary.LittleEndian.PutUint32(hdr[0:], h.CRC)
	binary.LittleEndian.PutUint32(hdr[4:], h.Length)
	return h, nil
}

// Verify checks the header the way the bootloader does.
func Verify(img *boot.Image, l boot.Layout) (boot.Header, error) {
	if err := check(img, l); err != nil {
		return boot.Header{}, err
	}
	v := &boot.Validator{CRC: &boot.SoftCRC{}, Mem: img, Layout: l}
	h := boot.ReadHeader(img, l)
	if v.Validate() != boot.ValidatePass {
		return h, fmt.Errorf("checksum mismatch: header crc 0x%08x length %d", h.CRC, h.Length)
	}
	return h, nil
}
