package boot

// Validator outcomes.
const (
	ValidatePass Outcome = 0
	ValidateFail Outcome = 1
)

// Header is the checksum header embedded in the application image.
type Header struct {
	CRC    uint32
	Length uint32
}

// ReadHeader reads the header of the application described by l.
func ReadHeader(mem Memory, l Layout) Header {
	return Header{CRC: mem.Word(l.CRCAddr()), Length: mem.Word(l.LengthAddr())}
}

// Validator checks the application image against its header.
type Validator struct {
	CRC    CRCUnit
	Mem    Memory
	Layout Layout
}

// Checksum computes the checksum of the words in [start, end), stopping
// after length bytes. The header words are fed as zero.
func Checksum(crc CRCUnit, mem Memory, l Layout, start, end, length uint32) uint32 {
	crcAddr, lenAddr := l.CRCAddr(), l.LengthAddr()
	crc.Reset()
	var sum uint32
	for at, i := start, uint32(0); i < length && at != end; at, i = at+4, i+4 {
		word := uint32(0)
		if at != crcAddr && at != lenAddr {
			word = mem.Word(at)
		}
		sum = crc.Feed(word)
	}
	return ^sum
}

// Validate returns ValidatePass iff the image matches its header.
func (v *Validator) Validate() Outcome {
	hdr := ReadHeader(v.Mem, v.Layout)
	sum := Checksum(v.CRC, v.Mem, v.Layout, v.Layout.AppBase, v.Layout.End(), hdr.Length)
	if sum != hdr.CRC {
		return ValidateFail
	}
	return ValidatePass
}
