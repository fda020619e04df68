package boot

import "math/bits"

// CRCPoly is the CRC-32 polynomial in MSB-first form.
const CRCPoly uint32 = 0x04C11DB7

// CRCUnit is the CRC calculation unit of the MCU, configured for a 32-bit
// polynomial, all-ones init, word bit-reversed input and reversed output.
type CRCUnit interface {
	// Reset loads the initial value.
	Reset()
	// Feed feeds one word and returns the (reversed) register.
	Feed(word uint32) uint32
}

// SoftCRC emulates CRCUnit bit for bit.
type SoftCRC struct {
	reg uint32
}

// Reset implements CRCUnit.
func (c *SoftCRC) Reset() {
	c.reg = 0xffffffff
}

// Feed implements CRCUnit.
func (c *SoftCRC) Feed(word uint32) uint32 {
	c.reg ^= bits.Reverse32(word)
	for i := 0; i < 32; i++ {
		if c.reg&0x80000000 != 0 {
			c.reg = c.reg<<1 ^ CRCPoly
		} else {
			c.reg <<= 1
		}
	}
	return bits.Reverse32(c.reg)
}
