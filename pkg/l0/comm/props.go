package comm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrIncomplete indicates the payload of a SET is not fully buffered.
var ErrIncomplete = errors.New("incomplete payload")

// Value16 is a live 16-bit setting. Store must be a single atomic write.
type Value16 interface {
	Load() uint16
	Store(uint16)
}

// Capability is a boolean feature with enable/disable/query operations.
type Capability interface {
	Enable()
	Disable()
	IsEnabled() bool
}

// Property describes a single key of the registry.
type Property struct {
	Key PropKey
	// Len is the size of the value on the wire.
	Len int
	// Get appends the encoded value, nil if the property is write-only.
	Get func(dst []byte) []byte
	// Set decodes a value of Len bytes, nil if read-only.
	Set func(val []byte)
}

// Const16 is a read-only 16-bit constant.
func Const16(key PropKey, v uint16) Property {
	return Property{
		Key: key,
		Len: 2,
		Get: func(dst []byte) []byte {
			return binary.LittleEndian.AppendUint16(dst, v)
		},
	}
}

// Scalar16 is a read/write 16-bit value.
func Scalar16(key PropKey, v Value16) Property {
	return Property{
		Key: key,
		Len: 2,
		Get: func(dst []byte) []byte {
			return binary.LittleEndian.AppendUint16(dst, v.Load())
		},
		Set: func(val []byte) {
			v.Store(binary.LittleEndian.Uint16(val))
		},
	}
}

// Toggle exposes a Capability as a one byte flag, bit 0 enables.
func Toggle(key PropKey, c Capability) Property {
	return Property{
		Key: key,
		Len: 1,
		Get: func(dst []byte) []byte {
			if c.IsEnabled() {
				return append(dst, 1)
			}
			return append(dst, 0)
		},
		Set: func(val []byte) {
			if val[0]&0x01 != 0 {
				c.Enable()
			} else {
				c.Disable()
			}
		},
	}
}

// Registry is the table of properties, fixed at construction.
type Registry struct {
	props []Property
}

// NewRegistry builds a registry, keys must be unique.
func NewRegistry(props ...Property) (*Registry, error) {
	seen := make(map[PropKey]bool, len(props))
	for _, p := range props {
		if seen[p.Key] {
			return nil, fmt.Errorf("duplicated property %s", p.Key)
		}
		if p.Set != nil && p.Len <= 0 {
			return nil, fmt.Errorf("property %s: invalid length %d", p.Key, p.Len)
		}
		seen[p.Key] = true
	}
	return &Registry{props: append([]Property(nil), props...)}, nil
}

// MustNewRegistry is NewRegistry which panics on error.
func MustNewRegistry(props ...Property) *Registry {
	r, err := NewRegistry(props...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup finds the property of key.
func (r *Registry) Lookup(key PropKey) (*Property, bool) {
	for i := range r.props {
		if r.props[i].Key == key {
			return &r.props[i], true
		}
	}
	return nil, false
}

// Keys lists the registered keys in table order.
func (r *Registry) Keys() []PropKey {
	keys := make([]PropKey, len(r.props))
	for i, p := range r.props {
		keys[i] = p.Key
	}
	return keys
}

// Get appends the encoded value of key to dst.
// It fails with ErrUnknownKey or ErrUnsupported.
func (r *Registry) Get(dst []byte, key PropKey) ([]byte, error) {
	p, ok := r.Lookup(key)
	if !ok {
		return dst, ErrUnknownKey
	}
	if p.Get == nil {
		return dst, ErrUnsupported
	}
	return p.Get(dst), nil
}

// Set applies the value at the start of val and returns the number of
// bytes taken. ErrIncomplete is returned until the whole value is present.
// A read-only property fails with ErrUnsupported at once, taking what is
// already buffered of its length.
func (r *Registry) Set(key PropKey, val []byte) (int, error) {
	p, ok := r.Lookup(key)
	if !ok {
		return 0, ErrUnknownKey
	}
	if p.Set == nil {
		n := p.Len
		if len(val) < n {
			n = len(val)
		}
		return n, ErrUnsupported
	}
	if len(val) < p.Len {
		return 0, ErrIncomplete
	}
	p.Set(val[:p.Len])
	return p.Len, nil
}
