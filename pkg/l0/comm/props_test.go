package comm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/spectrig/pkg/l0/acq"
	"github.com/robotalks/spectrig/pkg/l0/hw"
)

func testRegistry(level *acq.Level, sw *hw.Switch) *Registry {
	return MustNewRegistry(
		Const16(KeyFirmware, 0x0102),
		Scalar16(KeyThreshold, level),
		Toggle(KeyBias, sw),
	)
}

func TestRegistryGet(t *testing.T) {
	var level acq.Level
	level.Store(0x1234)
	sw := hw.NewSwitch(nil)
	r := testRegistry(&level, sw)

	testCases := []struct {
		key    PropKey
		expect []byte
		err    error
	}{
		{KeyFirmware, []byte{0x02, 0x01}, nil},
		{KeyThreshold, []byte{0x34, 0x12}, nil},
		{KeyBias, []byte{0}, nil},
		{KeySerial, nil, ErrUnknownKey},
	}
	for _, tc := range testCases {
		t.Run(tc.key.String(), func(t *testing.T) {
			val, err := r.Get(nil, tc.key)
			require.Equal(t, tc.err, err)
			require.Equal(t, tc.expect, val)
		})
	}

	sw.Enable()
	val, err := r.Get([]byte{0xaa}, KeyBias)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 1}, val)
}

func TestRegistrySet(t *testing.T) {
	var level acq.Level
	sw := hw.NewSwitch(nil)
	r := testRegistry(&level, sw)

	n, err := r.Set(KeyThreshold, []byte{0x2c})
	require.Equal(t, ErrIncomplete, err)
	require.Zero(t, n)

	n, err = r.Set(KeyThreshold, []byte{0x2c, 0x01, 0xff})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, uint16(300), level.Load())

	n, err = r.Set(KeyBias, []byte{0x03})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, sw.IsEnabled())
	_, err = r.Set(KeyBias, []byte{0x02})
	require.NoError(t, err)
	require.False(t, sw.IsEnabled())

	n, err = r.Set(KeyFirmware, []byte{0, 0})
	require.Equal(t, ErrUnsupported, err)
	require.Equal(t, 2, n)
	n, err = r.Set(KeyFirmware, nil)
	require.Equal(t, ErrUnsupported, err)
	require.Zero(t, n)

	n, err = r.Set(PropKey(99), nil)
	require.Equal(t, ErrUnknownKey, err)
	require.Zero(t, n)
}

func TestRegistryWriteOnly(t *testing.T) {
	var last byte
	r := MustNewRegistry(Property{Key: 9, Len: 1, Set: func(v []byte) { last = v[0] }})
	_, err := r.Get(nil, 9)
	require.Equal(t, ErrUnsupported, err)
	_, err = r.Set(9, []byte{7})
	require.NoError(t, err)
	require.Equal(t, byte(7), last)
}

func TestRegistryInvalid(t *testing.T) {
	_, err := NewRegistry(Const16(KeyFirmware, 1), Const16(KeyFirmware, 2))
	require.Error(t, err)
	_, err = NewRegistry(Property{Key: 1, Set: func([]byte) {}})
	require.Error(t, err)
	require.Panics(t, func() {
		MustNewRegistry(Const16(KeySerial, 1), Const16(KeySerial, 1))
	})
}

func TestRegistryKeys(t *testing.T) {
	var level acq.Level
	r := testRegistry(&level, hw.NewSwitch(nil))
	require.Equal(t, []PropKey{KeyFirmware, KeyThreshold, KeyBias}, r.Keys())
	p, ok := r.Lookup(KeyBias)
	require.True(t, ok)
	require.Equal(t, 1, p.Len)
	_, ok = r.Lookup(KeyAmp)
	require.False(t, ok)
}
