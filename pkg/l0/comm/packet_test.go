package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncoders(t *testing.T) {
	testCases := []struct {
		name   string
		packet []byte
		expect []byte
	}{
		{"pong", AppendPong(nil), []byte{0x82}},
		{"event", AppendEvent(nil, 0x1234), []byte{0x87, 0x34, 0x12}},
		{"error", AppendError(nil, ErrUnknownKey), []byte{0xff, 0x02}},
		{"getresp", AppendGetResp(nil, KeyThreshold), []byte{0x83, 0x02}},
		{"wave", AppendWave(nil, []uint16{0x0102, 0xa0b0}), []byte{0x88, 2, 0x01, 0x02, 0xa0, 0xb0}},
		{"empty wave", AppendWave(nil, nil), []byte{0x88, 0}},
		{"get", AppendGet(nil, KeySerial), []byte{0x03, 0x06}},
		{"set", AppendSet(nil, KeyBias, []byte{1}), []byte{0x04, 0x03, 0x01}},
		{"append", AppendEvent([]byte{0x82}, 7), []byte{0x82, 0x87, 7, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.packet)
		})
	}
}

func TestWaveLimit(t *testing.T) {
	p := AppendWave(nil, make([]uint16, 300))
	require.Equal(t, byte(0xff), p[1])
	require.Len(t, p, 2+0xff*2)
}

func TestParsePropKey(t *testing.T) {
	k, err := ParsePropKey("rthresh")
	require.NoError(t, err)
	require.Equal(t, KeyRearmThreshold, k)
	k, err = ParsePropKey("99")
	require.NoError(t, err)
	require.Equal(t, PropKey(99), k)
	_, err = ParsePropKey("nope")
	require.Error(t, err)
}

func TestErrorCode(t *testing.T) {
	var err error = ErrUnsupported
	require.Equal(t, "unsupported operation", err.Error())
	require.Equal(t, "error 9", ErrorCode(9).Error())
	require.Equal(t, "GETRESP", PacketGetResp.String())
	require.Equal(t, "0x42", PacketType(0x42).String())
}

func TestFormatVersion(t *testing.T) {
	require.Equal(t, "0.2", FormatVersion(FirmwareVersion))
	require.Equal(t, "1.3", FormatVersion(0x0103))
}

func TestKeys(t *testing.T) {
	require.Equal(t, []PropKey{
		KeyFirmware, KeyThreshold, KeyBias, KeyAmp, KeyRearmThreshold, KeySerial,
	}, Keys())
}
