package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/spectrig/pkg/l1"
)

func TestMatchTopic(t *testing.T) {
	testCases := []struct {
		topic, pattern string
		match          bool
	}{
		{"gamma/1/meta", "+/+/meta", true},
		{"gamma/1/msg", "+/+/meta", false},
		{"gamma/1", "+/+/meta", false},
		{"gamma/1/meta/x", "+/+/meta", false},
		{"gamma/1/meta", "gamma/#", true},
		{"gamma", "gamma/#", true},
		{"beta/1", "gamma/#", false},
		{"gamma/1/cmd", "gamma/1/cmd", true},
		{"gamma/1/cmd", "gamma/1", false},
	}
	for _, tc := range testCases {
		t.Run(tc.topic+"~"+tc.pattern, func(t *testing.T) {
			require.Equal(t, tc.match, MatchTopic(tc.topic, tc.pattern))
		})
	}
}

func TestClientOptionsFromURL(t *testing.T) {
	testCases := []struct {
		url    string
		broker string
		prefix string
		client string
	}{
		{"mqtt://localhost:1883/spectrig/", "tcp://localhost:1883", "spectrig/", ""},
		{"mqtt://localhost:1883/spectrig", "tcp://localhost:1883", "spectrig/", ""},
		{"mqtt://broker", "tcp://broker", "", ""},
		{"mqtts://broker:8883/a/b?client-id=bench", "ssl://broker:8883", "a/b/", "bench"},
		{"ws://broker:9001/", "ws://broker:9001", "", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			opts, prefix, err := ClientOptionsFromURL(tc.url)
			require.NoError(t, err)
			require.Len(t, opts.Servers, 1)
			require.Equal(t, tc.broker, opts.Servers[0].String())
			require.Equal(t, tc.prefix, prefix)
			require.Equal(t, tc.client, opts.ClientID)
		})
	}

	for _, bad := range []string{"http://broker/", "mqtt:///x", "%zz"} {
		_, _, err := ClientOptionsFromURL(bad)
		require.Error(t, err, bad)
	}
}

func TestQoSFromURL(t *testing.T) {
	require.Equal(t, byte(1), QoSFromURL("mqtt://h/?qos=1"))
	require.Equal(t, byte(0), QoSFromURL("mqtt://h/?qos=7"))
	require.Equal(t, byte(0), QoSFromURL("mqtt://h/"))
}

func TestParseMeta(t *testing.T) {
	info, ok := ParseMeta("gamma/ab12/meta", []byte(`{"description":"bench","firmware":"0.2"}`))
	require.True(t, ok)
	require.Equal(t, l1.ControllerRef{Type: "gamma", ID: "ab12"}, info.Ref)
	require.Equal(t, "bench", info.Meta.Description)
	require.Equal(t, "0.2", info.Meta.Firmware)

	_, ok = ParseMeta("gamma/ab12/meta", nil)
	require.False(t, ok)
	_, ok = ParseMeta("gamma/ab12/msg", []byte(`{}`))
	require.False(t, ok)
}

func TestReadWriterClose(t *testing.T) {
	rw := NewPacketReadWriter(nil).ForConnector(l1.ControllerRef{Type: "gamma", ID: "1"})
	require.Equal(t, "gamma/1/msg", rw.SubTopic)
	require.Equal(t, "gamma/1/cmd", rw.PubTopic)
	rw.handleMsg("gamma/1/msg", []byte{1})
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1}, pkt)
	require.NoError(t, rw.Close())
	rw.handleMsg("gamma/1/msg", []byte{2})
	require.NoError(t, rw.Close())
}
