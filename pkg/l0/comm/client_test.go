package comm

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/spectrig/pkg/l0/acq"
	"github.com/robotalks/spectrig/pkg/l0/hw"
)

// deviceLink connects a Client directly to a Device.
type deviceLink struct {
	device *Device
	r      io.Reader
}

func (l *deviceLink) Read(p []byte) (int, error) {
	return l.r.Read(p)
}

func (l *deviceLink) Write(p []byte) (int, error) {
	l.device.Push(p)
	return len(p), nil
}

type clientTestEnv struct {
	t      *testing.T
	xfer   *testTransfer
	bias   *hw.Switch
	device *Device
	client *Client
	cancel func()
}

func newClientTestEnv(t *testing.T) *clientTestEnv {
	pr, pw := io.Pipe()
	env := &clientTestEnv{
		t:    t,
		xfer: &testTransfer{},
		bias: hw.NewSwitch(nil),
	}
	sender := NewSender(NewOutbox(pw))
	engine := acq.NewEngine(acq.NewChannel(), env.xfer, sender, nil, nil)
	engine.Init()
	env.device = NewDevice(engine, env.bias, sender, 77)
	env.client = NewClient(&deviceLink{device: env.device, r: pr})

	ctx, cancel := context.WithCancel(context.Background())
	go env.client.Run(ctx)
	env.cancel = func() {
		cancel()
		pw.Close()
	}
	waitFor(t, env.client.Running)
	return env
}

func TestClientCommands(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.cancel()
	ctx := context.Background()

	require.NoError(t, env.client.Sync(ctx))
	require.NoError(t, env.client.Ping(ctx))

	ver, err := env.client.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, "0.2", ver)

	serial, err := env.client.GetValue(ctx, KeySerial)
	require.NoError(t, err)
	require.Equal(t, uint16(77), serial)

	v, err := env.client.GetValue(ctx, KeyThreshold)
	require.NoError(t, err)
	require.Equal(t, acq.DefaultThreshold, v)
	require.NoError(t, env.client.SetValue(ctx, KeyThreshold, 300))
	v, err = env.client.GetValue(ctx, KeyThreshold)
	require.NoError(t, err)
	require.Equal(t, uint16(300), v)

	require.NoError(t, env.client.SetValue(ctx, KeyBias, 1))
	require.True(t, env.bias.IsEnabled())
	v, err = env.client.GetValue(ctx, KeyBias)
	require.NoError(t, err)
	require.Equal(t, uint16(1), v)
}

func TestClientErrors(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.cancel()
	ctx := context.Background()

	err := env.client.SetValue(ctx, KeyFirmware, 3)
	require.Equal(t, &CommandError{Code: ErrUnsupported}, err)

	_, err = env.client.Get(ctx, PropKey(99))
	require.Equal(t, &CommandError{Code: ErrUnknownKey}, err)

	// the stream is still in sync
	require.NoError(t, env.client.Ping(ctx))
}

func TestClientStream(t *testing.T) {
	env := newClientTestEnv(t)
	defer env.cancel()
	ctx := context.Background()

	require.NoError(t, env.client.SetValue(ctx, KeyRearmThreshold, 0))
	require.NoError(t, env.client.Start())
	require.True(t, env.device.Engine.Running())

	env.xfer.complete(acq.FirstHalf, 0, 200, 0, 300, 0)
	for _, expect := range []uint16{200, 300} {
		select {
		case peak := <-env.client.EventChan():
			require.Equal(t, expect, peak)
		case <-time.After(time.Second):
			t.Fatal("event timeout")
		}
	}

	env.device.Sender.SendWave([]uint16{1, 0x0203})
	env.device.Sender.Out.Flush()
	select {
	case wave := <-env.client.WaveChan():
		require.Equal(t, []uint16{1, 0x0203}, wave)
	case <-time.After(time.Second):
		t.Fatal("wave timeout")
	}

	require.NoError(t, env.client.End())
	require.False(t, env.device.Engine.Running())
	require.Zero(t, env.client.Dropped())
}

type silentLink struct {
	block chan struct{}
}

func (l *silentLink) Read(p []byte) (int, error) {
	<-l.block
	return 0, io.EOF
}

func (l *silentLink) Write(p []byte) (int, error) {
	return len(p), nil
}

func TestClientNoReply(t *testing.T) {
	link := &silentLink{block: make(chan struct{})}
	defer close(link.block)
	client := NewClient(link)
	require.Equal(t, ErrNotReady, client.Ping(context.Background()))

	client.Timeout = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)
	waitFor(t, client.running.Load)
	require.Equal(t, ErrNoReply, client.Ping(context.Background()))
}

func TestReader(t *testing.T) {
	stream := []byte{
		0x00, 0x55,
		0x82,
		0x87, 0x10, 0x00,
		0x83, 0x63,
		0x83, 0x03, 0x01,
		0x83, 0x02, 0x2c, 0x01,
		0x88, 0x01, 0x12, 0x34,
		0xff, 0x02,
	}
	r := NewReader(bytes.NewReader(stream))
	var got []*Packet
	for {
		pkt, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, pkt)
	}
	require.Len(t, got, 6)
	require.Equal(t, PacketPong, got[0].Type)
	require.Equal(t, uint16(0x10), got[1].Peak())
	require.Equal(t, KeyBias, got[2].Key())
	require.Equal(t, uint16(1), DecodeValue(got[2].Value()))
	require.Equal(t, KeyThreshold, got[3].Key())
	require.Equal(t, uint16(300), DecodeValue(got[3].Value()))
	require.Equal(t, []uint16{0x1234}, got[4].Samples())
	require.Equal(t, ErrUnknownKey, got[5].Code())
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x87, 0x10}))
	_, err := r.Next()
	require.Equal(t, io.ErrUnexpectedEOF, err)
}
