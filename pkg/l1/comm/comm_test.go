package comm

import (
	"context"
	"io"
	"io/ioutil"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/spectrig/pkg/framework"
	"github.com/robotalks/spectrig/pkg/l1"
	"github.com/robotalks/spectrig/pkg/l1/comm/stream"
	"github.com/robotalks/spectrig/pkg/l1/msgs"
)

func TestRegistrarAndControllerConn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := net.Pipe()

	var reg Registrar
	reg.Init(stream.New(a))
	loop := fx.NewLoop()
	loop.Add(&reg, &UnsupportedCommands{})
	loop.AddController(fx.PrLvControl, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
			cmd, ok := mctx.CurrentMessage().(*l1.CommandMsg)
			if !ok {
				return
			}
			if get, ok := cmd.Command.Msg().(*msgs.PropGet); ok {
				mctx.MessageTaken()
				cmd.Command.Done(&msgs.PropValue{Key: get.Key, Value: 7})
			}
		}))
		return nil
	}))
	go loop.Run(ctx)

	var conn ControllerConn
	conn.Init(stream.New(b))
	events := make(chan fx.Message, 1)
	conn.OnEvent = func(msg fx.Message) { events <- msg }
	go conn.Run(ctx)

	res, err := l1.Do(ctx, &conn, &msgs.PropGet{Key: "threshold"})
	require.NoError(t, err)
	require.Equal(t, &msgs.PropValue{Key: "threshold", Value: 7}, res)

	res, err = l1.Do(ctx, &conn, &msgs.AcqStart{})
	require.Error(t, err)
	require.Equal(t, msgs.ErrUnsupportedCommand.Error(), err.Error())
	require.IsType(t, &msgs.CommandErr{}, res)
	require.Zero(t, conn.Pending())

	require.NoError(t, reg.SendEvent(ctx, &msgs.PulseEvent{Peaks: []uint32{120, 900}}))
	select {
	case ev := <-events:
		require.Equal(t, &msgs.PulseEvent{Peaks: []uint32{120, 900}}, ev)
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
	}
}

func TestControllerConnExpiration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, b := net.Pipe()
	go io.Copy(ioutil.Discard, a)

	var conn ControllerConn
	conn.Init(stream.New(b))
	conn.Expiration = 20 * time.Millisecond
	go conn.Run(ctx)

	_, err := l1.Do(ctx, &conn, &msgs.Ping{})
	require.Equal(t, context.DeadlineExceeded, err)
	require.Zero(t, conn.Pending())
}

func TestControllerConnClosed(t *testing.T) {
	a, b := net.Pipe()
	go io.Copy(ioutil.Discard, a)

	var conn ControllerConn
	conn.Init(stream.New(b))
	conn.Expiration = time.Hour
	done := make(chan error, 1)
	go func() { done <- conn.Run(context.Background()) }()

	f := conn.DoCommand(&msgs.Ping{})
	require.Equal(t, 1, conn.Pending())
	a.Close()
	require.Error(t, <-done)
	res := <-f.ResultChan()
	require.Equal(t, ErrConnClosed, res.Err)
}

func TestPipeUnknownCommand(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	pipe := NewPipe(stream.New(b))
	go pipe.Run(context.Background())

	peer := stream.New(a)
	typed := &msgs.Typed{TypeId: msgs.GroupCustom | 0x1, Sequence: 5}
	pkt, err := typed.Encode()
	require.NoError(t, err)
	require.NoError(t, peer.WritePacket(pkt))

	pkt, err = peer.ReadPacket()
	require.NoError(t, err)
	reply, err := msgs.DecodeTyped(pkt)
	require.NoError(t, err)
	require.Equal(t, uint32(5), reply.Sequence)
	require.Equal(t, msgs.CommandErrTypeID, reply.TypeId)
}
