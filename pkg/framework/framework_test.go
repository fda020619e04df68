package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunnerWait(t *testing.T) {
	fail := errors.New("fail")
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx).Go(
		NamedRun("fail", RunnableFunc(func(context.Context) error { return fail })),
		RunnableFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		RunnableFunc(func(context.Context) error { return nil }),
	)
	cancel()
	err := r.Wait()
	require.Error(t, err)
	require.True(t, errors.Is(err, fail))
	require.Equal(t, "fail", err.Error())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("a"), nil, errors.New("b"))
	require.Equal(t, "multiple errors:\na\nb", errs.Aggregate().Error())
	require.Nil(t, errs.Unwrap())
}

func TestRunWithContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	unblock := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- RunWithContextCancel(ctx, func() { close(unblock) }, func() error {
			<-unblock
			return errors.New("closed")
		})
	}()
	cancel()
	require.Equal(t, context.Canceled, <-done)

	err := RunWithContextCancel(context.Background(), nil, func() error { return errors.New("x") })
	require.EqualError(t, err, "x")
}

type testMsg struct {
	n int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestLoopMessages(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour

	var (
		lock  sync.Mutex
		trace []string
		seen  = make(chan int, 10)
	)
	record := func(s string) {
		lock.Lock()
		trace = append(trace, s)
		lock.Unlock()
	}
	loop.AddController(PrLvIdle, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			record("idle")
			seen <- mc.CurrentMessage().(*testMsg).n
		}))
		return nil
	}))
	loop.AddController(PrLvControl, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mc MessageProcessingContext) {
			record("control")
			if mc.CurrentMessage().(*testMsg).n%2 == 0 {
				mc.MessageTaken()
			}
		}))
		return nil
	}))
	loop.AddRunnable(RunnableFunc(func(ctx context.Context) error {
		ctl := LoopCtlFrom(ctx)
		for i := 1; i <= 3; i++ {
			ctl.PostMessage(&testMsg{n: i})
		}
		ctl.TriggerNext()
		<-ctx.Done()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var got []int
	for len(got) < 2 {
		select {
		case n := <-seen:
			got = append(got, n)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout")
		}
	}
	cancel()
	require.Equal(t, context.Canceled, <-done)
	require.Equal(t, []int{1, 3}, got)
	lock.Lock()
	require.Equal(t, []string{"control", "control", "control", "idle", "idle"}, trace)
	lock.Unlock()
}
