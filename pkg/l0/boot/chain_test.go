package boot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type jumped struct {
	sp, entry uint32
}

type fakeCPU struct {
	vtor uint32
}

func (c *fakeCPU) SetVectorTable(addr uint32) {
	c.vtor = addr
}

func (c *fakeCPU) Jump(sp, entry uint32) {
	panic(jumped{sp: sp, entry: entry})
}

func TestChainRouting(t *testing.T) {
	testCases := []struct {
		name    string
		marker  uint32
		verify  bool
		corrupt bool
		// DFU writes a valid image from this call on, 0 never
		fixAt int
		serves int
	}{
		{name: "boot", marker: 0},
		{name: "other marker", marker: 0xcafedead},
		{name: "update", marker: UpdateMagic, serves: 1},
		{name: "verified boot", verify: true},
		{name: "unverified corrupt boot", corrupt: true},
		{name: "corrupt image", verify: true, corrupt: true, fixAt: 1, serves: 1},
		{name: "update corrupt image", marker: UpdateMagic, verify: true, corrupt: true, fixAt: 2, serves: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			img := newTestImage(7, 64)
			if tc.corrupt {
				img.Data[33] ^= 0x10
			}
			cpu := &fakeCPU{}
			var marker RAMWord
			marker.Store(tc.marker)
			serves := 0
			dfu := &DFU{
				Info: DefaultDFUInfo,
				Service: ServeFunc(func() error {
					require.Zero(t, cpu.vtor, "launched before update")
					serves++
					if serves == tc.fixAt {
						img.Data[33] ^= 0x10
					}
					return nil
				}),
			}
			bl, err := NewChain(ChainConfig{
				Marker:      &marker,
				Mem:         img,
				Layout:      testLayout,
				CPU:         cpu,
				DFU:         dfu,
				VerifyImage: tc.verify,
			})
			require.NoError(t, err)

			require.PanicsWithValue(t, jumped{sp: testSP, entry: testEntry}, func() {
				bl.Run()
			})
			require.Equal(t, testLayout.VectorAddr(), cpu.vtor)
			require.Equal(t, tc.serves, serves)
			require.NotEqual(t, UpdateMagic, marker.Load())
		})
	}
}

func TestChainNeverLaunchesFailedImage(t *testing.T) {
	img := newTestImage(8, 64)
	img.Data[50] ^= 0x01
	cpu := &fakeCPU{}
	stop := errors.New("stop")
	serves := 0
	dfu := &DFU{Service: ServeFunc(func() error {
		serves++
		if serves == 3 {
			panic(stop)
		}
		return nil
	})}
	bl, err := NewChain(ChainConfig{
		Marker:      &RAMWord{},
		Mem:         img,
		Layout:      testLayout,
		CPU:         cpu,
		DFU:         dfu,
		VerifyImage: true,
	})
	require.NoError(t, err)
	require.PanicsWithValue(t, stop, func() { bl.Run() })
	require.Zero(t, cpu.vtor)
}

func TestDFURetries(t *testing.T) {
	calls, inits := 0, 0
	dfu := &DFU{
		Init: func() { inits++ },
		Service: ServeFunc(func() error {
			calls++
			if calls < 3 {
				return errors.New("detached early")
			}
			return nil
		}),
	}
	require.Equal(t, DFUDone, dfu.Run())
	require.Equal(t, 3, calls)
	require.Equal(t, 1, inits)
}

func TestNewChainIncomplete(t *testing.T) {
	_, err := NewChain(ChainConfig{Marker: &RAMWord{}})
	require.Error(t, err)
}

func TestBootloaderGraph(t *testing.T) {
	nop := func() Outcome { return 0 }
	_, err := NewBootloader(2, NewModule("a", nop))
	require.Error(t, err)
	_, err = NewBootloader(0, NewModule("a", nop, 1))
	require.Error(t, err)
	_, err = NewBootloader(0, NewModule("a", nil))
	require.Error(t, err)

	var trace []string
	bl, err := NewBootloader(0,
		NewModule("a", func() Outcome { trace = append(trace, "a"); return 1 }, Terminal, 1),
		NewModule("b", func() Outcome { trace = append(trace, "b"); return 3 }, 0),
	)
	require.NoError(t, err)
	require.Error(t, bl.Run())
	require.Equal(t, []string{"a", "b"}, trace)
}

func TestAppCtl(t *testing.T) {
	var marker RAMWord
	appctl := &AppCtl{Marker: &marker}
	require.Equal(t, AppCtlContinue, appctl.Check())

	resets := 0
	RequestUpdate(&marker, func() { resets++ })
	require.Equal(t, 1, resets)
	require.Equal(t, UpdateMagic, marker.Load())
	require.Equal(t, AppCtlFlash, appctl.Check())
	require.Equal(t, AppCtlContinue, appctl.Check())
}

func TestLauncherReturn(t *testing.T) {
	l := &Launcher{CPU: returningCPU{}, Mem: newTestImage(9, 64), Layout: testLayout}
	require.Panics(t, func() { l.Run() })
}

type returningCPU struct{}

func (returningCPU) SetVectorTable(uint32) {}
func (returningCPU) Jump(uint32, uint32)   {}
