package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/spectrig/pkg/framework"
	"github.com/robotalks/spectrig/pkg/l0/boot"
	"github.com/robotalks/spectrig/pkg/sim/config"
	"github.com/robotalks/spectrig/pkg/sim/cpu"
	"github.com/robotalks/spectrig/pkg/sim/device"
)

var forceUpdate bool

func init() {
	config.SetupFlags()
	flag.BoolVar(&forceUpdate, "update", forceUpdate, "Boot into update mode.")
}

// halted carries the result of the application out of the boot chain.
type halted struct {
	err error
}

func runChain(chain *boot.Bootloader) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h, ok := r.(halted)
			if !ok {
				panic(r)
			}
			err = h.err
		}
	}()
	if err = chain.Run(); err == nil {
		err = errors.New("boot chain ended without launching the application")
	}
	return
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.NewConfig()
	if err != nil {
		glog.Exit(err)
	}
	marker := &cpu.FileWord{Path: conf.Board.Marker}
	if forceUpdate {
		marker.Store(boot.UpdateMagic)
	}
	flash := device.NewFlash(boot.DefaultLayout)
	img, err := device.LoadImage(conf.Board.Image, flash.Layout)
	if err != nil {
		glog.Exit(err)
	}
	if err = flash.Program(img); err != nil {
		glog.Exit(err)
	}

	r := fx.NewRunner().HandleSignals()
	svc := &device.DFUService{Flash: flash, Path: conf.Board.Image, Delay: time.Second}
	for {
		board, err := device.New(conf, marker)
		if err != nil {
			glog.Exit(err)
		}
		c := cpu.New(func(sp, entry uint32) error {
			return board.Run(r.Context)
		})
		c.Halt = func(err error) { panic(halted{err: err}) }
		chain, err := device.NewChain(flash, marker, c, svc, conf.Board.Verify)
		if err != nil {
			glog.Exit(err)
		}
		err = runChain(chain)
		switch {
		case errors.Is(err, device.ErrReset):
			glog.Info("reset")
			continue
		case err == nil, errors.Is(err, context.Canceled):
			return
		}
		glog.Exit(err)
	}
}
