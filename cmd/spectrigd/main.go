package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	fx "github.com/robotalks/spectrig/pkg/framework"
	env "github.com/robotalks/spectrig/pkg/l1/env/controller"
	"github.com/robotalks/spectrig/pkg/l1/spect"
	"github.com/robotalks/spectrig/pkg/viewer"
)

func init() {
	spect.SetControllerType()
	env.SetupFlags()
	spect.SetupFlags()
	viewer.SetupFlags()
}

func main() {
	flag.Parse()

	env := env.NewConfig().MustNewEnv()
	ctl := spect.NewConfig().NewController(env)
	loop := fx.NewLoop().Add(env, ctl)
	if conf := viewer.NewConfig(); conf.Enabled() {
		loop.AddRunnable(fx.NamedRun("viewer", conf.NewServer(ctl)))
	}
	loop.RunOrFail()
}
