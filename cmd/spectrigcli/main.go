package main

import (
	"github.com/robotalks/spectrig/pkg/cli/sh"
	env "github.com/robotalks/spectrig/pkg/l1/env/connector"

	_ "github.com/robotalks/spectrig/pkg/cli/cmds/spect"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
