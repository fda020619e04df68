// Package spect registers the spectrometer commands to the shell.
package spect

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/spectrig/pkg/cli/sh"
	"github.com/robotalks/spectrig/pkg/l1/msgs"
	"github.com/robotalks/spectrig/pkg/l1/spect/histfile"
)

var (
	// PingCmd exposes Ping command.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.Ping{})
		}),
	}

	// GetCmd exposes PropGet command.
	GetCmd = ishell.Cmd{
		Name: "get",
		Help: "KEY (firmware|threshold|bias|amp|rthresh|serial|cpm_threshold)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("KEY required"))
				return
			}
			for _, key := range c.Args {
				if sh.DoCommand(c, &msgs.PropGet{Key: key}) != nil {
					return
				}
			}
		}),
	}

	// SetCmd exposes PropSet command.
	SetCmd = ishell.Cmd{
		Name: "set",
		Help: "KEY VALUE",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg, err := ParseSet(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		}),
	}

	// StartCmd exposes AcqStart command.
	StartCmd = ishell.Cmd{
		Name: "start",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.AcqStart{})
		}),
	}

	// StopCmd exposes AcqStop command.
	StopCmd = ishell.Cmd{
		Name:    "stop",
		Aliases: []string{"end"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.AcqStop{})
		}),
	}

	// SpectrumCmd exposes SpectrumQuery command.
	SpectrumCmd = ishell.Cmd{
		Name:    "spectrum",
		Aliases: []string{"spect"},
		Help:    "[CPM_THRESHOLD]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			msg, err := ParseSpectrumQuery(c.Args, sh.ShellFrom(c).OutputJSON)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		}),
	}

	// ResetCmd exposes SpectrumReset command.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.SpectrumReset{})
		}),
	}

	// CPMCmd computes counts per minute from saved histogram files,
	// no connection needed.
	CPMCmd = ishell.Cmd{
		Name: "cpm",
		Help: "THRESHOLD FILE...",
		Func: func(c *ishell.Context) {
			threshold, paths, err := ParseCPM(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			for _, path := range paths {
				cpm, err := FileCPM(path, threshold)
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("%s: %.4f\n", path, cpm)
			}
		},
	}
)

// ParseSet parses KEY VALUE.
func ParseSet(args []string) (*msgs.PropSet, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("KEY VALUE required")
	}
	val, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid VALUE: %v", err)
	}
	return &msgs.PropSet{Key: args[0], Value: uint32(val)}, nil
}

// ParseSpectrumQuery parses [CPM_THRESHOLD]. Counts are only requested
// for JSON output.
func ParseSpectrumQuery(args []string, withCounts bool) (*msgs.SpectrumQuery, error) {
	msg := &msgs.SpectrumQuery{NoCounts: !withCounts}
	if len(args) > 0 {
		val, err := strconv.ParseUint(args[0], 0, 12)
		if err != nil {
			return nil, fmt.Errorf("invalid CPM_THRESHOLD: %v", err)
		}
		msg.CpmThreshold = uint32(val)
	}
	return msg, nil
}

// ParseCPM parses THRESHOLD FILE...
func ParseCPM(args []string) (int, []string, error) {
	if len(args) < 2 {
		return 0, nil, fmt.Errorf("THRESHOLD FILE... required")
	}
	val, err := strconv.ParseUint(args[0], 0, 12)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid THRESHOLD: %v", err)
	}
	return int(val), args[1:], nil
}

// FileCPM loads a histogram file and computes its rate above threshold.
func FileCPM(path string, threshold int) (float64, error) {
	f, err := histfile.Load(path)
	if err != nil {
		return 0, err
	}
	cpm, err := f.CPM(threshold)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", path, err)
	}
	return cpm, nil
}

func init() {
	sh.AddCmds(
		&PingCmd,
		&GetCmd,
		&SetCmd,
		&StartCmd,
		&StopCmd,
		&SpectrumCmd,
		&ResetCmd,
		&CPMCmd,
	)
}
