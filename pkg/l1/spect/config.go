package spect

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/robotalks/spectrig/pkg/l1"
	env "github.com/robotalks/spectrig/pkg/l1/env/controller"
	"github.com/robotalks/spectrig/pkg/link"
)

// ControllerType is the L1 controller type of the spectrometer.
const ControllerType = "spectrig"

// Config defines the configurations for the controller.
type Config struct {
	// Link is the URL of the board, see link.Open.
	Link          string
	CpmThreshold  uint
	EventInterval time.Duration
	RetryInterval time.Duration
}

var defaultConfig = Config{
	Link:          "serial:///dev/ttyACM0",
	CpmThreshold:  20,
	EventInterval: 100 * time.Millisecond,
	RetryInterval: time.Second,
}

func init() {
	if val := os.Getenv("SPECTRIG_LINK"); val != "" {
		defaultConfig.Link = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Board link URL, serial:///dev/ttyACM0?baud=115200 or ws://host:port/usb")
	flag.UintVar(&defaultConfig.CpmThreshold, "cpm-threshold", defaultConfig.CpmThreshold, "Lowest channel counted in CPM")
	flag.DurationVar(&defaultConfig.EventInterval, "event-interval", defaultConfig.EventInterval, "Interval of pulse events")
	flag.DurationVar(&defaultConfig.RetryInterval, "retry-interval", defaultConfig.RetryInterval, "Interval to reopen the link")
}

// SetControllerType registers the spectrometer as the controller type.
func SetControllerType() {
	env.SetControllerType(ControllerType, l1.ControllerMeta{
		Description: "Gamma Spectrometer",
	})
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewController creates a controller using the config.
func (c *Config) NewController(e *env.Env) *Controller {
	url := c.Link
	ctl := NewController(e, func() (io.ReadWriteCloser, error) {
		return link.Open(url)
	})
	ctl.EventInterval = c.EventInterval
	ctl.RetryInterval = c.RetryInterval
	if c.CpmThreshold < Channels {
		ctl.SetCpmThreshold(uint16(c.CpmThreshold))
	}
	return ctl
}
