// Package config describes a simulated board and the signal of the
// detector attached to it.
package config

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the simulator configuration.
type Config struct {
	Board  Board  `yaml:"board"`
	Signal Signal `yaml:"signal"`
}

// Board describes the simulated hardware.
type Board struct {
	// Listen is the address of the websocket USB endpoint.
	Listen string `yaml:"listen"`
	Serial uint16 `yaml:"serial"`
	// Image is the application image in flash, empty for a blank
	// image built at start.
	Image string `yaml:"image"`
	// Marker is the file backing the update marker register.
	Marker string `yaml:"marker"`
	// Verify validates the image before every launch.
	Verify    bool   `yaml:"verify"`
	Threshold uint16 `yaml:"threshold"`
	Rthresh   uint16 `yaml:"rthresh"`
	GPIO      GPIO   `yaml:"gpio"`
}

// GPIO names real pins driven by the simulator, when it runs on a board
// with GPIOs. Empty names are not driven.
type GPIO struct {
	Bias string `yaml:"bias"`
	Amp  string `yaml:"amp"`
	LED  string `yaml:"led"`
}

// Signal describes the synthetic detector output.
type Signal struct {
	// SampleRate in samples per second.
	SampleRate int `yaml:"sample_rate"`
	// PulseRate in pulses per second.
	PulseRate    float64 `yaml:"pulse_rate"`
	AmplitudeMin uint16  `yaml:"amplitude_min"`
	AmplitudeMax uint16  `yaml:"amplitude_max"`
	// Decay is the time constant of the pulse tail, in samples.
	Decay    float64 `yaml:"decay"`
	Baseline uint16  `yaml:"baseline"`
	// Noise is the standard deviation of the baseline noise.
	Noise float64 `yaml:"noise"`
	Seed  int64   `yaml:"seed"`
}

// ADCMax is the largest sample of the 12-bit converter.
const ADCMax = 4095

var defaultConfig = Config{
	Board: Board{
		Listen:    "localhost:8090",
		Serial:    1,
		Marker:    "spectrig-sim.marker",
		Verify:    true,
		Threshold: 100,
		Rthresh:   2,
	},
	Signal: Signal{
		SampleRate:   100000,
		PulseRate:    20,
		AmplitudeMin: 150,
		AmplitudeMax: 3500,
		Decay:        6,
		Baseline:     0,
		Noise:        1,
	},
}

var configFile string

func init() {
	if val := os.Getenv("SPECTRIG_SIM_LISTEN"); val != "" {
		defaultConfig.Board.Listen = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML board and signal description.")
	flag.StringVar(&defaultConfig.Board.Listen, "listen", defaultConfig.Board.Listen, "Address of the websocket USB endpoint.")
	flag.StringVar(&defaultConfig.Board.Image, "image", defaultConfig.Board.Image, "Application image (.bin or .hex).")
	flag.StringVar(&defaultConfig.Board.Marker, "marker", defaultConfig.Board.Marker, "File backing the update marker.")
	flag.Float64Var(&defaultConfig.Signal.PulseRate, "pulse-rate", defaultConfig.Signal.PulseRate, "Pulses per second.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with defaults, merged with the file given
// by -config. Command line flags win over the file.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	if configFile == "" {
		return &conf, nil
	}
	loaded, err := Load(configFile)
	if err != nil {
		return nil, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			loaded.Board.Listen = conf.Board.Listen
		case "image":
			loaded.Board.Image = conf.Board.Image
		case "marker":
			loaded.Board.Marker = conf.Board.Marker
		case "pulse-rate":
			loaded.Signal.PulseRate = conf.Signal.PulseRate
		}
	})
	return loaded, nil
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	conf := defaultConfig
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("parse config: %v", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	s := &c.Signal
	switch {
	case s.SampleRate <= 0:
		return fmt.Errorf("signal.sample_rate must be positive")
	case s.PulseRate < 0:
		return fmt.Errorf("signal.pulse_rate must not be negative")
	case float64(s.SampleRate) < s.PulseRate:
		return fmt.Errorf("signal.pulse_rate %v exceeds sample_rate %d", s.PulseRate, s.SampleRate)
	case s.AmplitudeMin > s.AmplitudeMax:
		return fmt.Errorf("signal.amplitude_min %d > amplitude_max %d", s.AmplitudeMin, s.AmplitudeMax)
	case int(s.AmplitudeMax)+int(s.Baseline) > ADCMax:
		return fmt.Errorf("signal.amplitude_max + baseline exceeds %d", ADCMax)
	case s.Decay <= 0:
		return fmt.Errorf("signal.decay must be positive")
	case s.Noise < 0:
		return fmt.Errorf("signal.noise must not be negative")
	case c.Board.Listen == "":
		return fmt.Errorf("board.listen required")
	}
	return nil
}
