package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	conf, err := Parse([]byte(`
board:
  listen: ":9000"
  serial: 42
  gpio:
    bias: GPIO17
signal:
  pulse_rate: 500
  amplitude_max: 2000
`))
	require.NoError(t, err)
	require.Equal(t, ":9000", conf.Board.Listen)
	require.Equal(t, uint16(42), conf.Board.Serial)
	require.Equal(t, "GPIO17", conf.Board.GPIO.Bias)
	require.Equal(t, "", conf.Board.GPIO.Amp)
	require.Equal(t, 500.0, conf.Signal.PulseRate)
	require.Equal(t, uint16(2000), conf.Signal.AmplitudeMax)
	// untouched fields keep defaults
	require.Equal(t, Default().Signal.SampleRate, conf.Signal.SampleRate)
	require.Equal(t, uint16(100), conf.Board.Threshold)
	require.True(t, conf.Board.Verify)
}

func TestParseInvalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"syntax", "board: [1"},
		{"zero rate", "signal: {sample_rate: 0}"},
		{"negative pulses", "signal: {pulse_rate: -1}"},
		{"pulses exceed samples", "signal: {sample_rate: 10, pulse_rate: 11}"},
		{"amplitude range", "signal: {amplitude_min: 20, amplitude_max: 10}"},
		{"adc range", "signal: {amplitude_max: 4000, baseline: 200}"},
		{"decay", "signal: {decay: 0}"},
		{"noise", "signal: {noise: -0.5}"},
		{"listen", "board: {listen: ''}"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte("board:\n  serial: 7\n"), 0644))
	conf, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint16(7), conf.Board.Serial)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
