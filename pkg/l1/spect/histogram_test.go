package spect

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/spectrig/pkg/l1/spect/histfile"
)

func TestHistogram(t *testing.T) {
	t0 := time.Unix(1000, 0)
	h := NewHistogram()
	require.Zero(t, h.Add(10), "not running")

	require.True(t, h.Start(t0))
	require.False(t, h.Start(t0))
	require.Equal(t, 2, h.Add(10, 30, 5000, 16383))
	require.Equal(t, uint64(2), h.Total())
	require.Equal(t, uint64(2), h.Overflow())
	require.Equal(t, 30*time.Second, h.LiveTime(t0.Add(30*time.Second)))

	require.True(t, h.Stop(t0.Add(30*time.Second)))
	require.False(t, h.Stop(t0.Add(40*time.Second)))
	require.Zero(t, h.Add(10))
	require.Equal(t, 30*time.Second, h.LiveTime(t0.Add(time.Hour)))

	// one count at or above channel 20 in half a minute
	require.Equal(t, 2.0, h.CPM(20, t0.Add(time.Hour)))
	require.Equal(t, 4.0, h.CPM(0, t0.Add(time.Hour)))

	spect := h.Snapshot(t0.Add(time.Hour), 20, true)
	require.Len(t, spect.Counts, Channels)
	require.Equal(t, uint32(1), spect.Counts[10])
	require.Equal(t, uint32(1), spect.Counts[30])
	require.Zero(t, spect.Counts[Channels-1])
	require.Equal(t, uint64(2), spect.Total)
	require.Equal(t, 30.0, spect.LiveSeconds)
	require.Equal(t, t0.UnixNano(), spect.StartedAt)
	require.Equal(t, uint32(20), spect.CpmThreshold)
	require.False(t, spect.Running)

	require.Nil(t, h.Snapshot(t0, 0, false).Counts)
}

func TestHistogramResetWhileRunning(t *testing.T) {
	t0 := time.Unix(1000, 0)
	h := NewHistogram()
	h.Start(t0)
	h.Add(100, Channels)
	h.Reset(t0.Add(time.Minute))
	require.Zero(t, h.Total())
	require.Zero(t, h.Overflow())
	require.True(t, h.Running())
	require.Equal(t, time.Second, h.LiveTime(t0.Add(time.Minute+time.Second)))
	spect := h.Snapshot(t0.Add(time.Minute), 0, true)
	require.Equal(t, t0.Add(time.Minute).UnixNano(), spect.StartedAt)
	require.Zero(t, spect.Cpm)

	h.Stop(t0.Add(2 * time.Minute))
	h.Reset(t0.Add(3 * time.Minute))
	require.Zero(t, h.Snapshot(t0, 0, false).StartedAt)
}

func TestHistogramExport(t *testing.T) {
	t0 := time.Unix(1000, 0)
	h := NewHistogram()
	f := h.Export(t0)
	require.True(t, f.From.IsZero())
	require.Len(t, f.Counts, Channels)
	require.Nil(t, f.Meta)

	h.Start(t0)
	h.Add(25, 25, 4000, 9000)
	h.Stop(t0.Add(30 * time.Second))
	f = h.Export(t0.Add(time.Minute))
	require.Equal(t, t0, f.From)
	require.Equal(t, t0.Add(time.Minute), f.To)
	require.Equal(t, 30*time.Second, f.Live)
	require.Equal(t, "1", f.Meta["overflow"])

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	read, err := histfile.Read(&buf)
	require.NoError(t, err)
	require.Equal(t, f.Counts, read.Counts)
	require.Equal(t, uint64(3), read.Total())
	cpm, err := read.CPM(20)
	require.NoError(t, err)
	require.Equal(t, h.CPM(20, t0.Add(time.Minute)), cpm)
}
