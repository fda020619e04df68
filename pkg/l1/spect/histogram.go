package spect

import (
	"strconv"
	"sync"
	"time"

	"github.com/robotalks/spectrig/pkg/l1/msgs"
	"github.com/robotalks/spectrig/pkg/l1/spect/histfile"
)

// Channels is the number of histogram channels, one per ADC code.
const Channels = 4096

// Histogram accumulates pulse peaks into channels while acquisition is
// running and tracks the live time.
type Histogram struct {
	lock      sync.RWMutex
	counts    []uint32
	total     uint64
	overflow  uint64
	startedAt time.Time
	since     time.Time
	live      time.Duration
	running   bool
}

// NewHistogram creates an empty Histogram.
func NewHistogram() *Histogram {
	return &Histogram{counts: make([]uint32, Channels)}
}

// Add counts peaks if running and returns how many were counted. Peaks
// beyond the last channel are not counted, only tallied in Overflow.
func (h *Histogram) Add(peaks ...uint16) int {
	h.lock.Lock()
	defer h.lock.Unlock()
	if !h.running {
		return 0
	}
	var n int
	for _, peak := range peaks {
		if int(peak) >= Channels {
			h.overflow++
			continue
		}
		h.counts[peak]++
		n++
	}
	h.total += uint64(n)
	return n
}

// Start starts accumulating, false if already running.
func (h *Histogram) Start(now time.Time) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.running {
		return false
	}
	h.running, h.since = true, now
	if h.startedAt.IsZero() {
		h.startedAt = now
	}
	return true
}

// Stop stops accumulating, false if not running.
func (h *Histogram) Stop(now time.Time) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if !h.running {
		return false
	}
	h.running = false
	h.live += now.Sub(h.since)
	return true
}

// Reset clears the counts and the live time. A running acquisition
// continues from now.
func (h *Histogram) Reset(now time.Time) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for i := range h.counts {
		h.counts[i] = 0
	}
	h.total, h.overflow, h.live = 0, 0, 0
	h.startedAt = time.Time{}
	if h.running {
		h.since, h.startedAt = now, now
	}
}

// Running tells whether the histogram is accumulating.
func (h *Histogram) Running() bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.running
}

// Total is the number of counted peaks.
func (h *Histogram) Total() uint64 {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.total
}

// Overflow is the number of peaks dropped beyond the last channel.
func (h *Histogram) Overflow() uint64 {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.overflow
}

// LiveTime is the accumulated acquisition time until now.
func (h *Histogram) LiveTime(now time.Time) time.Duration {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.liveTime(now)
}

func (h *Histogram) liveTime(now time.Time) time.Duration {
	live := h.live
	if h.running {
		live += now.Sub(h.since)
	}
	return live
}

// CPM is the rate of counts in channels at or above threshold per minute
// of live time.
func (h *Histogram) CPM(threshold uint16, now time.Time) float64 {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.cpm(threshold, h.liveTime(now))
}

func (h *Histogram) cpm(threshold uint16, live time.Duration) float64 {
	if live <= 0 {
		return 0
	}
	var n uint64
	for ch := int(threshold); ch < Channels; ch++ {
		n += uint64(h.counts[ch])
	}
	return float64(n) * 60 / live.Seconds()
}

// Snapshot captures the histogram as a Spectrum message.
func (h *Histogram) Snapshot(now time.Time, threshold uint16, withCounts bool) *msgs.Spectrum {
	h.lock.RLock()
	defer h.lock.RUnlock()
	live := h.liveTime(now)
	spect := &msgs.Spectrum{
		Total:        h.total,
		LiveSeconds:  live.Seconds(),
		Cpm:          h.cpm(threshold, live),
		CpmThreshold: uint32(threshold),
		Running:      h.running,
	}
	if !h.startedAt.IsZero() {
		spect.StartedAt = h.startedAt.UnixNano()
	}
	if withCounts {
		spect.Counts = append([]uint32(nil), h.counts...)
	}
	return spect
}

// Export captures the histogram as a text export, from the start of the
// acquisition until now.
func (h *Histogram) Export(now time.Time) *histfile.File {
	h.lock.RLock()
	defer h.lock.RUnlock()
	f := &histfile.File{
		From:   h.startedAt,
		Live:   h.liveTime(now),
		Counts: append([]uint32(nil), h.counts...),
	}
	if !f.From.IsZero() {
		f.To = now
	}
	if h.overflow > 0 {
		f.Meta = map[string]string{"overflow": strconv.FormatUint(h.overflow, 10)}
	}
	return f
}
