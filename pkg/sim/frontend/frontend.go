// Package frontend simulates the analog front end and the ADC transfer
// feeding the acquisition engine.
package frontend

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/robotalks/spectrig/pkg/l0/acq"
	"github.com/robotalks/spectrig/pkg/l0/hw"
	"github.com/robotalks/spectrig/pkg/sim/config"
)

// Generator produces detector samples: pulses with a one sample rise and
// an exponential tail, arriving at random, over a noisy baseline.
type Generator struct {
	Signal config.Signal
	// Gates must all be enabled for pulses to reach the converter, e.g.
	// the detector bias and the amplifier.
	Gates []*hw.Switch

	rnd     *rand.Rand
	tail    float64
	pending float64
}

// NewGenerator creates a Generator.
func NewGenerator(s config.Signal, gates ...*hw.Switch) *Generator {
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{Signal: s, Gates: gates, rnd: rand.New(rand.NewSource(seed))}
}

func (g *Generator) open() bool {
	for _, gate := range g.Gates {
		if !gate.IsEnabled() {
			return false
		}
	}
	return true
}

func (g *Generator) amplitude() float64 {
	lo, hi := float64(g.Signal.AmplitudeMin), float64(g.Signal.AmplitudeMax)
	return lo + g.rnd.Float64()*(hi-lo)
}

// Fill writes the next len(dst) samples.
func (g *Generator) Fill(dst []uint16) {
	s := &g.Signal
	prob := s.PulseRate / float64(s.SampleRate)
	decay := math.Exp(-1 / s.Decay)
	open := g.open()
	for i := range dst {
		switch {
		case g.pending > 0:
			g.tail += g.pending
			g.pending = 0
		case open && g.rnd.Float64() < prob:
			g.pending = g.amplitude()
		}
		v := float64(s.Baseline) + g.tail + g.pending/2
		if s.Noise > 0 {
			v += g.rnd.NormFloat64() * s.Noise
		}
		dst[i] = clamp(v)
		g.tail *= decay
	}
}

func clamp(v float64) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= config.ADCMax:
		return config.ADCMax
	}
	return uint16(math.Round(v))
}

// Transfer implements acq.Transfer in real time: every half buffer period
// the next half is generated and the completion handler called.
type Transfer struct {
	Gen        *Generator
	SampleRate int

	dst  []uint16
	lock sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTransfer creates a Transfer.
func NewTransfer(gen *Generator) *Transfer {
	return &Transfer{Gen: gen, SampleRate: gen.Signal.SampleRate}
}

// Setup implements acq.Transfer.
func (t *Transfer) Setup(dst []uint16) {
	t.lock.Lock()
	t.dst = dst
	t.lock.Unlock()
}

// Enable implements acq.Transfer.
func (t *Transfer) Enable(isr func(acq.Half)) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.stop != nil {
		return
	}
	t.stop, t.done = make(chan struct{}), make(chan struct{})
	go t.run(isr, t.dst, t.stop, t.done)
}

// Disable implements acq.Transfer. It waits for an executing handler.
func (t *Transfer) Disable() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.stop, t.done = nil, nil
}

// HalfPeriod is the time to sample half of n samples.
func (t *Transfer) HalfPeriod(n int) time.Duration {
	period := time.Duration(n/2) * time.Second / time.Duration(t.SampleRate)
	if period <= 0 {
		period = time.Millisecond
	}
	return period
}

func (t *Transfer) run(isr func(acq.Half), dst []uint16, stop, done chan struct{}) {
	defer close(done)
	half := len(dst) / 2
	ticker := time.NewTicker(t.HalfPeriod(len(dst)))
	defer ticker.Stop()
	h := acq.FirstHalf
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		if h == acq.FirstHalf {
			t.Gen.Fill(dst[:half])
		} else {
			t.Gen.Fill(dst[half:])
		}
		isr(h)
		h ^= 1
	}
}
