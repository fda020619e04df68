package acq

// Detector finds pulses in a stream of samples.
//
// A pulse starts when a sample exceeds Threshold and ends on the first
// sample below it. The peak is reported only if the pulse spent more than
// RearmThreshold samples without improving its peak; a zero
// RearmThreshold accepts every pulse.
type Detector struct {
	Threshold      uint16
	RearmThreshold uint16

	max     uint16
	falling int
	pulse   bool
}

// Push consumes one sample and returns the peak of a finished pulse.
func (d *Detector) Push(sample uint16) (peak uint16, ok bool) {
	if !d.pulse {
		if sample > d.Threshold {
			d.max, d.falling, d.pulse = sample, -1, true
		}
		return
	}
	if sample < d.Threshold {
		d.pulse = false
		if d.RearmThreshold == 0 || d.falling > int(d.RearmThreshold) {
			return d.max, true
		}
		return
	}
	if sample > d.max {
		d.max = sample
		d.falling--
	} else {
		d.falling++
	}
	return
}

// InPulse indicates a candidate pulse is being tracked.
func (d *Detector) InPulse() bool {
	return d.pulse
}

// Reset drops any pulse in progress.
func (d *Detector) Reset() {
	d.max, d.falling, d.pulse = 0, 0, false
}
