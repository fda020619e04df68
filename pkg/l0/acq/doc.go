// Package acq implements the acquisition pipeline of the board: a
// continuous transfer fills a circular buffer of samples and, on every
// half completion, the pulse detector runs over the half which has just
// been filled.
//
// Two contexts touch a Channel. The completion handler owns the detector
// and reads the levels; the protocol context only stores levels, one
// atomic write each. The completion handler is never preempted by the
// protocol context, so the engine takes no locks.
package acq
