// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between the acquisition board firmware and
// the L1 controller over a USB CDC serial link.
//
// Every packet starts with a one byte tag and has a length implied by the
// tag (and the property key for GET/SET/GETRESP). There is no sequence
// number and no checksum: the device drops bytes it doesn't recognize
// until a known tag shows up, and the host flushes a half received packet
// by writing NOPs.
//
// Device side: Framer, Registry, Outbox, Sender, Device.
// Host side: Reader, Client.
