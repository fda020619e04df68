// Package msgs provides L1 protocol support and all message schemas.
//
// L1 protocol is communicated between the spectrometer controller and L2
// tools, and uses instrument-level primitives: properties by name,
// acquisition control and the accumulated spectrum.
//
// Producer: L1 controller
// Consumer: L2 tools
package msgs
