package boot

// UpdateMagic in the marker word requests update mode on the next boot.
const UpdateMagic uint32 = 0xdeadcafe

// AppCtl outcomes.
const (
	AppCtlContinue Outcome = 0
	AppCtlFlash    Outcome = 1
)

// AppCtl checks the marker left by the application. The marker is
// consumed, so a reset during update mode boots normally.
type AppCtl struct {
	Marker Word
}

// Check returns AppCtlFlash if an update was requested.
func (a *AppCtl) Check() Outcome {
	if a.Marker.Load() != UpdateMagic {
		return AppCtlContinue
	}
	a.Marker.Store(0)
	return AppCtlFlash
}

// RequestUpdate is called by the application to reboot into update mode.
// reset is not expected to return.
func RequestUpdate(marker Word, reset func()) {
	marker.Store(UpdateMagic)
	reset()
}
