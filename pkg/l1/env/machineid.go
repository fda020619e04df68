package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine ID so it can't be traced back to the host.
const AppID = "spectrig"

// MachineID retrieves a short ID identifying the machine, empty when
// the machine has no ID.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return ""
	}
	return ShortID(id)
}

// ShortID keeps the first 12 characters of an ID.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
