package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady indicates the client reader is not running.
	ErrNotReady = errors.New("not ready")
	// ErrNoReply indicates no reply received from device in time.
	ErrNoReply = errors.New("no reply")
)

// CommandError wraps the code of an ERROR reply.
type CommandError struct {
	Code ErrorCode
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command error %d: %v", byte(e.Code), e.Code)
}
