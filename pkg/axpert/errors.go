package axpert

import (
	"errors"
	"fmt"
)

var (
	ErrTransport      = errors.New("axpert: transport error")
	ErrTimeout        = errors.New("axpert: timeout")
	ErrMalformedFrame = errors.New("axpert: malformed frame")
	ErrUnknownCommand = errors.New("axpert: unknown command")
	ErrUnknownValue   = errors.New("axpert: unknown value")
	ErrSetFailed      = errors.New("axpert: set command not acknowledged")
	ErrNotFound       = errors.New("axpert: reading not found")
)

// SetFailedError carries the raw device response of a rejected set command.
type SetFailedError struct {
	Command  string
	Response []byte
	Err      error
}

func (e *SetFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("axpert: set %s failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("axpert: set %s not acknowledged, response %q", e.Command, e.Response)
}

func (e *SetFailedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSetFailed, e.Err}
	}
	return []error{ErrSetFailed}
}
