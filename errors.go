package sensironsen5x

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrChecksumMismatch is reported when any checksum group of a response fails to validate
var ErrChecksumMismatch = errors.New("failed to validate crc")

// TransportOp identifies which half of a bus exchange failed
type TransportOp int

const (
	OpWrite TransportOp = iota
	OpRead
)

func (op TransportOp) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	default:
		return fmt.Sprintf("TransportOp(%d)", int(op))
	}
}

// TransportError wraps an error returned by the underlying port
type TransportError struct {
	Op      TransportOp
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Command, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MessageError describes a response that passed checksum validation but is not a valid message
type MessageError struct {
	Reason string
}

func (e *MessageError) Error() string {
	return "malformed message: " + e.Reason
}

// DecodeError is returned when a response for Command could not be decoded.
// Err is either ErrChecksumMismatch (possibly wrapped) or a *MessageError.
type DecodeError struct {
	Command string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Command, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// WrongModeError is returned, before any bus activity, when an operation requires the sensor to be in Expected mode
type WrongModeError struct {
	Expected Mode
}

func (e *WrongModeError) Error() string {
	return fmt.Sprintf("operation requires sensor to be in %s mode", e.Expected)
}

func malformed(reason string) error {
	return &MessageError{Reason: reason}
}
