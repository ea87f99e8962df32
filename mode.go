package sensironsen5x

import "fmt"

// Mode is the operating mode of the sensor
type Mode int

const (
	// Idle is the mode after power-up, reset, or stopping measurement
	Idle Mode = iota
	// Measuring is entered after measurement has been started successfully
	Measuring
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Measuring:
		return "measuring"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) require(expected Mode) error {
	if m != expected {
		return &WrongModeError{Expected: expected}
	}
	return nil
}

// ParticulateMode records whether measurement was started with the particulate matter sensor enabled
type ParticulateMode int

const (
	ParticulatesEnabled ParticulateMode = iota
	ParticulatesDisabled
)

func (p ParticulateMode) String() string {
	switch p {
	case ParticulatesEnabled:
		return "enabled"
	case ParticulatesDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("ParticulateMode(%d)", int(p))
	}
}
