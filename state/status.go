package state

import (
	"fmt"
	"strings"

	"github.com/project-flogo/core/data/coerce"
)

type RecordingMode string

const (
	// RecordingModeOff indicates that the recording been turned off
	RecordingModeOff RecordingMode = "off"
	// RecordingModeStep indicates that only the steps of an instance are recorded
	RecordingModeStep RecordingMode = "step"
	// RecordingModeFull indicates that both steps and snapshots are recorded
	RecordingModeFull RecordingMode = "full"
	// RecordingModeSnapshot indicates that only snapshots are recorded
	RecordingModeSnapshot RecordingMode = "snapshot"
)

// ToRecordingMode convert data to recording model const
func ToRecordingMode(mode interface{}) (RecordingMode, error) {
	m, _ := coerce.ToString(mode)
	rMode := RecordingMode(strings.ToLower(strings.TrimSpace(m)))
	switch rMode {
	case RecordingModeOff, RecordingModeFull, RecordingModeSnapshot, RecordingModeStep:
		return rMode, nil
	case "":
		return RecordingModeOff, nil
	default:
		return RecordingModeOff, fmt.Errorf("unsupported state recording mode [%s]", m)
	}
}

// RecordSteps check to see if step recording is enabled
func RecordSteps(stateRecordingMode RecordingMode) bool {
	switch stateRecordingMode {
	case RecordingModeStep, RecordingModeFull:
		return true
	default:
		return false
	}
}

// RecordSnapshot check to see if snapshot recording is enabled
func RecordSnapshot(stateRecordingMode RecordingMode) bool {
	switch stateRecordingMode {
	case RecordingModeSnapshot, RecordingModeFull:
		return true
	default:
		return false
	}
}
