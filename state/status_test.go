package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRecordingMode(t *testing.T) {
	m, err := ToRecordingMode("OFF")
	assert.Nil(t, err)
	assert.Equal(t, RecordingModeOff, m)
	m, err = ToRecordingMode("Full")
	assert.Nil(t, err)
	assert.Equal(t, RecordingModeFull, m)
	m, err = ToRecordingMode("")
	assert.Nil(t, err)
	assert.Equal(t, RecordingModeOff, m)
	_, err = ToRecordingMode("debugger")
	assert.NotNil(t, err)
}

func TestRecordFlags(t *testing.T) {
	assert.False(t, RecordSteps(RecordingModeOff))
	assert.False(t, RecordSnapshot(RecordingModeOff))
	assert.True(t, RecordSteps(RecordingModeStep))
	assert.False(t, RecordSnapshot(RecordingModeStep))
	assert.False(t, RecordSteps(RecordingModeSnapshot))
	assert.True(t, RecordSnapshot(RecordingModeSnapshot))
	assert.True(t, RecordSteps(RecordingModeFull))
	assert.True(t, RecordSnapshot(RecordingModeFull))
}
