package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalResult(t *testing.T) {
	assert.Equal(t, ResultHired, FinalResult("pass"))
	assert.Equal(t, ResultHired, FinalResult("Approved"))
	assert.Equal(t, ResultRejected, FinalResult("fail"))
	assert.Equal(t, ResultRejected, FinalResult(" rejected "))
	assert.Equal(t, "on_hold_for_budget", FinalResult("on_hold_for_budget"))
	assert.Equal(t, "", FinalResult(""))
}

func TestInstanceStatusTerminal(t *testing.T) {
	assert.False(t, InstanceNotStarted.IsTerminal())
	assert.False(t, InstanceInProgress.IsTerminal())
	assert.False(t, InstanceOnHold.IsTerminal())
	assert.True(t, InstanceCompleted.IsTerminal())
	assert.True(t, InstanceFailed.IsTerminal())
	assert.True(t, InstanceWithdrawn.IsTerminal())
	assert.False(t, InstanceStatus("paused").Valid())
}

func TestExecutionStatusOpen(t *testing.T) {
	assert.True(t, ExecutionPending.IsOpen())
	assert.True(t, ExecutionInProgress.IsOpen())
	assert.False(t, ExecutionCompleted.IsOpen())
	assert.False(t, ExecutionCancelled.IsOpen())
}

func TestToNodeType(t *testing.T) {
	nt, err := ToNodeType("Interview")
	assert.Nil(t, err)
	assert.Equal(t, NodeInterview, nt)

	_, err = ToNodeType("webhook")
	assert.NotNil(t, err)

	assert.True(t, NodeStart.PassThrough())
	assert.True(t, NodeEnd.PassThrough())
	assert.False(t, NodeDecision.PassThrough())
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("loading: %w", NewNotFoundError("instance", "i1"))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
	assert.Equal(t, "loading: instance 'i1' not found", err.Error())

	err = NewConflictError("instance", "i1", "already terminal (%s)", InstanceCompleted)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "already terminal")

	err = &ValidationError{ProcessID: "p1", Issues: []string{"a", "b"}}
	assert.True(t, IsValidation(err))
	assert.Equal(t, "process 'p1' failed validation: a; b", err.Error())
}
