package store

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
)

// Records are kept as JSON by the persistent stores; the in-process store
// uses the same encoding to hand out independent copies.

func EncodeDefinition(rep *definition.DefinitionRep) ([]byte, error) {
	b, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("encode process '%s': %w", rep.ID, err)
	}
	return b, nil
}

func DecodeDefinition(b []byte) (*definition.DefinitionRep, error) {
	rep := &definition.DefinitionRep{}
	if err := json.Unmarshal(b, rep); err != nil {
		return nil, fmt.Errorf("decode process: %w", err)
	}
	return rep, nil
}

// CopyDefinition returns an independent copy of a definition rep
func CopyDefinition(rep *definition.DefinitionRep) (*definition.DefinitionRep, error) {
	b, err := EncodeDefinition(rep)
	if err != nil {
		return nil, err
	}
	return DecodeDefinition(b)
}

func EncodeInstance(inst *instance.Instance) ([]byte, error) {
	b, err := json.Marshal(inst)
	if err != nil {
		return nil, fmt.Errorf("encode instance '%s': %w", inst.ID(), err)
	}
	return b, nil
}

func DecodeInstance(b []byte) (*instance.Instance, error) {
	inst := &instance.Instance{}
	if err := json.Unmarshal(b, inst); err != nil {
		return nil, fmt.Errorf("decode instance: %w", err)
	}
	return inst, nil
}

func EncodeExecution(exec *instance.Execution) ([]byte, error) {
	b, err := json.Marshal(exec)
	if err != nil {
		return nil, fmt.Errorf("encode execution '%s': %w", exec.ID(), err)
	}
	return b, nil
}

func DecodeExecution(b []byte) (*instance.Execution, error) {
	exec := &instance.Execution{}
	if err := json.Unmarshal(b, exec); err != nil {
		return nil, fmt.Errorf("decode execution: %w", err)
	}
	return exec, nil
}
