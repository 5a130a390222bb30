package engine

import (
	"context"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
)

// CreateProcess creates a draft process from its representation.  An id is
// generated when the representation has none.
func (e *Engine) CreateProcess(ctx context.Context, rep *definition.DefinitionRep) (*definition.Definition, error) {
	rep.Status = model.ProcessDraft
	if rep.ID == "" {
		rep.ID = e.newID()
	}
	now := e.now()
	rep.CreatedAt = now
	rep.UpdatedAt = now
	rep.Version = 1
	for _, node := range rep.Nodes {
		node.Status = model.NodeDraft
	}

	def, err := definition.NewDefinition(rep)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateDefinition(ctx, def.ToRep()); err != nil {
		return nil, err
	}

	e.logger.Infof("Process[%s] '%s' created with %d nodes", def.ID(), def.Name(), len(def.Nodes()))
	return def, nil
}

// GetProcess returns the process with the specified id
func (e *Engine) GetProcess(ctx context.Context, processID string) (*definition.Definition, error) {
	return e.loadDefinition(ctx, processID)
}

// ListProcesses returns the processes of an organization
func (e *Engine) ListProcesses(ctx context.Context, org string) ([]*definition.Definition, error) {
	reps, err := e.store.ListDefinitions(ctx, org)
	if err != nil {
		return nil, err
	}
	defs := make([]*definition.Definition, 0, len(reps))
	for _, rep := range reps {
		def, err := definition.NewDefinition(rep)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// UpdateProcess applies fn to the process.  An active process is only
// updated with override set and its structure stays frozen; an archived
// process is never updated.
func (e *Engine) UpdateProcess(ctx context.Context, processID string, override bool, fn func(def *definition.Definition) error) (*definition.Definition, error) {
	return e.updateDefinition(ctx, processID, func(def *definition.Definition) error {
		switch def.Status() {
		case model.ProcessArchived:
			return model.NewConflictError("process", processID, "archived processes cannot be updated")
		case model.ProcessActive:
			if !override {
				return model.NewConflictError("process", processID, "active processes require an explicit override to be updated")
			}
		}
		return fn(def)
	})
}

// ValidateProcess validates the current graph of the process
func (e *Engine) ValidateProcess(ctx context.Context, processID string) (*definition.ValidationResult, error) {
	def, err := e.loadDefinition(ctx, processID)
	if err != nil {
		return nil, err
	}
	return definition.Validate(def), nil
}

// ActivateProcess freezes a draft process and makes it available to
// candidates.  A graph with validation issues is rejected with a
// ValidationError; the result of the validation is returned in both cases.
func (e *Engine) ActivateProcess(ctx context.Context, processID string) (*definition.ValidationResult, error) {
	var result *definition.ValidationResult

	_, err := e.updateDefinition(ctx, processID, func(def *definition.Definition) error {
		if def.Status() != model.ProcessDraft {
			return model.NewConflictError("process", processID, "cannot activate while %s", def.Status())
		}

		result = definition.Validate(def)
		if !result.IsValid {
			return &model.ValidationError{ProcessID: processID, Issues: result.Issues, Warnings: result.Warnings}
		}

		def.SetStatus(model.ProcessActive)
		return nil
	})
	if err != nil {
		return result, err
	}

	if len(result.Warnings) > 0 {
		e.logger.Infof("Process[%s] activated with warnings: %v", processID, result.Warnings)
	} else {
		e.logger.Infof("Process[%s] activated", processID)
	}
	return result, nil
}

// ArchiveProcess retires a process, its running instances are unaffected
func (e *Engine) ArchiveProcess(ctx context.Context, processID string) (*definition.Definition, error) {
	return e.updateDefinition(ctx, processID, func(def *definition.Definition) error {
		if def.Status() == model.ProcessArchived {
			return model.NewConflictError("process", processID, "already archived")
		}
		def.SetStatus(model.ProcessArchived)
		return nil
	})
}

// DeleteProcess deletes a process; a process referenced by an instance is
// archived and the linked resources of its executions are marked deleted
func (e *Engine) DeleteProcess(ctx context.Context, processID string) (*store.DeleteResult, error) {
	result, err := e.store.DeleteDefinition(ctx, processID)
	if err != nil {
		return nil, err
	}
	if result.Archived {
		e.logger.Infof("Process[%s] archived, %d linked resources marked deleted", processID, result.UnlinkedExecutions)
	} else {
		e.logger.Infof("Process[%s] deleted", processID)
	}
	return result, nil
}

func (e *Engine) updateDefinition(ctx context.Context, processID string, fn func(def *definition.Definition) error) (*definition.Definition, error) {
	var updated *definition.Definition

	_, err := e.store.UpdateDefinition(ctx, processID, func(rep *definition.DefinitionRep) (*definition.DefinitionRep, error) {
		def, err := definition.NewDefinition(rep)
		if err != nil {
			return nil, err
		}
		if err := fn(def); err != nil {
			return nil, err
		}
		def.Touch(e.now())
		updated = def
		return def.ToRep(), nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
