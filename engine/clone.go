package engine

import (
	"context"

	"dario.cat/mergo"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
	"github.com/project-flogo/recruit/util"
)

// CloneOptions selects what a clone carries over besides the graph
type CloneOptions struct {
	// Candidates re-creates the assignments of the source, without executions
	Candidates bool

	// Viewers copies the viewers of the source
	Viewers bool
}

// TemplateData customizes a process created from a template
type TemplateData struct {
	Name         string
	Organization string
	Description  string

	// Settings are merged over the settings of the template
	Settings map[string]interface{}

	CloneOptions
}

// CloneProcess creates a draft copy of a process with fresh ids
func (e *Engine) CloneProcess(ctx context.Context, sourceID, name string, opts CloneOptions) (*definition.Definition, error) {
	src, err := e.loadDefinition(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	cp, err := src.Clone(e.newID(), name, e.newID, e.now())
	if err != nil {
		return nil, err
	}
	return e.storeClone(ctx, src, cp, opts)
}

// CreateProcessFromTemplate creates a draft process from a template
func (e *Engine) CreateProcessFromTemplate(ctx context.Context, templateID string, data TemplateData) (*definition.Definition, error) {
	tmpl, err := e.loadDefinition(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsTemplate() {
		return nil, model.NewNotFoundErrorf("template", templateID, "process '%s' is not a template", templateID)
	}

	name := data.Name
	if name == "" {
		name = tmpl.Name()
	}
	cp, err := tmpl.Clone(e.newID(), name, e.newID, e.now())
	if err != nil {
		return nil, err
	}
	cp.SetTemplate(false)
	if data.Description != "" {
		cp.SetDescription(data.Description)
	}

	if len(data.Settings) > 0 {
		settings := cp.Settings()
		if settings == nil {
			settings = make(map[string]interface{})
		}
		if err := mergo.Merge(&settings, util.DeepCopyMap(data.Settings), mergo.WithOverride); err != nil {
			return nil, err
		}
		cp.SetSettings(settings)
	}

	rep := cp.ToRep()
	if data.Organization != "" {
		rep.Organization = data.Organization
	}
	cp, err = definition.NewDefinition(rep)
	if err != nil {
		return nil, err
	}

	return e.storeClone(ctx, tmpl, cp, data.CloneOptions)
}

func (e *Engine) storeClone(ctx context.Context, src, cp *definition.Definition, opts CloneOptions) (*definition.Definition, error) {
	if opts.Viewers {
		cp.SetViewers(src.Viewers())
	}
	cp.Touch(e.now())
	if err := e.store.CreateDefinition(ctx, cp.ToRep()); err != nil {
		return nil, err
	}

	if opts.Candidates {
		insts, err := e.store.ListInstances(ctx, store.InstanceFilter{ProcessID: src.ID()})
		if err != nil {
			return nil, err
		}
		for _, inst := range insts {
			assigned := instance.New(e.newID(), cp.ID(), inst.CandidateID(), inst.RecruiterID(), e.now())
			if err := e.store.CreateInstance(ctx, assigned); err != nil {
				return nil, err
			}
		}
		e.logger.Infof("Process[%s] cloned from '%s' with %d candidates", cp.ID(), src.ID(), len(insts))
	} else {
		e.logger.Infof("Process[%s] cloned from '%s'", cp.ID(), src.ID())
	}

	return cp, nil
}
