package definition

import (
	"fmt"
	"strings"

	"github.com/project-flogo/recruit/model"
)

const (
	MinInterviewMinutes = 15
	MaxInterviewMinutes = 480
	MinTodoDueDays      = 1
	MaxTodoDueDays      = 30
)

// ValidationResult is the outcome of validating a definition before activation
type ValidationResult struct {
	IsValid    bool                   `json:"is_valid"`
	Issues     []string               `json:"issues"`
	Warnings   []string               `json:"warnings"`
	TotalNodes int                    `json:"total_nodes"`
	NodeTypes  map[model.NodeType]int `json:"node_types"`
}

func (r *ValidationResult) issue(format string, args ...interface{}) {
	r.Issues = append(r.Issues, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the configuration completeness of every node and the
// shape of the connection graph.  Only a result without issues allows
// the definition to be activated; warnings never block.
func Validate(def *Definition) *ValidationResult {

	result := &ValidationResult{
		Issues:    []string{},
		Warnings:  []string{},
		NodeTypes: make(map[model.NodeType]int),
	}

	nodes := def.Nodes()
	result.TotalNodes = len(nodes)

	if len(nodes) == 0 {
		result.issue("Process has no nodes")
		return result
	}

	for _, node := range nodes {
		result.NodeTypes[node.Type()]++
		validateNode(node, result)
	}

	if result.NodeTypes[model.NodeInterview] == 0 && result.NodeTypes[model.NodeAssessment] == 0 {
		result.warn("Process has no interview or assessment steps")
	}

	validateGraph(def, result)

	result.IsValid = len(result.Issues) == 0
	return result
}

func validateNode(node *Node, result *ValidationResult) {

	name := node.Title()
	if strings.TrimSpace(name) == "" {
		name = node.ID()
		result.issue("Node '%s' requires a title", node.ID())
	}

	switch cfg := node.Config().(type) {
	case StartConfig, EndConfig:
	case InterviewConfig:
		if strings.TrimSpace(cfg.InterviewType) == "" {
			result.issue("Interview node '%s' requires an interview type", name)
		}
		if cfg.DurationMinutes < MinInterviewMinutes || cfg.DurationMinutes > MaxInterviewMinutes {
			result.issue("Interview node '%s' duration must be between %d and %d minutes", name, MinInterviewMinutes, MaxInterviewMinutes)
		}
	case TodoConfig:
		if cfg.DueInDays < MinTodoDueDays || cfg.DueInDays > MaxTodoDueDays {
			result.issue("Todo node '%s' due in days must be between %d and %d", name, MinTodoDueDays, MaxTodoDueDays)
		}
	case DecisionConfig:
		if len(nonEmpty(cfg.DecisionMakers)) == 0 {
			result.issue("Decision node '%s' requires at least one decision maker", name)
		}
	case AssessmentConfig:
		if strings.TrimSpace(cfg.AssessmentType) == "" {
			result.warn("Assessment node '%s' has no assessment type", name)
		}
	default:
		result.issue("Node '%s' has an unsupported configuration", name)
	}
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
