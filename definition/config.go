package definition

import (
	"fmt"

	"github.com/project-flogo/core/data/coerce"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/util"
)

const (
	cfgInterviewType  = "interview_type"
	cfgDuration       = "duration"
	cfgInterviewers   = "interviewers"
	cfgDueInDays      = "due_in_days"
	cfgAssignee       = "assignee"
	cfgDecisionMakers = "decision_makers"
	cfgOptions        = "options"
	cfgAssessmentType = "assessment_type"
	cfgPassingScore   = "passing_score"
	cfgOutcome        = "outcome"
)

// NodeConfig is the type-specific configuration of a node.  The set of
// implementations is closed: StartConfig, InterviewConfig, TodoConfig,
// DecisionConfig, AssessmentConfig and EndConfig.
type NodeConfig interface {
	// Type returns the node type the configuration belongs to
	Type() model.NodeType

	toMap() map[string]interface{}
}

type StartConfig struct{}

// InterviewConfig configures an interview step
type InterviewConfig struct {
	InterviewType   string
	DurationMinutes int
	Interviewers    []string
}

// TodoConfig configures a review task
type TodoConfig struct {
	DueInDays int
	Assignee  string
}

// DecisionConfig configures a decision step
type DecisionConfig struct {
	DecisionMakers []string
	Options        []string
}

// AssessmentConfig configures an assessment step
type AssessmentConfig struct {
	AssessmentType string
	PassingScore   *float64
}

type EndConfig struct {
	Outcome string
}

func (StartConfig) Type() model.NodeType      { return model.NodeStart }
func (InterviewConfig) Type() model.NodeType  { return model.NodeInterview }
func (TodoConfig) Type() model.NodeType       { return model.NodeTodo }
func (DecisionConfig) Type() model.NodeType   { return model.NodeDecision }
func (AssessmentConfig) Type() model.NodeType { return model.NodeAssessment }
func (EndConfig) Type() model.NodeType        { return model.NodeEnd }

func (c StartConfig) toMap() map[string]interface{} {
	return map[string]interface{}{}
}

func (c InterviewConfig) toMap() map[string]interface{} {
	m := map[string]interface{}{cfgInterviewType: c.InterviewType, cfgDuration: c.DurationMinutes}
	if len(c.Interviewers) > 0 {
		m[cfgInterviewers] = util.CopyStrings(c.Interviewers)
	}
	return m
}

func (c TodoConfig) toMap() map[string]interface{} {
	m := map[string]interface{}{cfgDueInDays: c.DueInDays}
	if c.Assignee != "" {
		m[cfgAssignee] = c.Assignee
	}
	return m
}

func (c DecisionConfig) toMap() map[string]interface{} {
	m := map[string]interface{}{cfgDecisionMakers: util.CopyStrings(c.DecisionMakers)}
	if len(c.Options) > 0 {
		m[cfgOptions] = util.CopyStrings(c.Options)
	}
	return m
}

func (c AssessmentConfig) toMap() map[string]interface{} {
	m := map[string]interface{}{cfgAssessmentType: c.AssessmentType}
	if c.PassingScore != nil {
		m[cfgPassingScore] = *c.PassingScore
	}
	return m
}

func (c EndConfig) toMap() map[string]interface{} {
	m := map[string]interface{}{}
	if c.Outcome != "" {
		m[cfgOutcome] = c.Outcome
	}
	return m
}

// ConfigToMap returns the map form of a node configuration
func ConfigToMap(cfg NodeConfig) map[string]interface{} {
	if cfg == nil {
		return nil
	}
	return cfg.toMap()
}

// ParseNodeConfig builds the typed configuration for a node type from its
// map form.  Missing values are left at their zero value, the validator
// reports them; values of the wrong shape are an error.
func ParseNodeConfig(nodeType model.NodeType, cfg map[string]interface{}) (NodeConfig, error) {

	switch nodeType {
	case model.NodeStart:
		return StartConfig{}, nil
	case model.NodeInterview:
		c := InterviewConfig{}
		var err error
		if c.InterviewType, err = optString(cfg, cfgInterviewType); err != nil {
			return nil, err
		}
		if c.DurationMinutes, err = optInt(cfg, cfgDuration); err != nil {
			return nil, err
		}
		if c.Interviewers, err = optStrings(cfg, cfgInterviewers); err != nil {
			return nil, err
		}
		return c, nil
	case model.NodeTodo:
		c := TodoConfig{}
		var err error
		if c.DueInDays, err = optInt(cfg, cfgDueInDays); err != nil {
			return nil, err
		}
		if c.Assignee, err = optString(cfg, cfgAssignee); err != nil {
			return nil, err
		}
		return c, nil
	case model.NodeDecision:
		c := DecisionConfig{}
		var err error
		if c.DecisionMakers, err = optStrings(cfg, cfgDecisionMakers); err != nil {
			return nil, err
		}
		if c.Options, err = optStrings(cfg, cfgOptions); err != nil {
			return nil, err
		}
		return c, nil
	case model.NodeAssessment:
		c := AssessmentConfig{}
		var err error
		if c.AssessmentType, err = optString(cfg, cfgAssessmentType); err != nil {
			return nil, err
		}
		if v, ok := cfg[cfgPassingScore]; ok && v != nil {
			score, err := coerce.ToFloat64(v)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %v", cfgPassingScore, err)
			}
			c.PassingScore = &score
		}
		return c, nil
	case model.NodeEnd:
		outcome, err := optString(cfg, cfgOutcome)
		if err != nil {
			return nil, err
		}
		return EndConfig{Outcome: outcome}, nil
	}

	return nil, fmt.Errorf("unsupported node type [%s]", nodeType)
}

func optString(cfg map[string]interface{}, key string) (string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return "", nil
	}
	s, err := coerce.ToString(v)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %v", key, err)
	}
	return s, nil
}

func optInt(cfg map[string]interface{}, key string) (int, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return 0, nil
	}
	i, err := coerce.ToInt(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return i, nil
}

func optStrings(cfg map[string]interface{}, key string) ([]string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return nil, nil
	}
	if s, ok := v.([]string); ok {
		return util.CopyStrings(s), nil
	}
	arr, err := coerce.ToArray(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", key, err)
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, err := coerce.ToString(item)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", key, err)
		}
		out = append(out, s)
	}
	return out, nil
}
