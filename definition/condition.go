package definition

import (
	"fmt"
	"strings"

	"github.com/project-flogo/core/data/coerce"
)

// MatchOp is a comparison operator of a FieldMatch
type MatchOp string

const (
	OpEq     MatchOp = "eq"
	OpNe     MatchOp = "ne"
	OpGt     MatchOp = "gt"
	OpGte    MatchOp = "gte"
	OpLt     MatchOp = "lt"
	OpLte    MatchOp = "lte"
	OpIn     MatchOp = "in"
	OpExists MatchOp = "exists"
)

// Condition is evaluated against the result and structured data of a
// completed execution.  Results is an any-of list compared case-insensitively
// (empty matches any result), every FieldMatch must hold.
type Condition struct {
	Results []string     `json:"results,omitempty"`
	Fields  []FieldMatch `json:"fields,omitempty"`
}

// FieldMatch compares one field of the execution data, nested fields are
// addressed with a dotted path
type FieldMatch struct {
	Field string      `json:"field"`
	Op    MatchOp     `json:"op"`
	Value interface{} `json:"value,omitempty"`
}

// Matches evaluates the condition, a nil condition always matches
func (c *Condition) Matches(result string, data map[string]interface{}) (bool, error) {
	if c == nil {
		return true, nil
	}

	if len(c.Results) > 0 {
		found := false
		for _, r := range c.Results {
			if strings.EqualFold(strings.TrimSpace(r), strings.TrimSpace(result)) {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	for _, fm := range c.Fields {
		ok, err := fm.matches(data)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

// Problems returns the structural problems of the condition
func (c *Condition) Problems() []string {
	if c == nil {
		return nil
	}

	var problems []string
	for _, fm := range c.Fields {
		if strings.TrimSpace(fm.Field) == "" {
			problems = append(problems, "field match without a field name")
		}
		switch fm.Op {
		case OpEq, OpNe, OpExists:
		case OpGt, OpGte, OpLt, OpLte:
			if _, err := coerce.ToFloat64(fm.Value); err != nil {
				problems = append(problems, fmt.Sprintf("field '%s': operator '%s' needs a numeric value", fm.Field, fm.Op))
			}
		case OpIn:
			if _, err := coerce.ToArray(fm.Value); err != nil {
				problems = append(problems, fmt.Sprintf("field '%s': operator 'in' needs a list value", fm.Field))
			}
		default:
			problems = append(problems, fmt.Sprintf("field '%s': unsupported operator '%s'", fm.Field, fm.Op))
		}
	}
	return problems
}

func (fm FieldMatch) matches(data map[string]interface{}) (bool, error) {
	val, exists := lookup(data, fm.Field)

	switch fm.Op {
	case OpExists:
		want := true
		if fm.Value != nil {
			b, err := coerce.ToBool(fm.Value)
			if err != nil {
				return false, err
			}
			want = b
		}
		return exists == want, nil
	case OpEq:
		return exists && equal(val, fm.Value), nil
	case OpNe:
		return !exists || !equal(val, fm.Value), nil
	case OpIn:
		if !exists {
			return false, nil
		}
		arr, err := coerce.ToArray(fm.Value)
		if err != nil {
			return false, err
		}
		for _, item := range arr {
			if equal(val, item) {
				return true, nil
			}
		}
		return false, nil
	case OpGt, OpGte, OpLt, OpLte:
		if !exists {
			return false, nil
		}
		left, err := coerce.ToFloat64(val)
		if err != nil {
			return false, fmt.Errorf("field '%s' is not numeric: %v", fm.Field, err)
		}
		right, err := coerce.ToFloat64(fm.Value)
		if err != nil {
			return false, fmt.Errorf("value for field '%s' is not numeric: %v", fm.Field, err)
		}
		switch fm.Op {
		case OpGt:
			return left > right, nil
		case OpGte:
			return left >= right, nil
		case OpLt:
			return left < right, nil
		default:
			return left <= right, nil
		}
	}

	return false, fmt.Errorf("unsupported operator '%s'", fm.Op)
}

func lookup(data map[string]interface{}, path string) (interface{}, bool) {
	if data == nil {
		return nil, false
	}

	parts := strings.Split(path, ".")
	var cur interface{} = data
	for _, part := range parts {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// equal compares numerically when both sides are numbers, otherwise as strings
func equal(a, b interface{}) bool {
	if isNumber(a) || isNumber(b) {
		fa, errA := coerce.ToFloat64(a)
		fb, errB := coerce.ToFloat64(b)
		if errA == nil && errB == nil {
			return fa == fb
		}
	}
	sa, errA := coerce.ToString(a)
	sb, errB := coerce.ToString(b)
	if errA != nil || errB != nil {
		return false
	}
	return sa == sb
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
