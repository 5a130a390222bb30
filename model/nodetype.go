package model

import (
	"fmt"
	"strings"
)

// NodeType identifies the kind of step a node represents
type NodeType string

const (
	NodeStart      NodeType = "start"
	NodeInterview  NodeType = "interview"
	NodeTodo       NodeType = "todo"
	NodeDecision   NodeType = "decision"
	NodeAssessment NodeType = "assessment"
	NodeEnd        NodeType = "end"
)

// NodeTypes lists every node type in display order
var NodeTypes = []NodeType{NodeStart, NodeInterview, NodeTodo, NodeDecision, NodeAssessment, NodeEnd}

// ToNodeType converts a string to a NodeType
func ToNodeType(s string) (NodeType, error) {
	t := NodeType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case NodeStart, NodeInterview, NodeTodo, NodeDecision, NodeAssessment, NodeEnd:
		return t, nil
	}
	return "", fmt.Errorf("unsupported node type [%s]", s)
}

// PassThrough returns true for node types that complete as soon as they are entered
func (t NodeType) PassThrough() bool {
	return t == NodeStart || t == NodeEnd
}
