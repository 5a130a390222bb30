package definition

import (
	"fmt"

	"github.com/project-flogo/recruit/model"
)

// validateGraph checks the connections of the definition: dangling
// references, presence of a start node and reachability of every node
func validateGraph(def *Definition, result *ValidationResult) {

	for _, conn := range def.Connections() {
		if conn.FromNode() == nil {
			result.issue("Connection '%s' references unknown source node '%s'", conn.ID(), conn.FromID())
		}
		if conn.ToNode() == nil {
			result.issue("Connection '%s' references unknown target node '%s'", conn.ID(), conn.ToID())
		}
		for _, problem := range conn.Condition().Problems() {
			result.issue("Connection '%s' condition: %s", conn.ID(), problem)
		}
	}

	starts := def.StartNodes()
	entry := def.EntryNode()
	if entry == nil {
		result.issue("Process has no start node")
	} else if len(starts) > 1 {
		result.warn("Process has %d start nodes, runs begin at '%s'", len(starts), displayName(entry))
	}

	reached := reachable(entry)
	for _, node := range def.Nodes() {
		if !reached[node.ID()] {
			result.issue("Node '%s' is unreachable from the start node", displayName(node))
		}
		if node.Type() == model.NodeEnd && len(node.ToConnections()) > 0 {
			result.warn("End node '%s' has outgoing connections", displayName(node))
		}
	}

	seen := make(map[string]string)
	for _, conn := range def.Connections() {
		key := fmt.Sprintf("%s>%s>%v", conn.FromID(), conn.ToID(), conn.Condition())
		if first, dup := seen[key]; dup {
			result.warn("Connections '%s' and '%s' are duplicates", first, conn.ID())
			continue
		}
		seen[key] = conn.ID()
	}
}

func reachable(entry *Node) map[string]bool {
	visited := make(map[string]bool)
	if entry == nil {
		return visited
	}
	visited[entry.ID()] = true
	queue := []*Node{entry}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, conn := range node.ToConnections() {
			next := conn.ToNode()
			if next != nil && !visited[next.ID()] {
				visited[next.ID()] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

func displayName(node *Node) string {
	if node.Title() != "" {
		return node.Title()
	}
	return node.ID()
}
