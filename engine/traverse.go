package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
)

// maxPassThrough bounds the chain of start and end nodes entered in one
// transition
const maxPassThrough = 64

type nodeEntry struct {
	node   *definition.Node
	result string
	data   map[string]interface{}
}

// traversal moves an instance along its graph within one transaction
type traversal struct {
	e       *Engine
	def     *definition.Definition
	tx      *store.InstanceTx
	now     time.Time
	passes  int
	created []*instance.Execution
}

func (e *Engine) newTraversal(def *definition.Definition, tx *store.InstanceTx, now time.Time) *traversal {
	return &traversal{e: e, def: def, tx: tx, now: now}
}

// advance follows the connections leaving node after exec completed.  All
// matching connections are taken, highest priority first; with none the
// instance completes and the executions still open are cancelled.
func (t *traversal) advance(node *definition.Node, exec *instance.Execution) error {
	logger := t.e.logger
	inst := t.tx.Instance

	var matched []*definition.Connection
	for _, conn := range t.def.Outgoing(node.ID()) {
		ok, err := conn.Condition().Matches(exec.Result(), exec.Data())
		if err != nil {
			logger.Warnf("Instance[%s] condition of connection '%s' not evaluated: %v", inst.ID(), conn.ID(), err)
			continue
		}
		if !ok {
			continue
		}
		if conn.ToNode() == nil {
			logger.Warnf("Instance[%s] connection '%s' targets unknown node '%s'", inst.ID(), conn.ID(), conn.ToID())
			continue
		}
		matched = append(matched, conn)
	}

	if len(matched) == 0 {
		if open := t.tx.OpenExecutions(); len(open) > 0 && logger.DebugEnabled() {
			logger.Debugf("Instance[%s] node '%s' has no matching connection, cancelling %d open executions", inst.ID(), node.ID(), len(open))
		}

		result := exec.Result()
		if cfg, ok := node.Config().(definition.EndConfig); ok && cfg.Outcome != "" {
			result = cfg.Outcome
		}
		if err := inst.Complete(model.FinalResult(result), instance.OverallScore(t.tx.Executions()), "", t.now); err != nil {
			return err
		}
		if err := cancelOpen(t.tx, t.now); err != nil {
			return err
		}
		logger.Infof("Instance[%s] completed at node '%s' with '%s'", inst.ID(), node.ID(), inst.FinalResult())
		return nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority() > matched[j].Priority()
	})

	entries := make([]nodeEntry, 0, len(matched))
	for _, conn := range matched {
		entries = append(entries, nodeEntry{node: conn.ToNode(), result: exec.Result(), data: exec.Data()})
	}
	return t.enterAll(entries)
}

// enterAll creates an execution for each entry, the first created becomes
// the current node of the instance.  Start and end nodes are passed through.
func (t *traversal) enterAll(entries []nodeEntry) error {
	inst := t.tx.Instance

	type passThrough struct {
		entry nodeEntry
		exec  *instance.Execution
	}
	var passes []passThrough

	first := true
	for _, entry := range entries {
		if open := t.tx.OpenExecution(entry.node.ID()); open != nil {
			if t.e.logger.DebugEnabled() {
				t.e.logger.Debugf("Instance[%s] node '%s' already has open execution '%s'", inst.ID(), entry.node.ID(), open.ID())
			}
			continue
		}

		exec := instance.NewExecution(t.e.newID(), inst, entry.node, assignee(entry.node, inst), t.now)
		t.tx.AddExecution(exec)
		t.created = append(t.created, exec)

		if first {
			if err := inst.Advance(entry.node.ID()); err != nil {
				return err
			}
			first = false
		}

		if entry.node.Type().PassThrough() {
			passes = append(passes, passThrough{entry: entry, exec: exec})
		}
	}

	for _, p := range passes {
		t.passes++
		if t.passes > maxPassThrough {
			return fmt.Errorf("instance '%s': too many pass-through nodes entered at '%s'", inst.ID(), p.entry.node.ID())
		}
		if inst.IsTerminal() || !p.exec.IsOpen() {
			// a sibling branch completed the instance
			if p.exec.IsOpen() {
				if err := p.exec.Cancel(t.now); err != nil {
					return err
				}
			}
			continue
		}
		if err := p.exec.Complete(p.entry.result, systemActor, nil, "", p.entry.data, t.now); err != nil {
			return err
		}
		if err := t.advance(p.entry.node, p.exec); err != nil {
			return err
		}
	}

	return nil
}

// assignee returns who an execution at node is assigned to
func assignee(node *definition.Node, inst *instance.Instance) string {
	switch cfg := node.Config().(type) {
	case definition.TodoConfig:
		if cfg.Assignee != "" {
			return cfg.Assignee
		}
	case definition.InterviewConfig:
		if len(cfg.Interviewers) > 0 {
			return cfg.Interviewers[0]
		}
	case definition.DecisionConfig:
		if len(cfg.DecisionMakers) > 0 {
			return cfg.DecisionMakers[0]
		}
	}
	return inst.RecruiterID()
}
