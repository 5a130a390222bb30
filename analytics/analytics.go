// Package analytics derives read-only statistics from the executions of a
// process.  It never takes part in instance transactions.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/project-flogo/core/support/log"
	"github.com/project-flogo/recruit/definition"
	"github.com/project-flogo/recruit/instance"
	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/store"
)

// NodeStats summarizes the executions of one node
type NodeStats struct {
	NodeID   string         `json:"node_id"`
	Title    string         `json:"title,omitempty"`
	NodeType model.NodeType `json:"node_type"`

	Started   int `json:"started"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	Open      int `json:"open"`

	// AvgTimeInNode is the mean time from creation to completion of the
	// completed executions
	AvgTimeInNode time.Duration `json:"avg_time_in_node"`

	// DropOffRate is the share of started executions that were cancelled
	DropOffRate float64 `json:"drop_off_rate"`
}

// Workload is the open work assigned to one assignee
type Workload struct {
	Assignee string `json:"assignee"`
	Pending  int    `json:"pending"`
	Overdue  int    `json:"overdue"`
}

func (w *Workload) Total() int {
	return w.Pending + w.Overdue
}

// Aggregator computes statistics over a store
type Aggregator struct {
	store  store.Store
	logger log.Logger
}

func New(s store.Store) *Aggregator {
	return &Aggregator{store: s, logger: log.ChildLogger(log.RootLogger(), "analytics")}
}

// NodeStats returns the statistics of every node of the process in
// definition order.  Executions of nodes removed from the definition are
// reported after them.
func (a *Aggregator) NodeStats(ctx context.Context, processID string) ([]*NodeStats, error) {
	rep, err := a.store.GetDefinition(ctx, processID)
	if err != nil {
		return nil, err
	}
	def, err := definition.NewDefinition(rep)
	if err != nil {
		return nil, err
	}
	executions, err := a.store.ListExecutions(ctx, store.ExecutionFilter{ProcessID: processID})
	if err != nil {
		return nil, err
	}

	var stats []*NodeStats
	byNode := make(map[string]*NodeStats)
	for _, node := range def.Nodes() {
		ns := &NodeStats{NodeID: node.ID(), Title: node.Title(), NodeType: node.Type()}
		byNode[node.ID()] = ns
		stats = append(stats, ns)
	}

	totals := make(map[string]time.Duration)
	for _, exec := range executions {
		ns, ok := byNode[exec.NodeID()]
		if !ok {
			ns = &NodeStats{NodeID: exec.NodeID(), NodeType: exec.NodeType()}
			byNode[exec.NodeID()] = ns
			stats = append(stats, ns)
		}
		count(ns, exec, totals)
	}

	for _, ns := range stats {
		if ns.Completed > 0 {
			ns.AvgTimeInNode = totals[ns.NodeID] / time.Duration(ns.Completed)
		}
		if ns.Started > 0 {
			ns.DropOffRate = float64(ns.Cancelled) / float64(ns.Started)
		}
	}

	if a.logger.DebugEnabled() {
		a.logger.Debugf("Process[%s] node stats over %d executions", processID, len(executions))
	}
	return stats, nil
}

func count(ns *NodeStats, exec *instance.Execution, totals map[string]time.Duration) {
	ns.Started++
	switch exec.Status() {
	case model.ExecutionCompleted:
		ns.Completed++
		totals[ns.NodeID] += exec.TimeInNode()
	case model.ExecutionCancelled:
		ns.Cancelled++
	default:
		ns.Open++
	}
}

// Bottlenecks returns the nodes with the highest average time in node among
// completed executions, ties go to the node with more executions.  A limit
// of zero or less returns all of them.
func (a *Aggregator) Bottlenecks(ctx context.Context, processID string, limit int) ([]*NodeStats, error) {
	stats, err := a.NodeStats(ctx, processID)
	if err != nil {
		return nil, err
	}

	var ranked []*NodeStats
	for _, ns := range stats {
		if ns.Completed > 0 {
			ranked = append(ranked, ns)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AvgTimeInNode != ranked[j].AvgTimeInNode {
			return ranked[i].AvgTimeInNode > ranked[j].AvgTimeInNode
		}
		return ranked[i].Started > ranked[j].Started
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Workload returns the open executions per assignee partitioned into pending
// and overdue at now, busiest assignee first.  An empty processID covers
// every process.
func (a *Aggregator) Workload(ctx context.Context, processID string, now time.Time) ([]*Workload, error) {
	executions, err := a.store.ListExecutions(ctx, store.ExecutionFilter{ProcessID: processID, OpenOnly: true})
	if err != nil {
		return nil, err
	}

	var workloads []*Workload
	byAssignee := make(map[string]*Workload)
	for _, exec := range executions {
		w, ok := byAssignee[exec.Assignee()]
		if !ok {
			w = &Workload{Assignee: exec.Assignee()}
			byAssignee[exec.Assignee()] = w
			workloads = append(workloads, w)
		}
		if exec.IsOverdue(now) {
			w.Overdue++
		} else {
			w.Pending++
		}
	}

	sort.Slice(workloads, func(i, j int) bool {
		if workloads[i].Total() != workloads[j].Total() {
			return workloads[i].Total() > workloads[j].Total()
		}
		return workloads[i].Assignee < workloads[j].Assignee
	})
	return workloads, nil
}
