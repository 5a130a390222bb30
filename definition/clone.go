package definition

import (
	"time"

	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/util"
)

// Clone creates a structurally identical draft copy of the definition with
// fresh identities.  The copy shares no state with the source.
func (d *Definition) Clone(id, name string, newID util.IDGenerator, now time.Time) (*Definition, error) {

	cp := &Definition{
		id:           id,
		name:         name,
		organization: d.organization,
		description:  d.description,
		status:       model.ProcessDraft,
		settings:     util.DeepCopyMap(d.settings),
		createdAt:    now,
		updatedAt:    now,
		nodes:        make(map[string]*Node, len(d.nodes)),
		connections:  make(map[string]*Connection, len(d.connections)),
	}

	idMap := make(map[string]string, len(d.nodes))

	for _, node := range d.Nodes() {
		rep := node.ToRep()
		rep.ID = newID()
		rep.Status = model.NodeDraft
		idMap[node.id] = rep.ID

		nodeCp, err := createNode(cp, rep)
		if err != nil {
			return nil, err
		}
		cp.nodes[nodeCp.id] = nodeCp
		cp.nodeOrder = append(cp.nodeOrder, nodeCp.id)
	}

	for _, conn := range d.Connections() {
		rep := conn.ToRep()
		rep.ID = newID()
		if mapped, ok := idMap[rep.From]; ok {
			rep.From = mapped
		}
		if mapped, ok := idMap[rep.To]; ok {
			rep.To = mapped
		}

		connCp := createConnection(cp, rep)
		cp.connections[connCp.id] = connCp
		cp.connOrder = append(cp.connOrder, connCp.id)
		cp.attach(connCp)
	}

	return cp, nil
}
