package definition

import (
	"fmt"
	"time"

	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/util"
)

// DefinitionRep is a serializable representation of a process Definition
type DefinitionRep struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Organization string                 `json:"organization"`
	Description  string                 `json:"description,omitempty"`
	Status       model.ProcessStatus    `json:"status"`
	IsTemplate   bool                   `json:"isTemplate"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
	Viewers      []string               `json:"viewers,omitempty"`
	Version      int64                  `json:"version"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`

	Nodes       []*NodeRep       `json:"nodes"`
	Connections []*ConnectionRep `json:"connections"`
}

// NodeRep is a serializable representation of a process node
type NodeRep struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	Status      model.NodeStatus       `json:"status,omitempty"`

	// EstimatedDuration in minutes, zero if not set
	EstimatedDuration int `json:"estimatedDuration,omitempty"`
}

func (rep *NodeRep) estimatedDuration() time.Duration {
	if rep.EstimatedDuration <= 0 {
		return 0
	}
	return time.Duration(rep.EstimatedDuration) * time.Minute
}

// ConnectionRep is a serializable representation of a node connection
type ConnectionRep struct {
	ID        string     `json:"id"`
	Label     string     `json:"label,omitempty"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Condition *Condition `json:"condition,omitempty"`
	Priority  int        `json:"priority,omitempty"`
}

// NewDefinition creates a process Definition from a serializable definition
// representation.  Connections referencing unknown nodes are kept, the
// validator reports them.
func NewDefinition(rep *DefinitionRep) (*Definition, error) {

	if rep.ID == "" {
		return nil, fmt.Errorf("process id is required")
	}

	def := &Definition{}
	def.id = rep.ID
	def.name = rep.Name
	def.organization = rep.Organization
	def.description = rep.Description
	def.status = rep.Status
	def.isTemplate = rep.IsTemplate
	def.settings = util.DeepCopyMap(rep.Settings)
	def.viewers = util.CopyStrings(rep.Viewers)
	def.version = rep.Version
	def.createdAt = rep.CreatedAt
	def.updatedAt = rep.UpdatedAt

	if def.status == "" {
		def.status = model.ProcessDraft
	}
	if !def.status.Valid() {
		return nil, fmt.Errorf("process '%s': unsupported status [%s]", rep.ID, rep.Status)
	}

	def.nodes = make(map[string]*Node, len(rep.Nodes))
	def.connections = make(map[string]*Connection, len(rep.Connections))

	for _, nodeRep := range rep.Nodes {
		if nodeRep.ID == "" {
			return nil, fmt.Errorf("process '%s': node id is required", rep.ID)
		}
		if _, dup := def.nodes[nodeRep.ID]; dup {
			return nil, fmt.Errorf("process '%s': duplicate node id '%s'", rep.ID, nodeRep.ID)
		}

		node, err := createNode(def, nodeRep)
		if err != nil {
			return nil, err
		}
		def.nodes[node.id] = node
		def.nodeOrder = append(def.nodeOrder, node.id)
	}

	for _, connRep := range rep.Connections {
		if connRep.ID == "" {
			return nil, fmt.Errorf("process '%s': connection id is required", rep.ID)
		}
		if _, dup := def.connections[connRep.ID]; dup {
			return nil, fmt.Errorf("process '%s': duplicate connection id '%s'", rep.ID, connRep.ID)
		}

		conn := createConnection(def, connRep)
		def.connections[conn.id] = conn
		def.connOrder = append(def.connOrder, conn.id)
		def.attach(conn)
	}

	return def, nil
}

// ToRep returns the serializable representation of the definition
func (d *Definition) ToRep() *DefinitionRep {
	rep := &DefinitionRep{
		ID:           d.id,
		Name:         d.name,
		Organization: d.organization,
		Description:  d.description,
		Status:       d.status,
		IsTemplate:   d.isTemplate,
		Settings:     util.DeepCopyMap(d.settings),
		Viewers:      util.CopyStrings(d.viewers),
		Version:      d.version,
		CreatedAt:    d.createdAt,
		UpdatedAt:    d.updatedAt,
		Nodes:        make([]*NodeRep, 0, len(d.nodeOrder)),
		Connections:  make([]*ConnectionRep, 0, len(d.connOrder)),
	}

	for _, node := range d.Nodes() {
		rep.Nodes = append(rep.Nodes, node.ToRep())
	}
	for _, conn := range d.Connections() {
		rep.Connections = append(rep.Connections, conn.ToRep())
	}

	return rep
}

// ToRep returns the serializable representation of the node
func (node *Node) ToRep() *NodeRep {
	return &NodeRep{
		ID:                node.id,
		Type:              string(node.nodeType),
		Title:             node.title,
		Description:       node.description,
		Config:            ConfigToMap(node.config),
		Status:            node.status,
		EstimatedDuration: int(node.estimatedDuration / time.Minute),
	}
}

// ToRep returns the serializable representation of the connection
func (conn *Connection) ToRep() *ConnectionRep {
	return &ConnectionRep{
		ID:        conn.id,
		Label:     conn.label,
		From:      conn.fromID,
		To:        conn.toID,
		Condition: copyCondition(conn.condition),
		Priority:  conn.priority,
	}
}

func createNode(def *Definition, rep *NodeRep) (*Node, error) {

	nodeType, err := model.ToNodeType(rep.Type)
	if err != nil {
		return nil, fmt.Errorf("node '%s': %w", rep.ID, err)
	}

	cfg, err := ParseNodeConfig(nodeType, rep.Config)
	if err != nil {
		return nil, fmt.Errorf("node '%s': %w", rep.ID, err)
	}

	node := &Node{
		definition:        def,
		id:                rep.ID,
		nodeType:          nodeType,
		title:             rep.Title,
		description:       rep.Description,
		config:            cfg,
		status:            rep.Status,
		estimatedDuration: rep.estimatedDuration(),
	}
	if node.status == "" {
		node.status = model.NodeDraft
	}

	return node, nil
}

func createConnection(def *Definition, rep *ConnectionRep) *Connection {
	return &Connection{
		definition: def,
		id:         rep.ID,
		label:      rep.Label,
		fromID:     rep.From,
		toID:       rep.To,
		condition:  copyCondition(rep.Condition),
		priority:   rep.Priority,
	}
}

func copyCondition(c *Condition) *Condition {
	if c == nil {
		return nil
	}
	cp := &Condition{Results: util.CopyStrings(c.Results)}
	if c.Fields != nil {
		cp.Fields = make([]FieldMatch, len(c.Fields))
		copy(cp.Fields, c.Fields)
	}
	return cp
}
