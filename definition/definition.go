package definition

import (
	"fmt"
	"time"

	"github.com/project-flogo/recruit/model"
	"github.com/project-flogo/recruit/util"
)

// Definition is the object that describes a recruitment process.  It
// contains its attributes and its structure (nodes & connections).
type Definition struct {
	id           string
	name         string
	organization string
	description  string
	status       model.ProcessStatus
	isTemplate   bool
	settings     map[string]interface{}
	viewers      []string
	version      int64
	createdAt    time.Time
	updatedAt    time.Time

	nodes     map[string]*Node
	nodeOrder []string

	connections map[string]*Connection
	connOrder   []string
}

// ID returns the id of the definition
func (d *Definition) ID() string {
	return d.id
}

// Name returns the name of the definition
func (d *Definition) Name() string {
	return d.name
}

// Organization returns the id of the owning organization
func (d *Definition) Organization() string {
	return d.organization
}

func (d *Definition) Description() string {
	return d.description
}

// Status returns the lifecycle status of the definition
func (d *Definition) Status() model.ProcessStatus {
	return d.status
}

// IsTemplate returns true if the definition can be used as a template
func (d *Definition) IsTemplate() bool {
	return d.isTemplate
}

// Settings returns a copy of the free-form settings of the definition
func (d *Definition) Settings() map[string]interface{} {
	return util.DeepCopyMap(d.settings)
}

// Viewers returns the ids allowed to view the process
func (d *Definition) Viewers() []string {
	return util.CopyStrings(d.viewers)
}

// Version returns the edit version of the definition
func (d *Definition) Version() int64 {
	return d.version
}

func (d *Definition) CreatedAt() time.Time {
	return d.createdAt
}

func (d *Definition) UpdatedAt() time.Time {
	return d.updatedAt
}

// Node returns the node with the specified ID
func (d *Definition) Node(nodeID string) *Node {
	return d.nodes[nodeID]
}

// Nodes returns the nodes of the definition in insertion order
func (d *Definition) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.nodeOrder))
	for _, id := range d.nodeOrder {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// Connection returns the connection with the specified ID
func (d *Definition) Connection(connID string) *Connection {
	return d.connections[connID]
}

// Connections returns the connections of the definition in insertion order
func (d *Definition) Connections() []*Connection {
	conns := make([]*Connection, 0, len(d.connOrder))
	for _, id := range d.connOrder {
		conns = append(conns, d.connections[id])
	}
	return conns
}

// Outgoing returns the connections leaving the specified node
func (d *Definition) Outgoing(nodeID string) []*Connection {
	if node := d.nodes[nodeID]; node != nil {
		return node.toConns
	}
	return nil
}

// Incoming returns the connections entering the specified node
func (d *Definition) Incoming(nodeID string) []*Connection {
	if node := d.nodes[nodeID]; node != nil {
		return node.fromConns
	}
	return nil
}

// StartNodes returns the nodes a run begins at: nodes typed start and nodes
// with no incoming connection
func (d *Definition) StartNodes() []*Node {
	var nodes []*Node
	for _, node := range d.Nodes() {
		if node.nodeType == model.NodeStart || len(node.fromConns) == 0 {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// EntryNode returns the start node a run enters: the first node typed start,
// otherwise the first node with no incoming connection
func (d *Definition) EntryNode() *Node {
	starts := d.StartNodes()
	if len(starts) == 0 {
		return nil
	}
	for _, node := range starts {
		if node.nodeType == model.NodeStart {
			return node
		}
	}
	return starts[0]
}

// IsEditable returns true if the structure of the definition can change
func (d *Definition) IsEditable() bool {
	return d.status == model.ProcessDraft
}

// SetName sets the name of the definition
func (d *Definition) SetName(name string) {
	d.name = name
}

func (d *Definition) SetDescription(description string) {
	d.description = description
}

// SetSettings replaces the free-form settings of the definition
func (d *Definition) SetSettings(settings map[string]interface{}) {
	d.settings = util.DeepCopyMap(settings)
}

func (d *Definition) SetViewers(viewers []string) {
	d.viewers = util.CopyStrings(viewers)
}

func (d *Definition) SetTemplate(isTemplate bool) {
	d.isTemplate = isTemplate
}

// SetStatus sets the status of the definition, activation also activates its nodes
func (d *Definition) SetStatus(status model.ProcessStatus) {
	d.status = status
	if status == model.ProcessActive {
		for _, node := range d.nodes {
			node.status = model.NodeActive
		}
	}
}

// Touch records an edit of the definition
func (d *Definition) Touch(now time.Time) {
	d.version++
	d.updatedAt = now
}

// AddNode adds a node to the definition
func (d *Definition) AddNode(rep *NodeRep) (*Node, error) {
	if err := d.checkEditable(); err != nil {
		return nil, err
	}
	if rep.ID == "" {
		return nil, fmt.Errorf("node id is required")
	}
	if _, exists := d.nodes[rep.ID]; exists {
		return nil, model.NewConflictError("node", rep.ID, "already exists in process '%s'", d.id)
	}

	node, err := createNode(d, rep)
	if err != nil {
		return nil, err
	}
	d.nodes[node.id] = node
	d.nodeOrder = append(d.nodeOrder, node.id)

	// connections loaded before the node existed are re-attached
	for _, conn := range d.Connections() {
		if conn.fromID == node.id || conn.toID == node.id {
			d.attach(conn)
		}
	}
	return node, nil
}

// UpdateNode replaces the details of a node; the structure is unchanged
func (d *Definition) UpdateNode(nodeID string, rep *NodeRep) (*Node, error) {
	node := d.nodes[nodeID]
	if node == nil {
		return nil, model.NewNotFoundError("node", nodeID)
	}
	nodeType := node.nodeType
	if rep.Type != "" {
		t, err := model.ToNodeType(rep.Type)
		if err != nil {
			return nil, err
		}
		if t != nodeType {
			if err := d.checkEditable(); err != nil {
				return nil, err
			}
			nodeType = t
		}
	}

	cfg, err := ParseNodeConfig(nodeType, rep.Config)
	if err != nil {
		return nil, fmt.Errorf("node '%s': %w", nodeID, err)
	}

	node.nodeType = nodeType
	node.title = rep.Title
	node.description = rep.Description
	node.config = cfg
	node.estimatedDuration = rep.estimatedDuration()
	return node, nil
}

// RemoveNode removes a node and every connection touching it
func (d *Definition) RemoveNode(nodeID string) error {
	if err := d.checkEditable(); err != nil {
		return err
	}
	if _, exists := d.nodes[nodeID]; !exists {
		return model.NewNotFoundError("node", nodeID)
	}

	for _, conn := range d.Connections() {
		if conn.fromID == nodeID || conn.toID == nodeID {
			d.removeConnection(conn.id)
		}
	}

	delete(d.nodes, nodeID)
	d.nodeOrder = removeID(d.nodeOrder, nodeID)
	return nil
}

// Connect adds a connection between two nodes of the definition
func (d *Definition) Connect(rep *ConnectionRep) (*Connection, error) {
	if err := d.checkEditable(); err != nil {
		return nil, err
	}
	if rep.ID == "" {
		return nil, fmt.Errorf("connection id is required")
	}
	if _, exists := d.connections[rep.ID]; exists {
		return nil, model.NewConflictError("connection", rep.ID, "already exists in process '%s'", d.id)
	}
	if d.nodes[rep.From] == nil {
		return nil, model.NewNotFoundError("node", rep.From)
	}
	if d.nodes[rep.To] == nil {
		return nil, model.NewNotFoundError("node", rep.To)
	}

	conn := createConnection(d, rep)
	d.connections[conn.id] = conn
	d.connOrder = append(d.connOrder, conn.id)
	d.attach(conn)
	return conn, nil
}

// Disconnect removes a connection
func (d *Definition) Disconnect(connID string) error {
	if err := d.checkEditable(); err != nil {
		return err
	}
	if _, exists := d.connections[connID]; !exists {
		return model.NewNotFoundError("connection", connID)
	}
	d.removeConnection(connID)
	return nil
}

func (d *Definition) checkEditable() error {
	if !d.IsEditable() {
		return model.NewConflictError("process", d.id, "structure is frozen while %s", d.status)
	}
	return nil
}

func (d *Definition) attach(conn *Connection) {
	conn.fromNode = d.nodes[conn.fromID]
	conn.toNode = d.nodes[conn.toID]
	if conn.fromNode != nil && !containsConn(conn.fromNode.toConns, conn) {
		conn.fromNode.toConns = append(conn.fromNode.toConns, conn)
	}
	if conn.toNode != nil && !containsConn(conn.toNode.fromConns, conn) {
		conn.toNode.fromConns = append(conn.toNode.fromConns, conn)
	}
}

func (d *Definition) removeConnection(connID string) {
	conn := d.connections[connID]
	if conn.fromNode != nil {
		conn.fromNode.toConns = withoutConn(conn.fromNode.toConns, conn)
	}
	if conn.toNode != nil {
		conn.toNode.fromConns = withoutConn(conn.toNode.fromConns, conn)
	}
	delete(d.connections, connID)
	d.connOrder = removeID(d.connOrder, connID)
}

// Node is one step in a Definition
type Node struct {
	definition        *Definition
	id                string
	nodeType          model.NodeType
	title             string
	description       string
	config            NodeConfig
	status            model.NodeStatus
	estimatedDuration time.Duration

	toConns   []*Connection
	fromConns []*Connection
}

// ID gets the id of the node
func (node *Node) ID() string {
	return node.id
}

// Type gets the type of the node
func (node *Node) Type() model.NodeType {
	return node.nodeType
}

// Title gets the title of the node
func (node *Node) Title() string {
	return node.title
}

func (node *Node) Description() string {
	return node.description
}

// Config returns the type-specific configuration of the node
func (node *Node) Config() NodeConfig {
	return node.config
}

func (node *Node) Status() model.NodeStatus {
	return node.status
}

// EstimatedDuration returns the expected time spent in the node, zero if unset
func (node *Node) EstimatedDuration() time.Duration {
	return node.estimatedDuration
}

// Definition returns the definition the node belongs to
func (node *Node) Definition() *Definition {
	return node.definition
}

// ToConnections returns the outgoing connections of the node
func (node *Node) ToConnections() []*Connection {
	return node.toConns
}

// FromConnections returns the incoming connections of the node
func (node *Node) FromConnections() []*Connection {
	return node.fromConns
}

func (node *Node) String() string {
	return fmt.Sprintf("Node[%s] '%s' (%s)", node.id, node.title, node.nodeType)
}

// Connection is a directed, optionally conditioned edge between two nodes
// of the same definition
type Connection struct {
	definition *Definition
	id         string
	label      string
	fromID     string
	toID       string
	fromNode   *Node
	toNode     *Node
	condition  *Condition
	priority   int
}

// ID gets the id of the connection
func (conn *Connection) ID() string {
	return conn.id
}

func (conn *Connection) Label() string {
	return conn.label
}

// FromID returns the id of the source node
func (conn *Connection) FromID() string {
	return conn.fromID
}

// ToID returns the id of the target node
func (conn *Connection) ToID() string {
	return conn.toID
}

// FromNode returns the source node, nil if the reference is dangling
func (conn *Connection) FromNode() *Node {
	return conn.fromNode
}

// ToNode returns the target node, nil if the reference is dangling
func (conn *Connection) ToNode() *Node {
	return conn.toNode
}

// Condition returns the condition of the connection, nil if unconditioned
func (conn *Connection) Condition() *Condition {
	return conn.condition
}

// Priority is used to order connections when several match
func (conn *Connection) Priority() int {
	return conn.priority
}

func (conn *Connection) String() string {
	return fmt.Sprintf("Connection[%s]:'%s' - [from:%s, to:%s]", conn.id, conn.label, conn.fromID, conn.toID)
}

func containsConn(conns []*Connection, conn *Connection) bool {
	for _, c := range conns {
		if c == conn {
			return true
		}
	}
	return false
}

func withoutConn(conns []*Connection, conn *Connection) []*Connection {
	out := conns[:0]
	for _, c := range conns {
		if c != conn {
			out = append(out, c)
		}
	}
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
