// Package graph holds the in-memory strategy graph aggregate: components,
// directed connections, and the invariants between them. All mutators are
// synchronous and single-session; the graph is not shared across goroutines.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"strategy-graph-lab/internal/domain"
)

// Graph mutation errors.
var (
	ErrUnknownKind        = errors.New("unknown component kind")
	ErrComponentNotFound  = errors.New("component not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrInvalidConnection  = errors.New("invalid connection")
	ErrCycleDetected      = errors.New("connection would create a cycle")
	ErrCorruptSnapshot    = errors.New("corrupt graph snapshot")
)

// Graph is the aggregate of components and connections for one strategy
// under edit. It exclusively owns both; connection add/remove and component
// add/remove are the only mutators, and component removal cascades.
type Graph struct {
	id          string
	components  map[string]*domain.Component
	connections map[string]*domain.Connection

	// Adjacency indexes, maintained incrementally so that cascade delete
	// and cycle checks never scan the full edge set.
	outgoing map[string]map[string]*domain.Connection // from -> conn id -> conn
	incoming map[string]map[string]*domain.Connection // to -> conn id -> conn
	incident map[string]map[string]struct{}           // component id -> conn ids
}

// New creates an empty graph with a fresh id.
func New() *Graph {
	return &Graph{
		id:          uuid.NewString(),
		components:  make(map[string]*domain.Component),
		connections: make(map[string]*domain.Connection),
		outgoing:    make(map[string]map[string]*domain.Connection),
		incoming:    make(map[string]map[string]*domain.Connection),
		incident:    make(map[string]map[string]struct{}),
	}
}

// ID returns the graph's stable identity for this editing session.
func (g *Graph) ID() string {
	return g.id
}

// AddComponent creates a node of the given kind with kind-default properties.
// Returns ErrUnknownKind for kinds outside the closed set.
func (g *Graph) AddComponent(kind domain.ComponentKind, pos domain.Position) (*domain.Component, error) {
	if !domain.KnownKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	c := &domain.Component{
		ID:         uuid.NewString(),
		Kind:       kind,
		Properties: domain.DefaultProperties(kind),
		Position:   pos,
	}
	g.components[c.ID] = c
	g.incident[c.ID] = make(map[string]struct{})

	return domain.CloneComponent(c), nil
}

// UpdateProperties merges a partial property patch into a component. Values
// are not validated here; rule extraction interprets them per kind and falls
// back to defaults on malformed input.
func (g *Graph) UpdateProperties(id string, patch map[string]any) error {
	c, ok := g.components[id]
	if !ok {
		return fmt.Errorf("%w: component %s", ErrComponentNotFound, id)
	}
	for k, v := range patch {
		c.Properties[k] = v
	}
	return nil
}

// MoveComponent updates a component's canvas position. Cosmetic only.
func (g *Graph) MoveComponent(id string, pos domain.Position) error {
	c, ok := g.components[id]
	if !ok {
		return fmt.Errorf("%w: component %s", ErrComponentNotFound, id)
	}
	c.Position = pos
	return nil
}

// RemoveComponent deletes a node and cascade-removes every connection
// touching it. The cascade is an invariant-preserving side effect, not
// optional: no query after removal may return an edge referencing id.
func (g *Graph) RemoveComponent(id string) error {
	if _, ok := g.components[id]; !ok {
		return fmt.Errorf("%w: component %s", ErrComponentNotFound, id)
	}

	for connID := range g.incident[id] {
		g.removeConnection(connID)
	}

	delete(g.incident, id)
	delete(g.components, id)
	delete(g.outgoing, id)
	delete(g.incoming, id)
	return nil
}

// Connect adds a directed edge from -> to. Preconditions: both components
// exist, from != to, no existing edge with the same (from, to) pair, and the
// edge must not close a cycle.
func (g *Graph) Connect(from, to string, fromPort, toPort int) (*domain.Connection, error) {
	if _, ok := g.components[from]; !ok {
		return nil, fmt.Errorf("%w: source component %s does not exist", ErrInvalidConnection, from)
	}
	if _, ok := g.components[to]; !ok {
		return nil, fmt.Errorf("%w: target component %s does not exist", ErrInvalidConnection, to)
	}
	if from == to {
		return nil, fmt.Errorf("%w: self-loop on %s", ErrInvalidConnection, from)
	}
	if fromPort < 0 || toPort < 0 {
		return nil, fmt.Errorf("%w: negative port", ErrInvalidConnection)
	}
	for _, conn := range g.outgoing[from] {
		if conn.To == to {
			return nil, fmt.Errorf("%w: duplicate edge %s -> %s", ErrInvalidConnection, from, to)
		}
	}
	if g.reachable(to, from) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCycleDetected, from, to)
	}

	conn := &domain.Connection{
		ID:       uuid.NewString(),
		From:     from,
		To:       to,
		FromPort: fromPort,
		ToPort:   toPort,
	}
	g.connections[conn.ID] = conn
	if g.outgoing[from] == nil {
		g.outgoing[from] = make(map[string]*domain.Connection)
	}
	if g.incoming[to] == nil {
		g.incoming[to] = make(map[string]*domain.Connection)
	}
	g.outgoing[from][conn.ID] = conn
	g.incoming[to][conn.ID] = conn
	g.incident[from][conn.ID] = struct{}{}
	g.incident[to][conn.ID] = struct{}{}

	clone := *conn
	return &clone, nil
}

// Disconnect removes an edge and updates both endpoints' adjacency views.
func (g *Graph) Disconnect(connectionID string) error {
	if _, ok := g.connections[connectionID]; !ok {
		return fmt.Errorf("%w: connection %s", ErrConnectionNotFound, connectionID)
	}
	g.removeConnection(connectionID)
	return nil
}

// removeConnection deletes an edge from all indexes.
func (g *Graph) removeConnection(connID string) {
	conn, ok := g.connections[connID]
	if !ok {
		return
	}
	delete(g.outgoing[conn.From], connID)
	delete(g.incoming[conn.To], connID)
	delete(g.incident[conn.From], connID)
	delete(g.incident[conn.To], connID)
	delete(g.connections, connID)
}

// reachable reports whether target is reachable from start over directed
// edges. Used for the cycle precondition: adding from -> to is rejected if
// from is already reachable from to. Plain DFS; graphs are tens of nodes.
func (g *Graph) reachable(start, target string) bool {
	if start == target {
		return true
	}
	visited := map[string]struct{}{start: {}}
	stack := []string{start}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, conn := range g.outgoing[node] {
			if conn.To == target {
				return true
			}
			if _, seen := visited[conn.To]; !seen {
				visited[conn.To] = struct{}{}
				stack = append(stack, conn.To)
			}
		}
	}
	return false
}

// Component returns a copy of the component with the given id.
func (g *Graph) Component(id string) (*domain.Component, error) {
	c, ok := g.components[id]
	if !ok {
		return nil, fmt.Errorf("%w: component %s", ErrComponentNotFound, id)
	}
	return domain.CloneComponent(c), nil
}

// Components returns copies of all components sorted by id.
func (g *Graph) Components() []*domain.Component {
	out := make([]*domain.Component, 0, len(g.components))
	for _, c := range g.components {
		out = append(out, domain.CloneComponent(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Connections returns copies of all connections sorted by id.
func (g *Graph) Connections() []*domain.Connection {
	out := make([]*domain.Connection, 0, len(g.connections))
	for _, conn := range g.connections {
		clone := *conn
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Outgoing returns copies of edges leaving the component, sorted by id.
func (g *Graph) Outgoing(componentID string) []*domain.Connection {
	return sortedConns(g.outgoing[componentID])
}

// Incoming returns copies of edges entering the component, sorted by id.
func (g *Graph) Incoming(componentID string) []*domain.Connection {
	return sortedConns(g.incoming[componentID])
}

// Degree returns the number of edges touching the component in either
// direction.
func (g *Graph) Degree(componentID string) int {
	return len(g.incident[componentID])
}

// ComponentCount returns the number of components.
func (g *Graph) ComponentCount() int {
	return len(g.components)
}

// ConnectionCount returns the number of connections.
func (g *Graph) ConnectionCount() int {
	return len(g.connections)
}

func sortedConns(m map[string]*domain.Connection) []*domain.Connection {
	out := make([]*domain.Connection, 0, len(m))
	for _, conn := range m {
		clone := *conn
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
