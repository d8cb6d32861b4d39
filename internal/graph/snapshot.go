package graph

import (
	"fmt"

	"strategy-graph-lab/internal/domain"
)

// Snapshot produces a deep, sorted copy of the graph suitable for
// persistence and version hashing.
func (g *Graph) Snapshot() domain.GraphSnapshot {
	snap := domain.GraphSnapshot{
		Components:  make([]domain.Component, 0, len(g.components)),
		Connections: make([]domain.Connection, 0, len(g.connections)),
	}
	for _, c := range g.Components() {
		snap.Components = append(snap.Components, *c)
	}
	for _, conn := range g.Connections() {
		snap.Connections = append(snap.Connections, *conn)
	}
	return snap
}

// FromSnapshot rebuilds a graph from a persisted snapshot, restoring
// components and connections verbatim. The snapshot is re-checked for
// referential integrity; corrupt snapshots are rejected rather than
// partially loaded.
func FromSnapshot(snap domain.GraphSnapshot) (*Graph, error) {
	g := New()

	for i := range snap.Components {
		c := snap.Components[i]
		if c.ID == "" {
			return nil, fmt.Errorf("%w: component with empty id", ErrCorruptSnapshot)
		}
		if !domain.KnownKind(c.Kind) {
			return nil, fmt.Errorf("%w: component %s has unknown kind %q", ErrCorruptSnapshot, c.ID, c.Kind)
		}
		if _, exists := g.components[c.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate component id %s", ErrCorruptSnapshot, c.ID)
		}
		if c.Properties == nil {
			c.Properties = domain.DefaultProperties(c.Kind)
		}
		g.components[c.ID] = domain.CloneComponent(&c)
		g.incident[c.ID] = make(map[string]struct{})
	}

	for i := range snap.Connections {
		conn := snap.Connections[i]
		if conn.ID == "" {
			return nil, fmt.Errorf("%w: connection with empty id", ErrCorruptSnapshot)
		}
		if _, exists := g.connections[conn.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate connection id %s", ErrCorruptSnapshot, conn.ID)
		}
		if _, ok := g.components[conn.From]; !ok {
			return nil, fmt.Errorf("%w: connection %s references missing component %s", ErrCorruptSnapshot, conn.ID, conn.From)
		}
		if _, ok := g.components[conn.To]; !ok {
			return nil, fmt.Errorf("%w: connection %s references missing component %s", ErrCorruptSnapshot, conn.ID, conn.To)
		}
		if conn.From == conn.To {
			return nil, fmt.Errorf("%w: connection %s is a self-loop", ErrCorruptSnapshot, conn.ID)
		}
		for _, existing := range g.outgoing[conn.From] {
			if existing.To == conn.To {
				return nil, fmt.Errorf("%w: duplicate edge %s -> %s", ErrCorruptSnapshot, conn.From, conn.To)
			}
		}
		if g.reachable(conn.To, conn.From) {
			return nil, fmt.Errorf("%w: connection %s closes a cycle", ErrCorruptSnapshot, conn.ID)
		}

		clone := conn
		g.connections[clone.ID] = &clone
		if g.outgoing[clone.From] == nil {
			g.outgoing[clone.From] = make(map[string]*domain.Connection)
		}
		if g.incoming[clone.To] == nil {
			g.incoming[clone.To] = make(map[string]*domain.Connection)
		}
		g.outgoing[clone.From][clone.ID] = &clone
		g.incoming[clone.To][clone.ID] = &clone
		g.incident[clone.From][clone.ID] = struct{}{}
		g.incident[clone.To][clone.ID] = struct{}{}
	}

	return g, nil
}
