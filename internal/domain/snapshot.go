package domain

import (
	"encoding/json"
	"sort"
)

// GraphSnapshot is a verbatim, serializable copy of one strategy graph.
// Snapshots are the persistence format and the input to version hashing,
// so CanonicalJSON must be byte-stable for equal graphs.
type GraphSnapshot struct {
	Components  []Component  `json:"components"`
	Connections []Connection `json:"connections"`
}

// CanonicalJSON marshals the snapshot with components and connections sorted
// by id. Property bags are maps, which encoding/json already emits with
// sorted keys, so equal graphs produce identical bytes.
func (s GraphSnapshot) CanonicalJSON() ([]byte, error) {
	canon := GraphSnapshot{
		Components:  make([]Component, len(s.Components)),
		Connections: make([]Connection, len(s.Connections)),
	}
	copy(canon.Components, s.Components)
	copy(canon.Connections, s.Connections)

	sort.Slice(canon.Components, func(i, j int) bool {
		return canon.Components[i].ID < canon.Components[j].ID
	})
	sort.Slice(canon.Connections, func(i, j int) bool {
		return canon.Connections[i].ID < canon.Connections[j].ID
	})

	return json.Marshal(canon)
}

// CloneComponent deep-copies a component including its property bag.
func CloneComponent(c *Component) *Component {
	props := make(map[string]any, len(c.Properties))
	for k, v := range c.Properties {
		props[k] = v
	}
	clone := *c
	clone.Properties = props
	return &clone
}
