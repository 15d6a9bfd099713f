// Package tree reconciles the site hierarchy shown by the site manager plugins.
//
// Three independently sourced shapes (the built-in baseline tree, a user tree that may
// arrive flat with parent pointers, and a devices array) are folded into one nested
// tree with normalized alarm severities and severity icons. Every stage returns a new
// tree; inputs are never mutated.
package tree

// Node is one entry of the site hierarchy. A node with children is a group, a node
// without children is a site/device leaf.
type Node struct {
	Name             string    `json:"name"`
	Value            string    `json:"value,omitempty"`
	ID               string    `json:"id,omitempty"`
	MaxAlarmSeverity *Severity `json:"maxAlarmSeverity,omitempty"`
	Icon             string    `json:"icon,omitempty"`
	Location         *Location `json:"location,omitempty"`
	Children         []*Node   `json:"children,omitempty"`
}

// Location carries the optional placement metadata used by the map view.
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	IPAddress string   `json:"ipAddress,omitempty"`
	State     string   `json:"state,omitempty"`
	Country   string   `json:"country,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}

func (l *Location) clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	if l.Latitude != nil {
		v := *l.Latitude
		c.Latitude = &v
	}
	if l.Longitude != nil {
		v := *l.Longitude
		c.Longitude = &v
	}
	return &c
}

// IsGroup reports whether the node has at least one child.
func (n *Node) IsGroup() bool {
	return len(n.Children) > 0
}

// SelectionValue is the identifier a selector binds to: value, then id, then name.
func (n *Node) SelectionValue() string {
	switch {
	case n.Value != "":
		return n.Value
	case n.ID != "":
		return n.ID
	default:
		return n.Name
	}
}

// shallow copies the node's scalar fields. The Children slice is shared with n and must
// be replaced before the copy's children are modified.
func (n *Node) shallow() *Node {
	c := *n
	if n.MaxAlarmSeverity != nil {
		s := *n.MaxAlarmSeverity
		c.MaxAlarmSeverity = &s
	}
	c.Location = n.Location.clone()
	return &c
}

// Clone returns a deep copy of the node and its descendants.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := n.shallow()
	c.Children = CloneAll(n.Children)
	return c
}

// CloneAll deep-copies a forest. A nil input stays nil and an empty one stays empty.
func CloneAll(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, n.Clone())
	}
	return out
}

// Count returns the number of nodes in the forest.
func Count(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		total += 1 + Count(n.Children)
	}
	return total
}

// Depth returns the number of levels in the forest; an empty forest has depth 0.
func Depth(nodes []*Node) int {
	deepest := 0
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if d := 1 + Depth(n.Children); d > deepest {
			deepest = d
		}
	}
	return deepest
}
