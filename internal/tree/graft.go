package tree

import "fmt"

// GraftDevices attaches device records to the tree and fills in alarm severities.
//
// For each node, recursively:
//   - a device whose id equals the node's id overwrites the node's severity, when the
//     device defines one;
//   - devices whose parentId equals the node's id update the child they match (by name,
//     id or value) or are appended as new leaves;
//   - a node still without severity takes the highest valid severity among those child
//     devices. An explicit severity, 0 included, is never replaced this way.
//
// Empty identifiers never match anything. A device that would be grafted beneath a node
// carrying its own id yields ErrCyclicStructure, and nesting deeper than MaxDepth yields
// ErrTreeTooDeep.
func GraftDevices(nodes []*Node, devices []Device) ([]*Node, error) {
	if len(devices) == 0 {
		return CloneAll(nodes), nil
	}
	idx := newDeviceIndex(devices)
	return idx.graftLevel(nodes, 1)
}

type deviceIndex struct {
	byID     map[string]Device
	byParent map[string][]Device
	// ids of the nodes between the root and the node being grafted, with multiplicity
	onPath map[string]int
}

func newDeviceIndex(devices []Device) *deviceIndex {
	idx := &deviceIndex{
		byID:     make(map[string]Device, len(devices)),
		byParent: make(map[string][]Device),
		onPath:   make(map[string]int),
	}
	for _, d := range devices {
		if d.ID != "" {
			if _, ok := idx.byID[d.ID]; !ok {
				idx.byID[d.ID] = d
			}
		}
		if d.ParentID != "" {
			idx.byParent[d.ParentID] = append(idx.byParent[d.ParentID], d)
		}
	}
	return idx
}

func (x *deviceIndex) graftLevel(nodes []*Node, depth int) ([]*Node, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		merged, err := x.graftNode(n, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
	}
	return out, nil
}

func (x *deviceIndex) graftNode(n *Node, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: more than %d levels", ErrTreeTooDeep, MaxDepth)
	}
	merged := n.shallow()

	var childDevices []Device
	if merged.ID != "" {
		if d, ok := x.byID[merged.ID]; ok && d.MaxAlarmSeverity != nil {
			merged.MaxAlarmSeverity = SeverityPtr(*d.MaxAlarmSeverity)
		}
		childDevices = x.byParent[merged.ID]
		x.onPath[merged.ID]++
		defer x.leave(merged.ID)
	}

	children := n.Children
	if len(childDevices) > 0 {
		children = make([]*Node, 0, len(n.Children)+len(childDevices))
		for _, c := range n.Children {
			if c != nil {
				children = append(children, c.shallow())
			}
		}
		for _, d := range childDevices {
			if existing := matchChild(children, d); existing != nil {
				updateFromDevice(existing, d)
				continue
			}
			// A new leaf whose id is already an ancestor would pull in the same
			// devices again, without end.
			if d.ID != "" && x.onPath[d.ID] > 0 {
				return nil, fmt.Errorf("%w: device %q is grafted beneath itself", ErrCyclicStructure, d.ID)
			}
			children = append(children, leafFromDevice(d))
		}

		if merged.MaxAlarmSeverity == nil {
			if highest, ok := highestSeverity(childDevices); ok {
				merged.MaxAlarmSeverity = SeverityPtr(highest)
			}
		}
	}

	grafted, err := x.graftLevel(children, depth+1)
	if err != nil {
		return nil, err
	}
	merged.Children = grafted
	return merged, nil
}

func (x *deviceIndex) leave(id string) {
	if x.onPath[id]--; x.onPath[id] == 0 {
		delete(x.onPath, id)
	}
}

func matchChild(children []*Node, d Device) *Node {
	for _, c := range children {
		switch {
		case d.Name != "" && c.Name == d.Name:
			return c
		case d.ID != "" && c.ID == d.ID:
			return c
		case c.Value != "" && (c.Value == d.ID || c.Value == d.Value):
			return c
		}
	}
	return nil
}

func updateFromDevice(c *Node, d Device) {
	if d.MaxAlarmSeverity != nil {
		c.MaxAlarmSeverity = SeverityPtr(*d.MaxAlarmSeverity)
	}
	if c.ID == "" {
		c.ID = d.ID
	}
	if c.Value == "" {
		c.Value = deviceValue(d)
	}
	if c.Location == nil {
		c.Location = d.Location.clone()
	}
}

func leafFromDevice(d Device) *Node {
	return &Node{
		Name:             d.Name,
		Value:            deviceValue(d),
		ID:               d.ID,
		MaxAlarmSeverity: copySeverity(d.MaxAlarmSeverity),
		Location:         d.Location.clone(),
	}
}

func deviceValue(d Device) string {
	if d.Value != "" {
		return d.Value
	}
	return d.ID
}

func highestSeverity(devices []Device) (Severity, bool) {
	var (
		highest Severity
		found   bool
	)
	for _, d := range devices {
		if d.MaxAlarmSeverity == nil || !d.MaxAlarmSeverity.Valid() {
			continue
		}
		if !found || *d.MaxAlarmSeverity > highest {
			highest = *d.MaxAlarmSeverity
			found = true
		}
	}
	return highest, found
}
