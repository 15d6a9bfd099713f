package tree

// MergeUserIntoDefault overlays user supplied values onto the baseline tree.
//
// Nodes are matched by their full name-path. A matched overlay node contributes its
// maxAlarmSeverity, id, value, icon and location, but only the ones it actually
// defines. The result always has the baseline's shape: overlay nodes without a
// baseline counterpart are dropped.
func MergeUserIntoDefault(baseline, overlay []*Node) []*Node {
	return mergeLevel(baseline, overlay)
}

func mergeLevel(baseline, overlay []*Node) []*Node {
	if baseline == nil {
		return nil
	}

	// Later siblings win when the overlay repeats a name.
	byName := make(map[string]*Node, len(overlay))
	for _, o := range overlay {
		if o != nil {
			byName[o.Name] = o
		}
	}

	out := make([]*Node, 0, len(baseline))
	for _, b := range baseline {
		if b == nil {
			continue
		}
		merged := b.shallow()
		o := byName[b.Name]

		var nextOverlay []*Node
		if o != nil {
			applyOverlay(merged, o)
			nextOverlay = o.Children
		}
		merged.Children = mergeLevel(b.Children, nextOverlay)
		out = append(out, merged)
	}
	return out
}

func applyOverlay(dst, o *Node) {
	if o.MaxAlarmSeverity != nil {
		dst.MaxAlarmSeverity = SeverityPtr(*o.MaxAlarmSeverity)
	}
	if o.ID != "" {
		dst.ID = o.ID
	}
	if o.Value != "" {
		dst.Value = o.Value
	}
	if o.Icon != "" {
		dst.Icon = o.Icon
	}
	if o.Location != nil {
		dst.Location = o.Location.clone()
	}
}
