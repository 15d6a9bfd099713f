package tree

// Normalize drops severities outside 0..5 and assigns each severity-bearing node the
// icon from the severity table, replacing any icon it had. A node left without a
// severity keeps a custom icon but loses a severity-table icon, which would otherwise
// advertise a level the node no longer has. Normalize is idempotent.
func Normalize(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		m := n.shallow()
		if m.MaxAlarmSeverity != nil && !m.MaxAlarmSeverity.Valid() {
			m.MaxAlarmSeverity = nil
		}
		m.Children = Normalize(n.Children)
		switch {
		case m.MaxAlarmSeverity != nil:
			m.Icon = iconFor(*m.MaxAlarmSeverity)
		case isSeverityIcon(m.Icon):
			m.Icon = ""
		}
		out = append(out, m)
	}
	return out
}

func isSeverityIcon(icon string) bool {
	if icon == "" {
		return false
	}
	for _, s := range severityTable {
		if s.Icon == icon {
			return true
		}
	}
	return false
}
