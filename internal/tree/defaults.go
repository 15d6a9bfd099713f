package tree

// defaultTree is the baseline hierarchy shipped with the plugins. It is built once and
// never handed out directly; DefaultTree returns copies.
var defaultTree = buildDefaultTree()

// DefaultTree returns a fresh copy of the built-in baseline tree.
func DefaultTree() []*Node {
	return CloneAll(defaultTree)
}

func buildDefaultTree() []*Node {
	site := func(name, value string, sev Severity) *Node {
		return &Node{Name: name, Value: value, MaxAlarmSeverity: SeverityPtr(sev), Icon: iconFor(sev)}
	}
	group := func(name string, children ...*Node) *Node {
		if children == nil {
			children = []*Node{}
		}
		return &Node{Name: name, Children: children}
	}

	hiveX := group("Hive X",
		site("Hive 117", "117", SeverityCritical),
		site("Hive 120", "120", SeverityCritical),
		site("Hive 114", "114", SeverityNormal),
	)
	hiveX.MaxAlarmSeverity = SeverityPtr(SeverityCritical)
	hiveX.Icon = iconFor(SeverityCritical)

	return []*Node{
		group("All Site Groups",
			group("Eastern Region"),
			group("Huzaifa",
				hiveX,
				group("Hive Y",
					site("Hive 112", "112", SeverityWarning),
					site("Hive 115", "115", SeverityCritical),
					site("Hive 118", "118", SeverityMajor),
				),
				group("Hive Z",
					site("Hive 111", "111", SeverityMinor),
					site("Hive 116", "116", SeverityMajor),
					site("Hive 119", "119", SeverityMajor),
					site("Hive 113", "113", SeverityMajor),
				),
			),
			group("Northern Region"),
			group("Southern Region"),
			group("Western Region",
				group("Washington State"),
			),
		),
	}
}
