package tree

import (
	"sort"
	"strings"
)

// Walk visits every node depth-first, parents before children. path holds the names
// from the root down to and including n and is only valid during the call.
func Walk(nodes []*Node, fn func(n *Node, path []string)) {
	walk(nodes, nil, fn)
}

func walk(nodes []*Node, prefix []string, fn func(n *Node, path []string)) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		path := append(prefix, n.Name)
		fn(n, path)
		walk(n.Children, path, fn)
	}
}

// Leaf is a node without children together with its name-path.
type Leaf struct {
	Node *Node
	Path []string
}

// Leaves returns every leaf in depth-first order.
func Leaves(nodes []*Node) []Leaf {
	var out []Leaf
	Walk(nodes, func(n *Node, path []string) {
		if n.IsGroup() {
			return
		}
		out = append(out, Leaf{Node: n, Path: append([]string(nil), path...)})
	})
	return out
}

// FindByPath returns the node at the given name-path, taking the first match at each
// level, or nil.
func FindByPath(nodes []*Node, path []string) *Node {
	if len(path) == 0 {
		return nil
	}
	for _, n := range nodes {
		if n == nil || n.Name != path[0] {
			continue
		}
		if len(path) == 1 {
			return n
		}
		return FindByPath(n.Children, path[1:])
	}
	return nil
}

// MatchType classifies a search hit by depth.
type MatchType string

const (
	MatchGroup    MatchType = "group"
	MatchSubgroup MatchType = "subgroup"
	MatchNode     MatchType = "node"
)

func (m MatchType) rank() int {
	switch m {
	case MatchGroup:
		return 0
	case MatchSubgroup:
		return 1
	default:
		return 2
	}
}

type SearchResult struct {
	Node      *Node     `json:"node"`
	Path      []string  `json:"path"`
	MatchType MatchType `json:"matchType"`
}

// Search finds nodes whose name contains query, case-insensitively. Results are
// ordered groups first, then subgroups, then deeper nodes; within a class exact
// matches come before prefix matches before substring matches, then by name.
func Search(nodes []*Node, query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []SearchResult{}
	}

	results := []SearchResult{}
	Walk(nodes, func(n *Node, path []string) {
		if !strings.Contains(strings.ToLower(n.Name), q) {
			return
		}
		mt := MatchNode
		switch len(path) {
		case 1:
			mt = MatchGroup
		case 2:
			mt = MatchSubgroup
		}
		results = append(results, SearchResult{
			Node:      n,
			Path:      append([]string(nil), path...),
			MatchType: mt,
		})
	})

	quality := func(name string) int {
		name = strings.ToLower(name)
		switch {
		case name == q:
			return 0
		case strings.HasPrefix(name, q):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.MatchType.rank() != b.MatchType.rank() {
			return a.MatchType.rank() < b.MatchType.rank()
		}
		if qa, qb := quality(a.Node.Name), quality(b.Node.Name); qa != qb {
			return qa < qb
		}
		return a.Node.Name < b.Node.Name
	})
	return results
}

// AlarmCounts is the number of nodes carrying each severity.
type AlarmCounts struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
	Warning  int `json:"warning"`
	Normal   int `json:"normal"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// CountAlarms counts every node, groups included, that has a valid severity.
func CountAlarms(nodes []*Node) AlarmCounts {
	var c AlarmCounts
	Walk(nodes, func(n *Node, _ []string) {
		if n.MaxAlarmSeverity == nil || !n.MaxAlarmSeverity.Valid() {
			return
		}
		switch *n.MaxAlarmSeverity {
		case SeverityCritical:
			c.Critical++
		case SeverityMajor:
			c.Major++
		case SeverityMinor:
			c.Minor++
		case SeverityWarning:
			c.Warning++
		case SeverityNormal:
			c.Normal++
		case SeverityInfo:
			c.Info++
		}
		c.Total++
	})
	return c
}

// For returns the count for a single severity.
func (c AlarmCounts) For(s Severity) int {
	switch s {
	case SeverityCritical:
		return c.Critical
	case SeverityMajor:
		return c.Major
	case SeverityMinor:
		return c.Minor
	case SeverityWarning:
		return c.Warning
	case SeverityNormal:
		return c.Normal
	case SeverityInfo:
		return c.Info
	default:
		return 0
	}
}
