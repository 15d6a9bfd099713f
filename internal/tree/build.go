package tree

import (
	"errors"
	"fmt"
)

// MaxDepth bounds the nesting BuildTree will produce.
const MaxDepth = 512

var (
	ErrCyclicStructure = errors.New("cyclic parent references")
	ErrTreeTooDeep     = errors.New("tree too deep")
)

// BuildTree nests a flat list of records using their parentId links.
//
// When no record carries a parentId the input is taken to be nested already and is
// returned as is. Records without a parentId (or with a null one) become roots;
// children keep their relative input order. Records whose parent does not exist are
// dropped. A record that would become its own ancestor yields ErrCyclicStructure.
func BuildTree(records []Record) ([]*Node, error) {
	if len(records) == 0 {
		return []*Node{}, nil
	}

	flat := false
	for _, r := range records {
		if r.ParentID.Present {
			flat = true
			break
		}
	}
	if !flat {
		return NodesFromRecords(records), nil
	}

	b := &flatBuilder{
		records:  records,
		children: make(map[string][]int),
		placed:   make([]bool, len(records)),
		onPath:   make(map[string]bool),
	}

	var roots []int
	for i, r := range records {
		if r.ParentID.Value == nil {
			roots = append(roots, i)
			continue
		}
		parent := *r.ParentID.Value
		b.children[parent] = append(b.children[parent], i)
	}

	out := make([]*Node, 0, len(roots))
	for _, i := range roots {
		n, err := b.build(i, 1)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}

	if err := b.checkUnplaced(); err != nil {
		return nil, err
	}
	return out, nil
}

type flatBuilder struct {
	records  []Record
	children map[string][]int
	placed   []bool
	onPath   map[string]bool
}

func (b *flatBuilder) build(i, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: more than %d levels", ErrTreeTooDeep, MaxDepth)
	}

	r := b.records[i]
	b.placed[i] = true
	n := flatNode(r)

	// Only an identified record can be referenced as a parent.
	if r.ID == "" {
		return n, nil
	}
	if b.onPath[r.ID] {
		return nil, fmt.Errorf("%w: record %q is its own ancestor", ErrCyclicStructure, r.ID)
	}
	b.onPath[r.ID] = true
	defer delete(b.onPath, r.ID)

	for _, ci := range b.children[r.ID] {
		child, err := b.build(ci, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// checkUnplaced reports a cycle among records that were never reached from a root.
// Records that are unreachable only because their parent is missing are orphans and
// are ignored.
func (b *flatBuilder) checkUnplaced() error {
	byID := make(map[string]int, len(b.records))
	for i, r := range b.records {
		if r.ID == "" {
			continue
		}
		if _, ok := byID[r.ID]; !ok {
			byID[r.ID] = i
		}
	}

	for i := range b.records {
		if b.placed[i] {
			continue
		}
		seen := make(map[string]bool)
		cur := i
		for {
			ref := b.records[cur].ParentID.Value
			if ref == nil {
				break
			}
			if seen[*ref] {
				return fmt.Errorf("%w: parent chain of %q loops through %q", ErrCyclicStructure, b.records[i].Name, *ref)
			}
			seen[*ref] = true
			next, ok := byID[*ref]
			if !ok {
				break
			}
			cur = next
		}
	}
	return nil
}

func flatNode(r Record) *Node {
	value := r.Value
	if value == "" {
		value = r.ID
	}
	return &Node{
		Name:             r.Name,
		Value:            value,
		ID:               r.ID,
		MaxAlarmSeverity: copySeverity(r.MaxAlarmSeverity),
		Icon:             r.Icon,
		Location:         r.Location.clone(),
	}
}
