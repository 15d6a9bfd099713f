package tree

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlNode struct {
	Name             string     `yaml:"name"`
	Value            string     `yaml:"value"`
	ID               string     `yaml:"id"`
	MaxAlarmSeverity *int       `yaml:"maxAlarmSeverity"`
	Icon             string     `yaml:"icon"`
	Latitude         *float64   `yaml:"latitude"`
	Longitude        *float64   `yaml:"longitude"`
	IPAddress        string     `yaml:"ipAddress"`
	State            string     `yaml:"state"`
	Country          string     `yaml:"country"`
	Children         []yamlNode `yaml:"children"`
}

// ParseBaselineYAML reads a baseline tree from YAML. Unlike user input, a baseline is
// operator configuration: nameless nodes and out-of-range severities are errors.
// The result is normalized, so severity icons are filled in.
func ParseBaselineYAML(data []byte) ([]*Node, error) {
	var raw []yamlNode
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse baseline yaml: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse baseline yaml: no root nodes")
	}
	nodes, err := nodesFromYAML(raw, "")
	if err != nil {
		return nil, err
	}
	return Normalize(nodes), nil
}

// LoadBaselineYAML reads a baseline tree from a YAML file.
func LoadBaselineYAML(path string) ([]*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return ParseBaselineYAML(data)
}

func nodesFromYAML(raw []yamlNode, parentPath string) ([]*Node, error) {
	out := make([]*Node, 0, len(raw))
	for i, r := range raw {
		if r.Name == "" {
			return nil, fmt.Errorf("baseline node %d under %q has no name", i, parentPath)
		}
		path := r.Name
		if parentPath != "" {
			path = parentPath + "/" + r.Name
		}

		n := &Node{Name: r.Name, Value: r.Value, ID: r.ID, Icon: r.Icon}
		if r.MaxAlarmSeverity != nil {
			s := Severity(*r.MaxAlarmSeverity)
			if !s.Valid() {
				return nil, fmt.Errorf("baseline node %q: maxAlarmSeverity %d outside 0..5", path, *r.MaxAlarmSeverity)
			}
			n.MaxAlarmSeverity = &s
		}
		loc := Location{
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			IPAddress: r.IPAddress,
			State:     r.State,
			Country:   r.Country,
		}
		if loc != (Location{}) {
			n.Location = &loc
		}
		if r.Children != nil {
			children, err := nodesFromYAML(r.Children, path)
			if err != nil {
				return nil, err
			}
			n.Children = children
		}
		out = append(out, n)
	}
	return out, nil
}
