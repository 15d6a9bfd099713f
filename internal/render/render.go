// Package render prints a processed site tree for terminals and scripts.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"sitemanager/core-go/internal/tree"
)

type Options struct {
	// NoColor disables ANSI escapes regardless of the terminal.
	NoColor bool
}

var severityAttrs = map[tree.Severity][]color.Attribute{
	tree.SeverityCritical: {color.FgHiRed, color.Bold},
	tree.SeverityMajor:    {color.FgRed},
	tree.SeverityMinor:    {color.FgHiYellow},
	tree.SeverityWarning:  {color.FgYellow},
	tree.SeverityNormal:   {color.FgGreen},
	tree.SeverityInfo:     {color.FgBlue},
}

type printer struct {
	w      io.Writer
	opts   Options
	colors map[tree.Severity]*color.Color
	bold   *color.Color
}

func newPrinter(w io.Writer, opts Options) *printer {
	p := &printer{
		w:      w,
		opts:   opts,
		colors: make(map[tree.Severity]*color.Color, len(severityAttrs)),
		bold:   pin(color.New(color.Bold), opts),
	}
	for sev, attrs := range severityAttrs {
		p.colors[sev] = pin(color.New(attrs...), opts)
	}
	return p
}

// pin fixes a printer's color mode so output does not depend on the global TTY check.
func pin(c *color.Color, opts Options) *color.Color {
	if opts.NoColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c
}

// Text writes nodes as an indented ASCII tree followed by an alarm summary line. Nodes
// with a severity are colored and suffixed with their label, e.g. "Hive 117 [Critical]".
func Text(w io.Writer, nodes []*tree.Node, opts Options) error {
	p := newPrinter(w, opts)
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, err := fmt.Fprintln(w, p.label(n)); err != nil {
			return err
		}
		if err := p.children(n.Children, ""); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, p.summary(tree.CountAlarms(nodes)))
	return err
}

func (p *printer) children(nodes []*tree.Node, prefix string) error {
	for i, n := range nodes {
		if n == nil {
			continue
		}
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}
		if _, err := fmt.Fprintln(p.w, prefix+branch+p.label(n)); err != nil {
			return err
		}
		if err := p.children(n.Children, prefix+next); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) label(n *tree.Node) string {
	if n.MaxAlarmSeverity == nil {
		return n.Name
	}
	c, ok := p.colors[*n.MaxAlarmSeverity]
	if !ok {
		return n.Name
	}
	return c.Sprintf("%s [%s]", n.Name, n.MaxAlarmSeverity.Label())
}

func (p *printer) summary(c tree.AlarmCounts) string {
	if c.Total == 0 {
		return p.bold.Sprint("no alarms")
	}
	var parts []string
	styles := tree.SeverityStyles()
	for i := len(styles) - 1; i >= 0; i-- {
		s := styles[i]
		if n := c.For(s.Level); n > 0 {
			parts = append(parts, p.colors[s.Level].Sprintf("%d %s", n, strings.ToLower(s.Label)))
		}
	}
	return p.bold.Sprintf("%d alarms: ", c.Total) + strings.Join(parts, ", ")
}

// JSON writes nodes as indented JSON.
func JSON(w io.Writer, nodes []*tree.Node) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(nodes)
}
