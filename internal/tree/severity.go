package tree

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Severity is an alarm level from 0 (Info) to 5 (Critical).
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityNormal
	SeverityWarning
	SeverityMinor
	SeverityMajor
	SeverityCritical
)

// severityInvalid is kept for values that were present in the input but are not a
// usable level ("abc", 9, true). Normalize turns it into "no alarm data".
const severityInvalid Severity = -1

// Valid reports whether s is one of the six defined levels.
func (s Severity) Valid() bool {
	return s >= SeverityInfo && s <= SeverityCritical
}

// Label returns the display label, or "" for an invalid level.
func (s Severity) Label() string {
	if style, ok := LookupSeverity(s); ok {
		return style.Label
	}
	return ""
}

func (s Severity) String() string {
	if l := s.Label(); l != "" {
		return l
	}
	return "Severity(" + strconv.Itoa(int(s)) + ")"
}

// SeverityPtr returns a pointer to a copy of s.
func SeverityPtr(s Severity) *Severity {
	return &s
}

// UnmarshalJSON accepts numbers and numeric strings. Anything else that is present
// decodes to an invalid level rather than failing the whole document.
func (s *Severity) UnmarshalJSON(data []byte) error {
	*s = parseSeverity(data)
	return nil
}

func parseSeverity(data []byte) Severity {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return severityInvalid
	}
	switch c := trimmed[0]; {
	case c == '"':
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return severityInvalid
		}
		return severityFromString(str)
	case c == '-' || (c >= '0' && c <= '9'):
		f, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return severityInvalid
		}
		return severityFromFloat(f)
	default:
		return severityInvalid
	}
}

func severityFromFloat(f float64) Severity {
	if math.IsNaN(f) || f < float64(SeverityInfo) || f > float64(SeverityCritical) {
		return severityInvalid
	}
	return Severity(math.Trunc(f))
}

// severityFromString reads a leading base-10 integer the way parseInt does: leading
// whitespace and a sign are allowed and trailing garbage is ignored.
func severityFromString(str string) Severity {
	str = strings.TrimLeft(str, " \t\n\r\v\f")
	end := 0
	if end < len(str) && (str[end] == '+' || str[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(str) && str[end] >= '0' && str[end] <= '9' {
		end++
	}
	if end == digitsStart || end-digitsStart > 9 {
		return severityInvalid
	}
	v, err := strconv.Atoi(str[:end])
	if err != nil {
		return severityInvalid
	}
	return severityFromFloat(float64(v))
}

// SeverityStyle is the display configuration for one severity level.
type SeverityStyle struct {
	Level Severity `json:"level"`
	Label string   `json:"label"`
	Color string   `json:"color"`
	Icon  string   `json:"icon"`
}

const iconDir = "img/icons/"

var severityTable = [...]SeverityStyle{
	{Level: SeverityInfo, Label: "Info", Color: "#5794F2", Icon: iconDir + "info.svg"},
	{Level: SeverityNormal, Label: "Normal", Color: "#73BF69", Icon: iconDir + "normal.svg"},
	{Level: SeverityWarning, Label: "Warning", Color: "#FADE2A", Icon: iconDir + "warning.svg"},
	{Level: SeverityMinor, Label: "Minor", Color: "#F79520", Icon: iconDir + "minor.svg"},
	{Level: SeverityMajor, Label: "Major", Color: "#E02F44", Icon: iconDir + "major.svg"},
	{Level: SeverityCritical, Label: "Critical", Color: "#C4162A", Icon: iconDir + "critical.svg"},
}

// LookupSeverity returns the style for s.
func LookupSeverity(s Severity) (SeverityStyle, bool) {
	if !s.Valid() {
		return SeverityStyle{}, false
	}
	return severityTable[s], true
}

// SeverityStyles returns the full table ordered from Info to Critical.
func SeverityStyles() []SeverityStyle {
	out := make([]SeverityStyle, len(severityTable))
	copy(out, severityTable[:])
	return out
}

func iconFor(s Severity) string {
	style, _ := LookupSeverity(s)
	return style.Icon
}
