package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

var errRecordNotObject = errors.New("record must be a JSON object")

// OptionalString tracks whether a JSON field was present at all, separately from its
// value. A parentId of null is present (it marks a root in flat input) while a missing
// parentId is not.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON implements json.Unmarshaler. Numbers are accepted and kept as text.
// Any other type (a boolean, an object) counts as present but null.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	o.Value = nil

	if s, ok := decodeText(bytes.TrimSpace(data)); ok {
		o.Value = &s
	}
	return nil
}

// Record is one element of the tree or devices JSON input, before it is resolved into
// a Node or a Device.
type Record struct {
	ID               string
	Name             string
	Value            string
	ParentID         OptionalString
	MaxAlarmSeverity *Severity
	Icon             string
	Location         *Location
	Children         []Record
}

type wireRecord struct {
	ID               json.RawMessage `json:"id"`
	Name             json.RawMessage `json:"name"`
	Value            json.RawMessage `json:"value"`
	ParentID         OptionalString  `json:"parentId"`
	MaxAlarmSeverity json.RawMessage `json:"maxAlarmSeverity"`
	Icon             json.RawMessage `json:"icon"`
	Children         []Record        `json:"children"`

	Latitude  json.RawMessage `json:"latitude"`
	Lat       json.RawMessage `json:"lat"`
	Longitude json.RawMessage `json:"longitude"`
	Lng       json.RawMessage `json:"lng"`
	Lon       json.RawMessage `json:"lon"`
	IPAddress json.RawMessage `json:"ipAddress"`
	IP        json.RawMessage `json:"ip"`
	State     json.RawMessage `json:"state"`
	Country   json.RawMessage `json:"country"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errRecordNotObject
	}

	var w wireRecord
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return err
	}

	*r = Record{
		ID:               text(w.ID),
		Name:             text(w.Name),
		Value:            text(w.Value),
		ParentID:         w.ParentID,
		MaxAlarmSeverity: decodeSeverity(w.MaxAlarmSeverity),
		Icon:             text(w.Icon),
		Children:         w.Children,
	}

	loc := Location{
		Latitude:  firstNumber(w.Latitude, w.Lat),
		Longitude: firstNumber(w.Longitude, w.Lng, w.Lon),
		IPAddress: firstText(w.IPAddress, w.IP),
		State:     text(w.State),
		Country:   text(w.Country),
	}
	if loc != (Location{}) {
		r.Location = &loc
	}
	return nil
}

// DecodeRecords parses a JSON array of records. Blank input and a JSON null are treated
// as absent and return no records and no error.
func DecodeRecords(input string) ([]Record, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal([]byte(input), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// InputKind tells how a decoded tree input has to be resolved into nodes.
type InputKind int

const (
	KindNested InputKind = iota
	KindFlat
)

func (k InputKind) String() string {
	if k == KindFlat {
		return "flat"
	}
	return "nested"
}

// TreeInput is user tree input with its shape decided once, at the boundary.
type TreeInput struct {
	Kind    InputKind
	Records []Record
}

// ClassifyTreeInput treats the input as flat when its first record carries a parentId
// key (null included). Otherwise the records are taken as an already nested tree.
func ClassifyTreeInput(records []Record) TreeInput {
	in := TreeInput{Kind: KindNested, Records: records}
	if len(records) > 0 && records[0].ParentID.Present {
		in.Kind = KindFlat
	}
	return in
}

// Nodes resolves the input into a nested forest.
func (in TreeInput) Nodes() ([]*Node, error) {
	if in.Kind == KindFlat {
		return BuildTree(in.Records)
	}
	return NodesFromRecords(in.Records), nil
}

// NodesFromRecords converts already nested records into nodes, children included.
func NodesFromRecords(records []Record) []*Node {
	if records == nil {
		return nil
	}
	out := make([]*Node, 0, len(records))
	for _, r := range records {
		n := &Node{
			Name:             r.Name,
			Value:            r.Value,
			ID:               r.ID,
			MaxAlarmSeverity: copySeverity(r.MaxAlarmSeverity),
			Icon:             r.Icon,
			Location:         r.Location.clone(),
		}
		if r.Children != nil {
			n.Children = NodesFromRecords(r.Children)
		}
		out = append(out, n)
	}
	return out
}

// Device is a leaf record grafted into the tree by id or parent id.
type Device struct {
	ID               string
	Name             string
	Value            string
	ParentID         string
	MaxAlarmSeverity *Severity
	Location         *Location
}

// DevicesFromRecords resolves device records. A null parentId is the same as none.
func DevicesFromRecords(records []Record) []Device {
	out := make([]Device, 0, len(records))
	for _, r := range records {
		d := Device{
			ID:               r.ID,
			Name:             r.Name,
			Value:            r.Value,
			MaxAlarmSeverity: copySeverity(r.MaxAlarmSeverity),
			Location:         r.Location.clone(),
		}
		if r.ParentID.Value != nil {
			d.ParentID = *r.ParentID.Value
		}
		out = append(out, d)
	}
	return out
}

// decodeSeverity treats a missing, null or blank-string severity as absent.
func decodeSeverity(raw json.RawMessage) *Severity {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err == nil && strings.TrimSpace(str) == "" {
			return nil
		}
	}
	return SeverityPtr(parseSeverity(trimmed))
}

func copySeverity(s *Severity) *Severity {
	if s == nil {
		return nil
	}
	return SeverityPtr(*s)
}

func text(raw json.RawMessage) string {
	s, _ := decodeText(bytes.TrimSpace(raw))
	return s
}

func firstText(raws ...json.RawMessage) string {
	for _, raw := range raws {
		if s := text(raw); s != "" {
			return s
		}
	}
	return ""
}

// decodeText reads a JSON string or number as text.
func decodeText(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}

func firstNumber(raws ...json.RawMessage) *float64 {
	for _, raw := range raws {
		s, ok := decodeText(bytes.TrimSpace(raw))
		if !ok || s == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return &f
	}
	return nil
}
