// Package rows turns tabular activity descriptions into ordered [ActivityRow]
// records.
//
// Two source shapes are supported:
//
//   - Delimited text ([ParseDelimited]): a header line followed by one record per
//     line. Columns are positional (name, documentation, outputs) with optional
//     named Inputs, Actor and Parent columns. Every non-blank record is imported
//     and the first malformed record aborts the parse with a PARSE_ERROR that
//     carries its line number.
//   - Spreadsheets ([ParseSpreadsheet], [ParseWorkbook]): the header row is
//     located by scanning the first rows for a "name" cell. Only rows whose name
//     starts with [Options.ActionPrefix] are imported; rows that cannot be read
//     are skipped with a warning.
//
// Row order is significant: it decides the sequential flow and lane order
// downstream, so parsers never reorder.
package rows

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// UnassignedLane is the lane key used for rows without an actor.
const UnassignedLane = "<Unassigned>"

// Defaults for [Options].
const (
	DefaultComma          = ','
	DefaultActionPrefix   = "Action"
	DefaultHeaderScanRows = 10
)

// DefaultMultiDelimiters is the preference order for splitting multi-value fields.
var DefaultMultiDelimiters = []string{";", ","}

// ActivityRow is one normalized input row.
type ActivityRow struct {
	Name          string   `json:"name"`
	Actor         string   `json:"actor,omitempty"`
	IsSubAction   bool     `json:"is_sub_action,omitempty"`
	ParentName    string   `json:"parent_name,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	Inputs        []string `json:"inputs,omitempty"`
	Outputs       []string `json:"outputs,omitempty"`
	Line          int      `json:"line,omitempty"` // 1-based source line or sheet row
}

// LaneKey returns the lane this row belongs to.
func (r ActivityRow) LaneKey() string {
	if a := strings.TrimSpace(r.Actor); a != "" {
		return a
	}
	return UnassignedLane
}

// Options configures both parsers.
type Options struct {
	// Comma is the field delimiter for delimited text.
	Comma rune

	// MultiDelimiters lists the separators tried, in order, when splitting
	// input and output fields.
	MultiDelimiters []string

	// ActionPrefix filters spreadsheet rows by name. Empty imports every row.
	ActionPrefix string

	// HeaderScanRows is how many leading sheet rows are searched for the header.
	HeaderScanRows int

	// Sheet selects the worksheet. Empty means the first sheet.
	Sheet string

	// Logger receives skip warnings. Nil discards them.
	Logger *log.Logger
}

// DefaultOptions returns options matching the documented defaults.
func DefaultOptions() Options {
	return Options{
		Comma:           DefaultComma,
		MultiDelimiters: DefaultMultiDelimiters,
		ActionPrefix:    DefaultActionPrefix,
		HeaderScanRows:  DefaultHeaderScanRows,
	}
}

// withDefaults fills zero fields. ActionPrefix is left alone so callers can
// disable the filter with an empty string.
func (o Options) withDefaults() Options {
	if o.Comma == 0 {
		o.Comma = DefaultComma
	}
	if len(o.MultiDelimiters) == 0 {
		o.MultiDelimiters = DefaultMultiDelimiters
	}
	if o.HeaderScanRows <= 0 {
		o.HeaderScanRows = DefaultHeaderScanRows
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// SplitValues splits a multi-value field on the first delimiter in delims
// that occurs in it. Tokens are trimmed and empty tokens dropped; a non-empty
// field without any delimiter is a single value.
func SplitValues(field string, delims []string) []string {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}
	parts := []string{field}
	for _, d := range delims {
		if d != "" && strings.Contains(field, d) {
			parts = strings.Split(field, d)
			break
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the number of top-level rows and sub-action rows.
func Count(rows []ActivityRow) (topLevel, subActions int) {
	for _, r := range rows {
		if r.IsSubAction {
			subActions++
		} else {
			topLevel++
		}
	}
	return topLevel, subActions
}

// SubActionNames returns the distinct sub-action names in first-seen order.
func SubActionNames(rows []ActivityRow) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		if r.IsSubAction && !seen[r.Name] {
			seen[r.Name] = true
			out = append(out, r.Name)
		}
	}
	return out
}
