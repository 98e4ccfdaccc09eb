package render

import (
	"slices"
	"strings"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

// Format is an artifact format.
type Format string

// Supported formats.
const (
	FormatSVG      Format = "svg"      // native SVG from layout rectangles
	FormatGraphviz Format = "graphviz" // SVG placed by Graphviz
	FormatDOT      Format = "dot"
	FormatJSON     Format = "json"
	FormatPDF      Format = "pdf"
	FormatPNG      Format = "png"
)

// Formats lists every format in display order.
var Formats = []Format{FormatSVG, FormatGraphviz, FormatDOT, FormatJSON, FormatPDF, FormatPNG}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatSVG, nil
	}
	if !slices.Contains(Formats, f) {
		return "", errors.New(errors.ErrCodeInvalidFmt, "unknown render format %q", s)
	}
	return f, nil
}

// ValidateFormats checks that every format is known.
func ValidateFormats(formats []Format) error {
	for _, f := range formats {
		if !slices.Contains(Formats, f) {
			return errors.New(errors.ErrCodeInvalidFmt, "unknown render format %q", f)
		}
	}
	return nil
}

// FormatForPath picks a format from an output file extension. Unknown or
// missing extensions give FormatSVG.
func FormatForPath(path string) Format {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return FormatSVG
	}
	switch strings.ToLower(path[i+1:]) {
	case "dot", "gv":
		return FormatDOT
	case "json":
		return FormatJSON
	case "pdf":
		return FormatPDF
	case "png":
		return FormatPNG
	}
	return FormatSVG
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG, FormatGraphviz:
		return "image/svg+xml"
	case FormatDOT:
		return "text/vnd.graphviz"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == FormatGraphviz {
		return "svg"
	}
	return string(f)
}

// Binary reports whether f is produced by converting an SVG.
func (f Format) Binary() bool { return f == FormatPDF || f == FormatPNG }
