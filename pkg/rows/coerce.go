package rows

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

type cellKind int

const (
	cellBlank cellKind = iota
	cellString
	cellNumber
	cellBool
	cellDate
	cellFormula
	cellError
)

// cell is a typed spreadsheet value before coercion.
type cell struct {
	kind          cellKind
	raw           string
	dateFormatted bool                   // numbers only
	eval          func() (string, error) // formulas only
}

// coerceCell renders a cell as text.
//
// Whole numbers print without a fraction, date-formatted numbers and date
// cells print as time.Time strings, and formulas fall back from their
// evaluated value to the cached number to the empty string.
func coerceCell(c cell) (string, error) {
	switch c.kind {
	case cellString:
		return strings.TrimSpace(c.raw), nil
	case cellBool:
		return strconv.FormatBool(c.raw == "1" || strings.EqualFold(c.raw, "true")), nil
	case cellNumber:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.raw), 64)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeParse, err, "numeric cell %q", c.raw)
		}
		if c.dateFormatted {
			t, err := excelize.ExcelDateToTime(v, false)
			if err != nil {
				return "", errors.Wrap(errors.ErrCodeParse, err, "date cell %q", c.raw)
			}
			return t.String(), nil
		}
		return formatNumber(v), nil
	case cellDate:
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(c.raw))
		if err != nil {
			return strings.TrimSpace(c.raw), nil
		}
		return t.String(), nil
	case cellFormula:
		if c.eval != nil {
			if s, err := c.eval(); err == nil {
				return strings.TrimSpace(s), nil
			}
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(c.raw), 64); err == nil {
			return formatNumber(v), nil
		}
		return "", nil
	default:
		return "", nil
	}
}

// formatNumber prints whole numbers without a fractional part and everything
// else in the shortest form that round-trips.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
