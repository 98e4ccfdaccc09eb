package rows

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"strings"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

// Positional columns of the delimited format.
const (
	colName = iota
	colDocumentation
	colOutputs
	minColumns
)

// delimitedColumns maps optional header names to their column index.
type delimitedColumns struct {
	inputs, actor, parent int
}

func detectDelimitedColumns(header []string) delimitedColumns {
	cols := delimitedColumns{inputs: -1, actor: -1, parent: -1}
	for i, h := range header {
		if i < minColumns {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "inputs", "input":
			if cols.inputs < 0 {
				cols.inputs = i
			}
		case "actor", "lane", "owner":
			if cols.actor < 0 {
				cols.actor = i
			}
		case "parent":
			if cols.parent < 0 {
				cols.parent = i
			}
		}
	}
	return cols
}

// ParseDelimited reads delimited text with a Name,Documentation,Outputs header.
//
// The whole input is parsed before anything is returned: the first malformed
// record fails the call with a PARSE_ERROR carrying its 1-based line number.
func ParseDelimited(r io.Reader, opts Options) ([]ActivityRow, error) {
	opts = opts.withDefaults()

	cr := csv.NewReader(r)
	cr.Comma = opts.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeIO, "input is empty: header line required")
	}
	if err != nil {
		return nil, parseFailure(err)
	}
	if len(header) < minColumns {
		return nil, errors.New(errors.ErrCodeSchema,
			"header has %d column(s), need at least %d (Name,Documentation,Outputs)", len(header), minColumns)
	}
	cols := detectDelimitedColumns(header)

	var out []ActivityRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseFailure(err)
		}
		line, _ := cr.FieldPos(0)
		if blankRecord(rec) {
			continue
		}

		row, err := delimitedRow(rec, cols, opts)
		if err != nil {
			return nil, errors.AtLine(errors.ErrCodeParse, line, err, "invalid record")
		}
		row.Line = line
		out = append(out, row)
	}
	opts.Logger.Debug("parsed delimited rows", "rows", len(out))
	return out, nil
}

func delimitedRow(rec []string, cols delimitedColumns, opts Options) (ActivityRow, error) {
	field := func(i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	name := field(colName)
	if err := errors.ValidateName(name); err != nil {
		return ActivityRow{}, err
	}
	parent := field(cols.parent)
	return ActivityRow{
		Name:          name,
		Actor:         field(cols.actor),
		IsSubAction:   parent != "",
		ParentName:    parent,
		Documentation: field(colDocumentation),
		Inputs:        SplitValues(field(cols.inputs), opts.MultiDelimiters),
		Outputs:       SplitValues(field(colOutputs), opts.MultiDelimiters),
	}, nil
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseFailure(err error) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return errors.AtLine(errors.ErrCodeParse, pe.Line, pe.Err, "malformed record")
	}
	return errors.Wrap(errors.ErrCodeIO, err, "read input")
}
