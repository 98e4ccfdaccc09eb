package rows

import (
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

// sheetColumns holds 0-based column indexes of a detected header; -1 is absent.
type sheetColumns struct {
	headerRow                                 int // 1-based
	name, inputs, outputs, actor, parent, doc int
}

// workbook is the slice of a spreadsheet the parser reads.
type workbook interface {
	// Rows returns raw cell text for every row up to the last non-empty one.
	Rows(sheet string) ([][]string, error)
	// Cell describes a single cell. col and row are 1-based.
	Cell(sheet string, col, row int) (cell, error)
	// DefaultSheet names the sheet used when Options.Sheet is empty.
	DefaultSheet() string
}

// ParseSpreadsheet opens an .xlsx/.xlsm workbook and parses it.
func ParseSpreadsheet(path string, opts Options) ([]ActivityRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open workbook %s", path)
	}
	defer f.Close()
	return ParseWorkbook(f, opts)
}

// ParseSpreadsheetReader parses a workbook streamed from r.
func ParseSpreadsheetReader(r io.Reader, opts Options) ([]ActivityRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open workbook")
	}
	defer f.Close()
	return ParseWorkbook(f, opts)
}

// ParseWorkbook parses an already opened workbook.
func ParseWorkbook(f *excelize.File, opts Options) ([]ActivityRow, error) {
	return parseSheet(excelWorkbook{f: f}, opts)
}

func parseSheet(wb workbook, opts Options) ([]ActivityRow, error) {
	opts = opts.withDefaults()
	sheet := opts.Sheet
	if sheet == "" {
		sheet = wb.DefaultSheet()
	}

	raw, err := wb.Rows(sheet)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read sheet %q", sheet)
	}

	cols, ok := detectSheetColumns(raw, opts.HeaderScanRows)
	if !ok {
		return nil, errors.New(errors.ErrCodeSchema,
			"no %q column in the first %d rows of sheet %q", "Name", opts.HeaderScanRows, sheet)
	}

	var out []ActivityRow
	for r := cols.headerRow + 1; r <= len(raw); r++ {
		row, keep, err := sheetRow(wb, sheet, r, cols, opts)
		if err != nil {
			opts.Logger.Warn("skipping row", "sheet", sheet, "row", r, "code", errors.ErrCodeParse, "err", err)
			continue
		}
		if keep {
			out = append(out, row)
		}
	}
	opts.Logger.Debug("parsed spreadsheet rows", "sheet", sheet, "rows", len(out))
	return out, nil
}

// detectSheetColumns finds the first row (within limit) holding a "name"
// header and maps its sibling headers.
func detectSheetColumns(raw [][]string, limit int) (sheetColumns, bool) {
	for i := 0; i < len(raw) && i < limit; i++ {
		cols := sheetColumns{headerRow: i + 1, name: -1, inputs: -1, outputs: -1, actor: -1, parent: -1, doc: -1}
		for c, v := range raw[i] {
			h := strings.ToLower(strings.TrimSpace(v))
			var slot *int
			switch {
			case h == "":
				continue
			case strings.Contains(h, "input"):
				slot = &cols.inputs
			case strings.Contains(h, "output"):
				slot = &cols.outputs
			case strings.Contains(h, "parent"):
				slot = &cols.parent
			case strings.Contains(h, "actor"), strings.Contains(h, "lane"):
				slot = &cols.actor
			case strings.Contains(h, "doc"), strings.Contains(h, "description"):
				slot = &cols.doc
			case strings.Contains(h, "name"):
				slot = &cols.name
			default:
				continue
			}
			if *slot < 0 {
				*slot = c
			}
		}
		if cols.name >= 0 {
			return cols, true
		}
	}
	return sheetColumns{}, false
}

func sheetRow(wb workbook, sheet string, r int, cols sheetColumns, opts Options) (ActivityRow, bool, error) {
	value := func(col int) (string, error) {
		if col < 0 {
			return "", nil
		}
		c, err := wb.Cell(sheet, col+1, r)
		if err != nil {
			return "", err
		}
		return coerceCell(c)
	}

	name, err := value(cols.name)
	if err != nil {
		return ActivityRow{}, false, err
	}
	if name == "" || !strings.HasPrefix(name, opts.ActionPrefix) {
		return ActivityRow{}, false, nil
	}

	row := ActivityRow{Name: name, Line: r}
	fields := []struct {
		col  int
		dest *string
	}{
		{cols.actor, &row.Actor},
		{cols.parent, &row.ParentName},
		{cols.doc, &row.Documentation},
	}
	for _, f := range fields {
		if *f.dest, err = value(f.col); err != nil {
			return ActivityRow{}, false, err
		}
	}
	inputs, err := value(cols.inputs)
	if err != nil {
		return ActivityRow{}, false, err
	}
	outputs, err := value(cols.outputs)
	if err != nil {
		return ActivityRow{}, false, err
	}
	row.Inputs = SplitValues(inputs, opts.MultiDelimiters)
	row.Outputs = SplitValues(outputs, opts.MultiDelimiters)
	row.IsSubAction = row.ParentName != ""
	return row, true, nil
}

// =============================================================================
// excelize adapter
// =============================================================================

type excelWorkbook struct {
	f *excelize.File
}

func (w excelWorkbook) DefaultSheet() string {
	return w.f.GetSheetName(0)
}

func (w excelWorkbook) Rows(sheet string) ([][]string, error) {
	return w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func (w excelWorkbook) Cell(sheet string, col, row int) (cell, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return cell{}, err
	}
	raw, err := w.f.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return cell{}, err
	}
	if formula, _ := w.f.GetCellFormula(sheet, axis); formula != "" {
		return cell{
			kind: cellFormula,
			raw:  raw,
			eval: func() (string, error) { return w.f.CalcCellValue(sheet, axis) },
		}, nil
	}

	typ, err := w.f.GetCellType(sheet, axis)
	if err != nil {
		return cell{}, err
	}
	switch typ {
	case excelize.CellTypeBool:
		return cell{kind: cellBool, raw: raw}, nil
	case excelize.CellTypeDate:
		return cell{kind: cellDate, raw: raw}, nil
	case excelize.CellTypeError:
		return cell{kind: cellError, raw: raw}, nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return cell{kind: cellString, raw: raw}, nil
	}
	if raw == "" {
		return cell{kind: cellBlank}, nil
	}
	return cell{kind: cellNumber, raw: raw, dateFormatted: w.isDateFormatted(sheet, axis)}, nil
}

// Built-in number formats that display dates or times.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	45: true, 46: true, 47: true,
}

func (w excelWorkbook) isDateFormatted(sheet, axis string) bool {
	idx, err := w.f.GetCellStyle(sheet, axis)
	if err != nil || idx == 0 {
		return false
	}
	style, err := w.f.GetStyle(idx)
	if err != nil || style == nil {
		return false
	}
	if builtinDateFormats[style.NumFmt] {
		return true
	}
	if style.CustomNumFmt != nil {
		return isDateNumFmt(*style.CustomNumFmt)
	}
	return false
}

// isDateNumFmt reports whether a custom number format has a year or day
// token outside its literal parts: quoted text, backslash escapes, the
// character after _ or *, and bracketed sections such as [Red].
func isDateNumFmt(f string) bool {
	f = strings.ToLower(f)
	if strings.Contains(f, "general") {
		return false
	}
	for i := 0; i < len(f); i++ {
		switch f[i] {
		case '"':
			end := strings.IndexByte(f[i+1:], '"')
			if end < 0 {
				return false
			}
			i += end + 1
		case '[':
			end := strings.IndexByte(f[i+1:], ']')
			if end < 0 {
				return false
			}
			i += end + 1
		case '\\', '_', '*':
			i++
		case 'y', 'd':
			return true
		}
	}
	return false
}
