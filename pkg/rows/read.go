package rows

import (
	"io"
	"os"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

// Source formats accepted by [Parse].
const (
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatXLSX = "xlsx"
)

// FormatForPath maps a file extension to a source format.
func FormatForPath(path string) (string, error) {
	ext, err := errors.ValidateSourcePath(path)
	if err != nil {
		return "", err
	}
	switch ext {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return "", errors.New(errors.ErrCodeUnsupported, "legacy .xls workbooks are not supported, save as .xlsx")
	default:
		return "", errors.New(errors.ErrCodeInvalidFmt, "unsupported source extension %q", ext)
	}
}

// ReadFile parses the file at path, choosing the parser by extension.
func ReadFile(path string, opts Options) ([]ActivityRow, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
		}
		return ParseSpreadsheet(path, opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()
	return Parse(f, format, opts)
}

// Parse reads rows of the given format from r.
func Parse(r io.Reader, format string, opts Options) ([]ActivityRow, error) {
	switch format {
	case FormatCSV:
		return ParseDelimited(r, opts)
	case FormatTSV:
		opts.Comma = '\t'
		return ParseDelimited(r, opts)
	case FormatXLSX:
		return ParseSpreadsheetReader(r, opts)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFmt, "unknown source format %q", format)
	}
}
