package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

// ConverterBinary is the external tool used for PDF and PNG output.
const ConverterBinary = "rsvg-convert"

// ToPDF converts SVG bytes to PDF.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return convert(ctx, svg, FormatPDF)
}

// ToPNG converts SVG bytes to PNG at the given scale; 2.0 doubles the
// resolution. Non-positive scales mean 1.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	return convert(ctx, svg, FormatPNG, "-z", fmt.Sprintf("%.2f", scale))
}

// Convert converts svg to a binary format.
func Convert(ctx context.Context, svg []byte, f Format, scale float64) ([]byte, error) {
	switch f {
	case FormatPDF:
		return ToPDF(ctx, svg)
	case FormatPNG:
		return ToPNG(ctx, svg, scale)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "cannot convert SVG to %s", f)
}

func convert(ctx context.Context, svg []byte, f Format, extraArgs ...string) ([]byte, error) {
	if _, err := exec.LookPath(ConverterBinary); err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin", f)
	}

	args := append([]string{"-f", string(f)}, extraArgs...)
	cmd := exec.CommandContext(ctx, ConverterBinary, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeCanceled, ctx.Err(), "convert to %s", f)
		}
		return nil, errors.New(errors.ErrCodeInternal, "%s: %v: %s", ConverterBinary, err, stderr.String())
	}
	return out.Bytes(), nil
}
