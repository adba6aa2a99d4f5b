package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultCommand is the LibreOffice binary.
	DefaultCommand = "soffice"

	// DefaultTimeout bounds one conversion.
	DefaultTimeout = 30 * time.Second
)

// ErrNoOutput is returned when the converter finished but
// the PDF is missing.
var ErrNoOutput = errors.New("pdf was not produced")

// Converter runs LibreOffice to convert documents to PDF.
type Converter struct {
	// Command is the LibreOffice binary name or path.
	Command string

	// Timeout bounds one conversion; zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// ToPDF converts docxPath into a PDF written to outDir and
// returns the PDF path. A PDF already at that path is
// removed first. LibreOffice exits non-zero on some
// harmless java warnings, so a failed run whose PDF exists
// is accepted.
func (cv *Converter) ToPDF(
	ctx context.Context,
	docxPath string,
	outDir string,
) (string, error) {
	const errCtx = "converting to pdf"

	timeout := cv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := cv.Command
	if command == "" {
		command = DefaultCommand
	}

	pdfPath := filepath.Join(outDir, PDFName(docxPath))

	if err := os.Remove(pdfPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: removing stale pdf: %w", errCtx, err)
	}

	_, runErr := Ex(
		ctx, "", command,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", outDir,
		docxPath,
	)

	if _, err := os.Stat(pdfPath); err != nil {
		if runErr != nil {
			return "", fmt.Errorf("%s: %w", errCtx, runErr)
		}

		return "", fmt.Errorf("%s: %w: %s", errCtx, ErrNoOutput, pdfPath)
	}

	if runErr != nil {
		slog.Warn(
			"converter reported an error but produced the pdf",
			"pdf", pdfPath,
			"error", runErr,
		)
	}

	return pdfPath, nil
}

// PDFName returns the file name LibreOffice gives the PDF
// converted from docxPath.
func PDFName(docxPath string) string {
	base := filepath.Base(docxPath)

	return strings.TrimSuffix(base, filepath.Ext(base)) + ".pdf"
}
