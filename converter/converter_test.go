package converter_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/docxfill/converter"
)

// writeScript creates an executable shell script standing
// in for LibreOffice. Arguments arrive as
// --headless --convert-to pdf --outdir DIR FILE.
//
// Tests running a freshly written script stay sequential:
// a concurrent fork holding the write descriptor makes
// exec fail with ETXTBSY.
func writeScript(tb testing.TB, dir string, body string) string {
	tb.Helper()

	pa := filepath.Join(dir, "fake-soffice")
	require.NoError(tb, os.WriteFile(
		pa, []byte("#!/bin/sh\n"+body+"\n"), 0o700, //nolint:gosec // test script
	))

	return pa
}

const producePDF = `touch "$5/$(basename "$6" .docx).pdf"`

func TestToPDF_success(t *testing.T) {
	dir := t.TempDir()
	docx := filepath.Join(dir, "peticao.docx")
	require.NoError(t, os.WriteFile(docx, []byte("x"), 0o600))

	cv := converter.Converter{Command: writeScript(t, dir, producePDF)}

	got, err := cv.ToPDF(context.Background(), docx, dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "peticao.pdf"), got)
	assert.FileExists(t, got)
}

func TestToPDF_tolerates_failing_exit_with_output(t *testing.T) {
	dir := t.TempDir()
	docx := filepath.Join(dir, "peticao.docx")

	cv := converter.Converter{
		Command: writeScript(t, dir, producePDF+"\necho javaldx warning >&2\nexit 1"),
	}

	got, err := cv.ToPDF(context.Background(), docx, dir)

	require.NoError(t, err)
	assert.FileExists(t, got)
}

func TestToPDF_no_output(t *testing.T) {
	dir := t.TempDir()

	cv := converter.Converter{Command: writeScript(t, dir, "exit 0")}

	_, err := cv.ToPDF(context.Background(), filepath.Join(dir, "a.docx"), dir)

	require.ErrorIs(t, err, converter.ErrNoOutput)
}

func TestToPDF_command_failure(t *testing.T) {
	dir := t.TempDir()

	cv := converter.Converter{Command: writeScript(t, dir, "exit 3")}

	_, err := cv.ToPDF(context.Background(), filepath.Join(dir, "a.docx"), dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "converting to pdf")
	assert.NotErrorIs(t, err, converter.ErrNoOutput)
}

func TestToPDF_failure_ignores_stale_pdf(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(
		stale, []byte("OLD PDF FROM PREVIOUS REQUEST"), 0o600,
	))

	cv := converter.Converter{Command: writeScript(t, dir, "exit 1")}

	_, err := cv.ToPDF(context.Background(), filepath.Join(dir, "a.docx"), dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "converting to pdf")
	assert.NoFileExists(t, stale)
}

func TestToPDF_replaces_stale_pdf(t *testing.T) {
	dir := t.TempDir()
	docx := filepath.Join(dir, "a.docx")
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "a.pdf"), []byte("OLD PDF FROM PREVIOUS REQUEST"), 0o600,
	))

	cv := converter.Converter{
		Command: writeScript(t, dir, `echo NEW > "$5/$(basename "$6" .docx).pdf"`),
	}

	got, err := cv.ToPDF(context.Background(), docx, dir)

	require.NoError(t, err)

	by, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "NEW\n", string(by))
}

func TestToPDF_timeout(t *testing.T) {
	dir := t.TempDir()

	cv := converter.Converter{
		Command: writeScript(t, dir, "exec sleep 5"),
		Timeout: 50 * time.Millisecond,
	}

	_, err := cv.ToPDF(context.Background(), filepath.Join(dir, "a.docx"), dir)

	require.Error(t, err)
}

func TestPDFName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a.pdf", converter.PDFName("/x/y/a.docx"))
	assert.Equal(t, "b.pdf", converter.PDFName("b"))
}
