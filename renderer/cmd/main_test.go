package main

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentXML = `<w:document><w:body><w:p><w:r>` +
	`<w:t>{{ NOME_COMPLETO }} {{ VALOR_CAUSA }} {{ QTD }}</w:t>` +
	`</w:r></w:p></w:body></w:document>`

// writeTemplate creates a DOCX template holding a single
// paragraph and returns its path.
func writeTemplate(tb testing.TB, dir string) string {
	tb.Helper()

	pa := filepath.Join(dir, "t.docx")

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)
	wr, err := zw.Create("word/document.xml")
	require.NoError(tb, err)

	_, err = io.WriteString(wr, documentXML)
	require.NoError(tb, err)
	require.NoError(tb, zw.Close())

	require.NoError(tb, os.WriteFile(pa, buf.Bytes(), 0o600))

	return pa
}

func readDocument(tb testing.TB, pa string) string {
	tb.Helper()

	zr, err := zip.OpenReader(pa)
	require.NoError(tb, err)

	defer zr.Close() //nolint:errcheck // test file

	rc, err := zr.File[0].Open()
	require.NoError(tb, err)

	by, err := io.ReadAll(rc)
	require.NoError(tb, err)

	return string(by)
}

func TestRun_renders_document(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemplate(t, dir)
	outPath := filepath.Join(dir, "o.docx")

	var stdout, stderr bytes.Buffer

	code := run([]string{
		tplPath, outPath,
		`{"NOME_COMPLETO":"joao","VALOR_CAUSA":1500.5,"QTD_FLOAT":2.0}`,
	}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), outPath)
	assert.Contains(
		t,
		readDocument(t, outPath),
		"<w:t>JOAO R$ 1.500,50 R$ 2,00</w:t>",
	)
}

func TestRun_digest_flag(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemplate(t, dir)
	outPath := filepath.Join(dir, "o.docx")

	var stdout, stderr bytes.Buffer

	code := run(
		[]string{"-digest", tplPath, outPath, `{}`},
		&stdout, &stderr,
	)

	require.Equal(t, 0, code, stderr.String())
	assert.FileExists(t, outPath+".sha256")
}

func TestRun_missing_arguments(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	code := run([]string{"t.docx", "o.docx"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_extra_arguments(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	code := run([]string{"a", "b", "{}", "d"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_invalid_json_writes_nothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemplate(t, dir)
	outPath := filepath.Join(dir, "o.docx")

	var stdout, stderr bytes.Buffer

	code := run([]string{tplPath, outPath, "{bad json"}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "decode error")
	assert.NoFileExists(t, outPath)
}

func TestRun_missing_template(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "o.docx")

	var stdout, stderr bytes.Buffer

	code := run(
		[]string{filepath.Join(dir, "none.docx"), outPath, `{}`},
		&stdout, &stderr,
	)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "render error")
	assert.NoFileExists(t, outPath)
}

func TestRun_rules_file(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tplPath := writeTemplate(t, dir)
	outPath := filepath.Join(dir, "o.docx")
	rulesPath := filepath.Join(dir, "rules.yaml")

	require.NoError(t, os.WriteFile(
		rulesPath, []byte("uppercase:\n  - BAIRRO\n"), 0o600,
	))

	var stdout, stderr bytes.Buffer

	code := run([]string{
		"-rules", rulesPath, tplPath, outPath,
		`{"NOME_COMPLETO":"joao"}`,
	}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, readDocument(t, outPath), "<w:t>joao  </w:t>")
}
