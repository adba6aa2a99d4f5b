// Package templating renders DOCX templates. Placeholders such as
// "{{ NOME_COMPLETO }}" in the document body, headers, footers, footnotes
// and endnotes are substituted with values from a flat text map using
// valyala/fasttemplate with configurable delimiters (default "{{" and "}}").
//
// Word frequently splits a placeholder across several text runs while it is
// edited. Engine repairs those placeholders before substitution by dropping
// the XML markup found inside them, so templates written by hand in Word
// render without manual cleanup.
//
// Output is written to a temporary file next to the destination and renamed
// into place, so a failed render never leaves a partial document behind.
package templating
