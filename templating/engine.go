package templating

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/valyala/fasttemplate"
)

// ErrMissingKey is returned in strict mode when a
// placeholder has no value.
var ErrMissingKey = errors.New("missing value for placeholder")

// templateParts matches the archive entries holding
// document text.
var templateParts = regexp.MustCompile(
	`^word/(document|header\d*|footer\d*|footnotes|endnotes)\.xml$`,
)

var (
	// ErrSplitPlaceholder is returned when a placeholder
	// spans markup other than text runs, such as a
	// hyperlink or a field.
	ErrSplitPlaceholder = errors.New("placeholder crosses a container element")

	// ErrMalformedPart is returned when a rendered part is
	// not well-formed XML.
	ErrMalformedPart = errors.New("rendered part is not well-formed XML")
)

var (
	xmlMarkup = regexp.MustCompile(`<[^>]*>`)

	// runMarkup matches the tags Word puts between pieces
	// of one run of text: run, run properties, text,
	// proofing marks, bookmarks and any empty element.
	runMarkup = regexp.MustCompile(
		`<(?:/?w:(?:r|rPr|t|proofErr|bookmarkStart|bookmarkEnd)(?:\s[^>]*)?|[^>]*/)>`,
	)

	paragraphMark = regexp.MustCompile(`</?w:p[\s/>]`)
)

// Engine renders DOCX templates.
type Engine struct {
	StartTag string
	EndTag   string

	// Strict makes unknown placeholders an error instead
	// of rendering them empty.
	Strict bool
}

// Render reads the DOCX template at tplPath, substitutes
// placeholders with values and writes the document to
// outPath.
//
// Processing order:
//  1. Open the template archive.
//  2. For each text part, repair placeholders split by
//     Word runs, substitute values XML-escaped and check
//     the result is well-formed XML.
//  3. Copy all other entries unchanged.
//  4. Rename the finished temporary file onto outPath.
func (en *Engine) Render(
	tplPath string,
	outPath string,
	values map[string]string,
) (retErr error) {
	const errCtx = "rendering template"

	zr, err := zip.OpenReader(tplPath)
	if err != nil {
		return fmt.Errorf("%s: opening %s: %w", errCtx, tplPath, err)
	}

	defer zr.Close() //nolint:errcheck // read-only archive

	out, commit, err := en.openOutput(outPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		retErr = commit(retErr)
		if retErr != nil {
			retErr = fmt.Errorf("%s: %w", errCtx, retErr)
		}
	}()

	zw := zip.NewWriter(out)

	for _, entry := range zr.File {
		if !templateParts.MatchString(entry.Name) {
			if err := zw.Copy(entry); err != nil {
				return fmt.Errorf("copying %s: %w", entry.Name, err)
			}

			continue
		}

		if err := en.renderPart(zw, entry, values); err != nil {
			return fmt.Errorf("rendering %s: %w", entry.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}

	return nil
}

func (en *Engine) renderPart(
	zw *zip.Writer,
	entry *zip.File,
	values map[string]string,
) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}

	content, err := io.ReadAll(rc)
	_ = rc.Close() //nolint:errcheck // fully read

	if err != nil {
		return err
	}

	rendered, err := en.Expand(string(content), values)
	if err != nil {
		return err
	}

	if err := wellFormed(rendered); err != nil {
		return err
	}

	wr, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entry.Name,
		Method:   zip.Deflate,
		Modified: entry.Modified,
	})
	if err != nil {
		return err
	}

	_, err = io.WriteString(wr, rendered)

	return err
}

// Expand substitutes placeholders in a WordprocessingML
// fragment. Placeholder names are trimmed of spaces and
// values are XML-escaped.
func (en *Engine) Expand(
	src string,
	values map[string]string,
) (string, error) {
	startTag, endTag := en.tags()

	src, err := en.repair(src, startTag, endTag)
	if err != nil {
		return "", err
	}

	return fasttemplate.ExecuteFuncStringWithErr(
		src, startTag, endTag,
		func(w io.Writer, tag string) (int, error) {
			name := strings.TrimSpace(tag)

			val, ok := values[name]
			if !ok && en.Strict {
				return 0, fmt.Errorf("%w: %s", ErrMissingKey, name)
			}

			var sb strings.Builder
			if err := xml.EscapeText(&sb, []byte(val)); err != nil {
				return 0, err
			}

			return io.WriteString(w, sb.String())
		},
	)
}

// repair joins placeholders that Word split across runs.
// Run-level markup between the characters of a delimiter
// is dropped first. Each start tag is then paired with
// the next end tag of the same paragraph and the run
// markup between them is stripped. A start tag with no
// end tag in its paragraph is kept as literal text.
func (en *Engine) repair(
	src string,
	startTag string,
	endTag string,
) (string, error) {
	for _, tag := range []string{startTag, endTag} {
		src = splitTagPattern(tag).ReplaceAllLiteralString(src, tag)
	}

	var sb strings.Builder

	for {
		idx := strings.Index(src, startTag)
		if idx < 0 {
			sb.WriteString(src)

			return sb.String(), nil
		}

		sb.WriteString(src[:idx])
		rest := src[idx+len(startTag):]

		end := strings.Index(rest, endTag)
		inner := rest
		if end >= 0 {
			inner = rest[:end]
		}

		if end < 0 ||
			strings.Contains(inner, startTag) ||
			paragraphMark.MatchString(inner) {
			sb.WriteString(literal(startTag))
			src = rest

			continue
		}

		name := runMarkup.ReplaceAllString(inner, "")
		if strings.Contains(name, "<") {
			return "", fmt.Errorf(
				"%w: %s",
				ErrSplitPlaceholder,
				strings.TrimSpace(xmlMarkup.ReplaceAllString(inner, "")),
			)
		}

		sb.WriteString(startTag + name + endTag)
		src = rest[end+len(endTag):]
	}
}

// literal encodes tag as character references so the
// substitution pass reads it as plain text.
func literal(tag string) string {
	var sb strings.Builder
	for _, ch := range tag {
		fmt.Fprintf(&sb, "&#%d;", ch)
	}

	return sb.String()
}

// splitTagPattern matches tag with optional run markup
// between each of its characters.
func splitTagPattern(tag string) *regexp.Regexp {
	chars := make([]string, 0, len(tag))
	for _, ch := range tag {
		chars = append(chars, regexp.QuoteMeta(string(ch)))
	}

	return regexp.MustCompile(
		strings.Join(chars, `(?:`+runMarkup.String()+`)*`),
	)
}

// wellFormed walks the XML tokens of a rendered part.
func wellFormed(part string) error {
	dec := xml.NewDecoder(strings.NewReader(part))

	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedPart, err)
		}
	}
}

// tags returns the configured start/end tags, falling
// back to double-brace defaults.
func (en *Engine) tags() (string, string) {
	startTag := en.StartTag
	if startTag == "" {
		startTag = "{{"
	}

	endTag := en.EndTag
	if endTag == "" {
		endTag = "}}"
	}

	return startTag, endTag
}

// openOutput creates a temporary file next to outPath.
// The returned commit function closes it and, when err is
// nil, renames it onto outPath; otherwise it removes it.
func (en *Engine) openOutput(
	outPath string,
) (io.Writer, func(error) error, error) {
	const errCtx = "opening output"

	fi, err := os.CreateTemp(
		filepath.Dir(outPath), "."+filepath.Base(outPath)+".*.tmp",
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	commit := func(err error) error {
		if err == nil {
			err = fi.Chmod(0o644)
		}

		closeErr := fi.Close()
		if err == nil && closeErr != nil {
			err = closeErr
		}

		if err == nil {
			err = os.Rename(fi.Name(), outPath)
		}

		if err != nil {
			_ = os.Remove(fi.Name()) //nolint:errcheck // best-effort cleanup
		}

		return err
	}

	return fi, commit, nil
}
