// Binary docxfill renders a DOCX template with a JSON
// context:
//
//	docxfill [flags] <template.docx> <output.docx> '<json_context>'
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/byte4ever/docxfill/normalizer"
	"github.com/byte4ever/docxfill/renderer"
	"github.com/byte4ever/docxfill/templating"
)

const usage = "Usage: docxfill [flags] <template.docx> <output.docx> '<json_context>'"

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	var (
		rulesFile string
		strict    bool
		sidecar   bool
		startTag  string
		endTag    string
	)

	fs := flag.NewFlagSet("docxfill", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprintln(stdout, usage) //nolint:errcheck // console output
		fs.PrintDefaults()
	}

	fs.StringVar(
		&rulesFile, "rules", "",
		"YAML file overriding the normalization rules",
	)

	fs.BoolVar(
		&strict, "strict", false,
		"Fail on placeholders without a value",
	)

	fs.BoolVar(
		&sidecar, "digest", false,
		"Write the output SHA-256 to <output>.sha256",
	)

	fs.StringVar(
		&startTag, "start_tag", "{{",
		"Start tag for template placeholders",
	)

	fs.StringVar(
		&endTag, "end_tag", "}}",
		"End tag for template placeholders",
	)

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if fs.NArg() != 3 {
		fs.Usage()

		return 1
	}

	tplPath, outPath, contextJSON := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	ctx, err := renderer.DecodeContext([]byte(contextJSON))
	if err != nil {
		logger.Error(err.Error())

		return 1
	}

	rn := renderer.New(&templating.Engine{
		StartTag: startTag,
		EndTag:   endTag,
		Strict:   strict,
	})
	rn.Sidecar = sidecar

	if rulesFile != "" {
		rules, err := normalizer.LoadRules(rulesFile)
		if err != nil {
			logger.Error(err.Error())

			return 1
		}

		rn.Rules = rules
	}

	res, err := rn.Render(tplPath, outPath, ctx)
	if err != nil {
		logger.Error(err.Error())

		return 1
	}

	fmt.Fprintf(stdout, "DOCX generated: %s\n", res.OutputPath) //nolint:errcheck // console output

	return 0
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
