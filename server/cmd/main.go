// Package main provides the docxfill HTTP server that
// renders petition templates on demand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/byte4ever/docxfill/cnpj"
	"github.com/byte4ever/docxfill/converter"
	"github.com/byte4ever/docxfill/normalizer"
	"github.com/byte4ever/docxfill/renderer"
	"github.com/byte4ever/docxfill/server"
	"github.com/byte4ever/docxfill/templating"
)

func defaultAddr() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}

	return ":3000"
}

func run() error {
	const errCtx = "docxfill server"

	var (
		addr           string
		templatesDir   string
		outDir         string
		publicDir      string
		banksFile      string
		rulesFile      string
		soffice        string
		convertTimeout time.Duration
		strict         bool
	)

	flag.StringVar(
		&addr, "addr", defaultAddr(),
		"listen address (default from PORT)",
	)

	flag.StringVar(
		&templatesDir, "templates", "templates",
		"directory holding the .docx templates",
	)

	flag.StringVar(
		&outDir, "out", "out",
		"directory receiving rendered documents",
	)

	flag.StringVar(
		&publicDir, "public", "public",
		"directory holding the web front end",
	)

	flag.StringVar(
		&banksFile, "banks", "",
		"JSON file with known companies for CNPJ lookup",
	)

	flag.StringVar(
		&rulesFile, "rules", "",
		"YAML file overriding the normalization rules",
	)

	flag.StringVar(
		&soffice, "soffice", converter.DefaultCommand,
		"LibreOffice binary used for PDF conversion",
	)

	flag.DurationVar(
		&convertTimeout, "convert_timeout", converter.DefaultTimeout,
		"timeout of one PDF conversion",
	)

	flag.BoolVar(
		&strict, "strict", false,
		"fail on placeholders without a value",
	)

	flag.Parse()

	rn := renderer.New(&templating.Engine{Strict: strict})

	if rulesFile != "" {
		rules, err := normalizer.LoadRules(rulesFile)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		rn.Rules = rules
	}

	var banks []cnpj.Company

	if banksFile != "" {
		loaded, err := cnpj.LoadBanks(banksFile)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		banks = loaded
	}

	gin.SetMode(gin.ReleaseMode)

	srv, err := server.New(server.Config{
		TemplatesDir: templatesDir,
		OutDir:       outDir,
		PublicDir:    publicDir,
		Renderer:     rn,
		Converter: &converter.Converter{
			Command: soffice,
			Timeout: convertTimeout,
		},
		Finder: cnpj.NewFinder(banks),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
