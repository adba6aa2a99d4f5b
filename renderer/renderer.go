package renderer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/byte4ever/docxfill/digester"
	"github.com/byte4ever/docxfill/normalizer"
)

// Pattern: Strategy -- the renderer does not know the
// document format, the engine does.

// Engine writes a document rendered from a template and a
// normalized text map.
type Engine interface {
	Render(
		tplPath string,
		outPath string,
		values map[string]string,
	) error
}

// Renderer normalizes contexts and drives an Engine.
type Renderer struct {
	Rules  normalizer.Rules
	Engine Engine

	// Sidecar writes the output digest next to the
	// document when true.
	Sidecar bool
}

// Result describes a written document.
type Result struct {
	OutputPath string
	Digest     string
	Values     normalizer.Values
}

// New returns a Renderer using the default rules.
func New(engine Engine) *Renderer {
	return &Renderer{
		Rules:  normalizer.DefaultRules(),
		Engine: engine,
	}
}

// Render normalizes ctx and renders the template at
// tplPath into outPath. ctx is not modified.
func (r *Renderer) Render(
	tplPath string,
	outPath string,
	ctx normalizer.Context,
) (Result, error) {
	const errCtx = "rendering document"

	if tplPath == "" || outPath == "" {
		return Result{}, &Error{
			Kind: KindArgument,
			Err: fmt.Errorf(
				"%s: template and output paths must be set",
				errCtx,
			),
		}
	}

	if r.Engine == nil {
		return Result{}, &Error{
			Kind: KindArgument,
			Err:  errors.New(errCtx + ": no template engine"),
		}
	}

	vals := r.Rules.Apply(ctx)

	slog.Info(
		"rendering",
		"template", tplPath,
		"output", outPath,
		"fields", len(vals),
	)

	if err := r.Engine.Render(tplPath, outPath, vals); err != nil {
		return Result{}, &Error{
			Kind: KindRender,
			Err:  fmt.Errorf("%s: %w", errCtx, err),
		}
	}

	res := Result{OutputPath: outPath, Values: vals}

	digest, err := r.digest(outPath)
	if err != nil {
		slog.Warn("cannot compute digest", "output", outPath, "error", err)
	}

	res.Digest = digest

	return res, nil
}

// RenderJSON decodes raw as a context and renders it.
func (r *Renderer) RenderJSON(
	tplPath string,
	outPath string,
	raw []byte,
) (Result, error) {
	ctx, err := DecodeContext(raw)
	if err != nil {
		return Result{}, err
	}

	return r.Render(tplPath, outPath, ctx)
}

func (r *Renderer) digest(outPath string) (string, error) {
	if r.Sidecar {
		return digester.WriteSidecar(outPath)
	}

	return digester.Sum(outPath)
}
