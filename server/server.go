package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/byte4ever/docxfill/cnpj"
	"github.com/byte4ever/docxfill/naming"
	"github.com/byte4ever/docxfill/normalizer"
	"github.com/byte4ever/docxfill/renderer"
)

const (
	docxExt       = ".docx"
	cleanSuffix   = "_LIMPO" + docxExt
	outRoute      = "/out"
	shutdownGrace = 10 * time.Second
)

// PDFConverter converts a rendered document to PDF.
type PDFConverter interface {
	ToPDF(ctx context.Context, docxPath string, outDir string) (string, error)
}

// CompanyFinder looks companies up by CNPJ.
type CompanyFinder interface {
	Find(ctx context.Context, cnpj string) (cnpj.Result, error)
	Raw(ctx context.Context, source string, cnpj string) (int, []byte, error)
}

// Config holds the server collaborators and directories.
type Config struct {
	// TemplatesDir holds the .docx templates offered to
	// clients.
	TemplatesDir string

	// OutDir receives rendered documents, served under
	// /out.
	OutDir string

	// Renderer renders templates; required.
	Renderer *renderer.Renderer

	// Converter enables the PDF routes when set.
	Converter PDFConverter

	// Finder enables the CNPJ routes when set.
	Finder CompanyFinder

	// WorkDir holds one private directory per request while
	// documents are rendered and converted. Defaults to a
	// sibling of OutDir.
	WorkDir string

	// PublicDir holds the web front end; index.html is
	// served at / when set.
	PublicDir string

	// PetitionTypes maps a petition type to its template
	// file; DefaultPetitionTypes when nil.
	PetitionTypes map[string]string
}

// Server serves the document generation API.
type Server struct {
	cfg    Config
	router *gin.Engine
}

// Template describes one template offered to clients.
type Template struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type generateRequest struct {
	Template string             `json:"template"`
	Context  normalizer.Context `json:"context"`
}

// New validates cfg and builds the router.
func New(cfg Config) (*Server, error) {
	const errCtx = "creating server"

	if cfg.TemplatesDir == "" {
		return nil, fmt.Errorf("%s: templates dir must be set", errCtx)
	}

	if cfg.OutDir == "" {
		return nil, fmt.Errorf("%s: output dir must be set", errCtx)
	}

	if cfg.Renderer == nil {
		return nil, fmt.Errorf("%s: renderer must be set", errCtx)
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Clean(cfg.OutDir) + ".work"
	}

	if cfg.PetitionTypes == nil {
		cfg.PetitionTypes = DefaultPetitionTypes()
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil { //nolint:gosec // served files
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.MkdirAll(cfg.WorkDir, 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	srv := &Server{cfg: cfg}
	srv.router = srv.routes()

	return srv, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	const errCtx = "running server"

	hs := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("server listening", "addr", addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s: %w", errCtx, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), shutdownGrace,
	)
	defer cancel()

	if err := hs.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // parent is done
		return fmt.Errorf("%s: shutdown: %w", errCtx, err)
	}

	return nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware())

	api := router.Group("/api")
	api.GET("/health", s.health)
	api.GET("/templates", s.templates)

	gen := api.Group("/generate")
	gen.POST("/docx", s.generate(false, true))
	api.POST("/gerar-docx", s.petition(formatDocx))

	if s.cfg.Converter != nil {
		gen.POST("/pdf", s.generate(true, false))
		gen.POST("/both", s.generate(true, true))
		api.POST("/gerar-pdf", s.petition(formatPDF))
		api.POST("/gerar-ambos", s.petition(formatZip))
	}

	if s.cfg.Finder != nil {
		api.GET("/cnpj/:cnpj", s.findCompany)
		api.GET("/cnpj/"+cnpj.SourceBrasilAPI+"/:cnpj", s.proxyCompany(cnpj.SourceBrasilAPI))
		api.GET("/cnpj/"+cnpj.SourceReceitaWS+"/:cnpj", s.proxyCompany(cnpj.SourceReceitaWS))
	}

	router.Static(outRoute, s.cfg.OutDir)

	if s.cfg.PublicDir != "" {
		router.StaticFile("/", filepath.Join(s.cfg.PublicDir, "index.html"))
		router.Static("/public", s.cfg.PublicDir)
	}

	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) templates(c *gin.Context) {
	entries, err := os.ReadDir(s.cfg.TemplatesDir)
	if err != nil {
		slog.Error("cannot list templates", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})

		return
	}

	templates := []Template{}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, cleanSuffix) ||
			strings.HasPrefix(name, "~$") {
			continue
		}

		templates = append(templates, Template{
			Name: strings.TrimSuffix(name, cleanSuffix),
			Path: name,
		})
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Path < templates[j].Path
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "templates": templates})
}

// generate renders the requested template and, when pdf is
// set, converts it. keepDocx controls whether the DOCX URL
// is part of the answer. Each request works in its own
// directory and publishes finished files into OutDir by
// rename.
func (s *Server) generate(pdf bool, keepDocx bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := decodeGenerateRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tplPath, status, err := s.templatePath(req.Template)
		if err != nil {
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		work, cleanup, err := s.workDir()
		if err != nil {
			slog.Error("cannot create work dir", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		defer cleanup()

		outName := naming.FileName(normalizer.Stringify(req.Context), "docx")
		workPath := filepath.Join(work, outName)

		res, err := s.cfg.Renderer.Render(tplPath, workPath, req.Context)
		if err != nil {
			slog.Error("cannot generate docx", "error", err)
			c.JSON(statusFor(err), gin.H{"error": err.Error()})

			return
		}

		published := []string{}
		body := gin.H{}

		if keepDocx {
			published = append(published, workPath)
			body["docx_url"] = outRoute + "/" + outName
			body["digest"] = res.Digest
		}

		if pdf {
			pdfPath, err := s.cfg.Converter.ToPDF(c.Request.Context(), workPath, work)
			if err != nil {
				slog.Error("cannot generate pdf", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

				return
			}

			published = append(published, pdfPath)
			body["pdf_url"] = outRoute + "/" + filepath.Base(pdfPath)
		}

		for _, pa := range published {
			if err := os.Rename(pa, filepath.Join(s.cfg.OutDir, filepath.Base(pa))); err != nil {
				slog.Error("cannot publish document", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

				return
			}
		}

		c.JSON(http.StatusOK, body)
	}
}

// workDir creates a private directory for one request and
// returns a func removing it.
func (s *Server) workDir() (string, func(), error) {
	dir, err := os.MkdirTemp(s.cfg.WorkDir, "req-*")
	if err != nil {
		return "", nil, err
	}

	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("cannot remove work dir", "dir", dir, "error", err)
		}
	}, nil
}

func decodeGenerateRequest(c *gin.Context) (generateRequest, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return generateRequest{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var req generateRequest
	if err := dec.Decode(&req); err != nil {
		return generateRequest{}, fmt.Errorf("decoding request: %w", err)
	}

	if req.Template == "" || req.Context == nil {
		return generateRequest{}, errors.New("template and context are required")
	}

	return req, nil
}

// templatePath resolves a template name inside the
// templates directory. Names carrying a directory are
// rejected.
func (s *Server) templatePath(name string) (string, int, error) {
	if filepath.Base(name) != name || !strings.HasSuffix(name, docxExt) {
		return "", http.StatusBadRequest, fmt.Errorf("invalid template: %s", name)
	}

	pa := filepath.Join(s.cfg.TemplatesDir, name)

	if _, err := os.Stat(pa); err != nil {
		return "", http.StatusNotFound, fmt.Errorf("template not found: %s", name)
	}

	return pa, http.StatusOK, nil
}

func (s *Server) findCompany(c *gin.Context) {
	res, err := s.cfg.Finder.Find(c.Request.Context(), c.Param("cnpj"))

	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, cnpj.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, cnpj.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	default:
		slog.Error("cannot find cnpj", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}

// proxyCompany answers with the body of one remote CNPJ
// source unchanged.
func (s *Server) proxyCompany(source string) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, body, err := s.cfg.Finder.Raw(c.Request.Context(), source, c.Param("cnpj"))

		switch {
		case errors.Is(err, cnpj.ErrInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case err != nil:
			slog.Error("cannot query cnpj source", "source", source, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		case code >= http.StatusBadRequest:
			c.JSON(code, gin.H{
				"error": fmt.Sprintf("%s answered with status %d", source, code),
			})
		default:
			c.Data(code, "application/json; charset=utf-8", body)
		}
	}
}

func statusFor(err error) int {
	var rerr *renderer.Error
	if errors.As(err, &rerr) && rerr.Kind != renderer.KindRender {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
