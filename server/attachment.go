package server

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/byte4ever/docxfill/normalizer"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	pdfContentType  = "application/pdf"
	zipContentType  = "application/zip"

	attachmentPrefix = "Peticao_Inicial_"
)

// Attachment formats served by the petition routes.
const (
	formatDocx = "docx"
	formatPDF  = "pdf"
	formatZip  = "zip"
)

// DefaultPetitionTypes maps each petition type to its
// template file.
func DefaultPetitionTypes() map[string]string {
	return map[string]string{
		"com_tutela": "01_Peticao_Inicial_Emprestimo_Tutela_" +
			"Nome_Sobrenome_Parte_Autora_x_Razao_Social_Re_LIMPO.docx",
		"sem_tutela": "01_Peticao_Inicial_Emprestimo_Sem_Tutela_" +
			"Nome_Sobrenome_Parte_Autora_x_Razao_Social_Re_LIMPO.docx",
	}
}

type petitionRequest struct {
	Tipo  string             `json:"tipo"`
	Dados normalizer.Context `json:"dados"`
}

// petition renders the template of a petition type and
// sends the result as an attachment in format.
func (s *Server) petition(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := decodePetitionRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}

		tplName, ok := s.cfg.PetitionTypes[req.Tipo]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "invalid petition type: " + req.Tipo,
			})

			return
		}

		tplPath, status, err := s.templatePath(tplName)
		if err != nil {
			c.JSON(status, gin.H{"success": false, "error": err.Error()})
			return
		}

		work, cleanup, err := s.workDir()
		if err != nil {
			s.fail(c, "cannot create work dir", err)
			return
		}

		defer cleanup()

		docxPath := filepath.Join(work, attachmentPrefix+req.Tipo+docxExt)

		if _, err := s.cfg.Renderer.Render(tplPath, docxPath, req.Dados); err != nil {
			slog.Error("cannot generate docx", "tipo", req.Tipo, "error", err)
			c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})

			return
		}

		if format == formatDocx {
			s.sendFile(c, docxPath, docxContentType)
			return
		}

		pdfPath, err := s.cfg.Converter.ToPDF(c.Request.Context(), docxPath, work)
		if err != nil {
			s.fail(c, "cannot generate pdf", err)
			return
		}

		if format == formatPDF {
			s.sendFile(c, pdfPath, pdfContentType)
			return
		}

		archive, err := zipFiles(docxPath, pdfPath)
		if err != nil {
			s.fail(c, "cannot build zip", err)
			return
		}

		c.Header("Content-Disposition", contentDisposition(attachmentPrefix+req.Tipo+".zip"))
		c.Data(http.StatusOK, zipContentType, archive)
	}
}

func decodePetitionRequest(c *gin.Context) (petitionRequest, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return petitionRequest{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var req petitionRequest
	if err := dec.Decode(&req); err != nil {
		return petitionRequest{}, fmt.Errorf("decoding request: %w", err)
	}

	if req.Tipo == "" || req.Dados == nil {
		return petitionRequest{}, errors.New("tipo and dados are required")
	}

	return req, nil
}

func (s *Server) sendFile(c *gin.Context, pa string, contentType string) {
	content, err := os.ReadFile(pa) //nolint:gosec // path built by the server
	if err != nil {
		s.fail(c, "cannot read generated file", err)
		return
	}

	c.Header("Content-Disposition", contentDisposition(filepath.Base(pa)))
	c.Data(http.StatusOK, contentType, content)
}

func (s *Server) fail(c *gin.Context, msg string, err error) {
	slog.Error(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
}

func contentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}

// zipFiles returns a zip archive holding each file under
// its base name.
func zipFiles(paths ...string) ([]byte, error) {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for _, pa := range paths {
		if err := addFile(zw, pa); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, pa string) error {
	fi, err := os.Open(pa) //nolint:gosec // path built by the server
	if err != nil {
		return err
	}

	defer fi.Close() //nolint:errcheck // read-only

	wr, err := zw.Create(filepath.Base(pa))
	if err != nil {
		return err
	}

	_, err = io.Copy(wr, fi)

	return err
}
