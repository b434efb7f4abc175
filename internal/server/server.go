// Package server exposes comparison and analysis over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-diff/internal/analysis"
	"document-diff/internal/compare"
	"document-diff/internal/db"
	"document-diff/internal/models"
	"document-diff/internal/obligations"
	"document-diff/internal/parser"
)

const (
	serviceName      = "Legal Document Diff API"
	serviceVersion   = "1.0.0"
	defaultListLimit = 20
	shutdownTimeout  = 5 * time.Second
)

type Comparer interface {
	CompareDocuments(ctx context.Context, original, revised compare.Document) (*models.ComparisonReport, error)
	CompareText(ctx context.Context, originalText, revisedText string) (*models.ComparisonReport, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, text string) (*models.PromptResponse, error)
}

type ObligationExtractor interface {
	Extract(ctx context.Context, documentName, text string) (*models.ObligationReport, error)
}

// ReportArchive stores finished comparisons. A nil archive disables archiving.
type ReportArchive interface {
	Store(ctx context.Context, originalName, revisedName string, report *models.ComparisonReport) error
	List(ctx context.Context, limit int) ([]db.ComparisonRecord, error)
}

// ModelInfo names the configured models. The health check reports a model as
// configured only when both names are set.
type ModelInfo struct {
	Embedding string
	Inference string
}

type Server struct {
	comparer  Comparer
	analyzer  Analyzer
	extractor ObligationExtractor
	archive   ReportArchive
	modelInfo ModelInfo
}

func New(comparer Comparer, analyzer Analyzer, extractor ObligationExtractor, archive ReportArchive, info ModelInfo) *Server {
	return &Server{comparer: comparer, analyzer: analyzer, extractor: extractor, archive: archive, modelInfo: info}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.POST("/analyze-document", s.handleAnalyzeDocument)
	r.POST("/analyze-text", s.handleAnalyzeText)
	r.POST("/extract-obligations", s.handleExtractObligations)

	g := r.Group("/api/compare")
	g.POST("/compare-documents", s.handleCompareDocuments)
	g.POST("/compare-text", s.handleCompareText)
	g.GET("/reports", s.handleListReports)
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": serviceName,
		"version": serviceVersion,
		"endpoints": gin.H{
			"/api/compare/compare-documents": "POST - Upload an original and a revised document to compare",
			"/api/compare/compare-text":      "POST - Compare two texts directly",
			"/api/compare/reports":           "GET - List archived comparisons",
			"/analyze-document":              "POST - Upload a legal document for analysis",
			"/analyze-text":                  "POST - Analyze legal text directly",
			"/extract-obligations":           "POST - Extract obligations and deadlines from a document or text",
			"/health":                        "GET - Check API health status",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"model_configured": s.modelInfo.Embedding != "" && s.modelInfo.Inference != "",
		"embedding_model":  s.modelInfo.Embedding,
		"inference_model":  s.modelInfo.Inference,
		"archive_enabled":  s.archive != nil,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

type compareTextRequest struct {
	OriginalText string `json:"originalText"`
	RevisedText  string `json:"revisedText"`
}

type analyzeTextRequest struct {
	Text string `json:"text"`
}

type obligationsRequest struct {
	Text         string `json:"text"`
	DocumentName string `json:"document_name"`
}

func (s *Server) handleCompareDocuments(c *gin.Context) {
	original, err := readUpload(c, "original_file")
	if err != nil {
		badRequest(c, err)
		return
	}
	revised, err := readUpload(c, "revised_file")
	if err != nil {
		badRequest(c, err)
		return
	}

	report, err := s.comparer.CompareDocuments(c.Request.Context(), original, revised)
	if err != nil {
		fail(c, err)
		return
	}
	s.archiveReport(c.Request.Context(), original.Name, revised.Name, report)
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleCompareText(c *gin.Context) {
	var req compareTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	report, err := s.comparer.CompareText(c.Request.Context(), req.OriginalText, req.RevisedText)
	if err != nil {
		fail(c, err)
		return
	}
	s.archiveReport(c.Request.Context(), "original text", "revised text", report)
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListReports(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, fmt.Errorf("limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}

	records := []db.ComparisonRecord{}
	if s.archive != nil {
		var err error
		records, err = s.archive.List(c.Request.Context(), limit)
		if err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"reports": records})
}

func (s *Server) handleAnalyzeDocument(c *gin.Context) {
	upload, err := readUpload(c, "file")
	if err != nil {
		badRequest(c, err)
		return
	}
	text, err := parser.ExtractText(upload.Name, upload.Data)
	if err != nil {
		badRequest(c, fmt.Errorf("failed to extract text from %s: %w", upload.Name, err))
		return
	}

	res, err := s.analyzer.Analyze(c.Request.Context(), text)
	if err != nil {
		fail(c, err)
		return
	}
	res.Filename = upload.Name
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleAnalyzeText(c *gin.Context) {
	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	res, err := s.analyzer.Analyze(c.Request.Context(), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleExtractObligations accepts either a multipart "file" upload or a JSON body.
func (s *Server) handleExtractObligations(c *gin.Context) {
	var name, text string
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		upload, err := readUpload(c, "file")
		if err != nil {
			badRequest(c, err)
			return
		}
		text, err = parser.ExtractText(upload.Name, upload.Data)
		if err != nil {
			badRequest(c, fmt.Errorf("failed to extract text from %s: %w", upload.Name, err))
			return
		}
		name = upload.Name
	} else {
		var req obligationsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, fmt.Errorf("invalid request body: %w", err))
			return
		}
		name, text = req.DocumentName, req.Text
	}

	report, err := s.extractor.Extract(c.Request.Context(), name, text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) archiveReport(ctx context.Context, originalName, revisedName string, report *models.ComparisonReport) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Store(context.WithoutCancel(ctx), originalName, revisedName, report); err != nil {
		log.Error().Err(err).Msg("Failed to archive comparison report")
	}
}

func readUpload(c *gin.Context, field string) (compare.Document, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return compare.Document{}, fmt.Errorf("%s is required", field)
	}
	if !parser.Supported(fh.Filename) {
		return compare.Document{}, fmt.Errorf("unsupported file type %q for %s", filepath.Ext(fh.Filename), field)
	}

	f, err := fh.Open()
	if err != nil {
		return compare.Document{}, fmt.Errorf("failed to open %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return compare.Document{}, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return compare.Document{Name: fh.Filename, Data: data}, nil
}

func isInputError(err error) bool {
	return compare.IsInputError(err) ||
		errors.Is(err, analysis.ErrEmptyText) ||
		errors.Is(err, obligations.ErrEmptyText) ||
		errors.Is(err, parser.ErrUnsupportedFormat) ||
		errors.Is(err, parser.ErrUnreadable)
}

func fail(c *gin.Context, err error) {
	if isInputError(err) {
		badRequest(c, err)
		return
	}
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected request")
	c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
}
