package parser

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"document-diff/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnreadable        = errors.New("unreadable document")
)

var wordTextRe = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

// SupportedExtensions lists the extensions ExtractText understands.
var SupportedExtensions = []string{".pdf", ".docx", ".md", ".xlsx", ".xlsm", ".xltx", ".xltm", ".txt"}

// Supported reports whether name has an extension ExtractText can read.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ExtractFile reads filePath from disk and extracts its plain text.
func ExtractFile(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return ExtractText(filePath, data)
}

// ExtractText returns the plain text of a document. The format is chosen from the
// extension of name. Paragraphs are separated by blank lines.
func ExtractText(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	log.Debug().Str("file", name).Str("format", ext).Int("bytes", len(data)).Msg("Extracting text")

	var (
		content string
		err     error
	)
	switch ext {
	case ".pdf":
		content, err = parsePDF(data)
	case ".docx":
		content, err = parseDOCX(data)
	case ".md":
		content, err = parseMarkdown(data)
	case ".xlsx":
		content, err = parseXLSX(data)
	case ".xlsm", ".xltx", ".xltm":
		content, err = parseWorkbook(data)
	case ".txt":
		content, err = parseText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return strings.TrimSpace(content), nil
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %v", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString(models.ParagraphSeparator)
	}
	return sb.String(), nil
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var paragraphs []string
	for _, p := range strings.Split(content, "</w:p>") {
		t := extractTextFromXML(p)
		if strings.TrimSpace(t) == "" {
			continue
		}
		paragraphs = append(paragraphs, t)
	}
	return strings.Join(paragraphs, models.ParagraphSeparator), nil
}

// parseMarkdown keeps one paragraph per markdown block. Inline markup is left as written.
func parseMarkdown(data []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(data))

	var paragraphs []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock, ast.KindCodeBlock, ast.KindFencedCodeBlock:
			if block := blockText(n, data); block != "" {
				paragraphs = append(paragraphs, block)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(paragraphs, models.ParagraphSeparator), nil
}

func blockText(n ast.Node, source []byte) string {
	lines := n.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		parts = append(parts, strings.TrimRight(string(seg.Value(source)), "\r\n"))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func parseXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var rows []string
	for _, sheet := range f.Sheets {
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			if line := joinRow(cells); line != "" {
				rows = append(rows, line)
			}
		}
	}
	return strings.Join(rows, models.ParagraphSeparator), nil
}

// parseWorkbook covers the macro-enabled and template workbook formats.
func parseWorkbook(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var rows []string
	for _, sheetName := range f.GetSheetList() {
		sheetRows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Msg("Skipping unreadable sheet")
			continue
		}
		for _, row := range sheetRows {
			if line := joinRow(row); line != "" {
				rows = append(rows, line)
			}
		}
	}
	return strings.Join(rows, models.ParagraphSeparator), nil
}

func parseText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	return string(data), nil
}

func joinRow(cells []string) string {
	var nonEmpty []string
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	return strings.Join(nonEmpty, "\t")
}

// extractTextFromXML concatenates the <w:t> runs of a WordprocessingML fragment.
func extractTextFromXML(xmlContent string) string {
	var sb strings.Builder
	for _, m := range wordTextRe.FindAllStringSubmatch(xmlContent, -1) {
		sb.WriteString(html.UnescapeString(m[1]))
	}
	return sb.String()
}
