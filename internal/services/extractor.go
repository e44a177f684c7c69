package services

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Per-format size caps; an oversized file fails extraction with a size-limit
// error rather than being read.
const (
	maxTxtBytes  = 5 << 20
	maxPDFBytes  = 20 << 20
	maxDocxBytes = 20 << 20
)

// TextExtractor produces plain text from an uploaded document. Callers at
// the pipeline boundary treat any failure as empty text.
type TextExtractor interface {
	Extract(filePath string) (string, error)
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

func (e *textExtractor) Extract(filePath string) (string, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".txt":
		return extractTxt(filePath)
	case ".pdf":
		return extractPDF(filePath)
	case ".docx":
		return extractDocx(filePath)
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
}

func checkSize(filePath string, limit int64) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}
	if info.Size() > limit {
		return fmt.Errorf("file too large: %d bytes > %d bytes", info.Size(), limit)
	}
	return nil
}

func extractTxt(filePath string) (string, error) {
	if err := checkSize(filePath, maxTxtBytes); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read txt: %w", err)
	}
	return string(data), nil
}

func extractPDF(filePath string) (string, error) {
	if err := checkSize(filePath, maxPDFBytes); err != nil {
		return "", err
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest.
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}

	return text, nil
}

// docx paragraph markup, just enough to pull text runs out of word/document.xml
type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

func extractDocx(filePath string) (string, error) {
	if err := checkSize(filePath, maxDocxBytes); err != nil {
		return "", err
	}

	reader, err := zip.OpenReader(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read docx document: %w", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read docx document: %w", err)
		}

		var doc docxDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("failed to parse docx document: %w", err)
		}

		var lines []string
		for _, para := range doc.Body.Paragraphs {
			var b strings.Builder
			for _, run := range para.Runs {
				b.WriteString(run.Text)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n"), nil
	}

	return "", fmt.Errorf("docx has no word/document.xml")
}

// CleanText trims and collapses blank lines.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	var cleanedLines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
