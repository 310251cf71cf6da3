// Package document turns statement documents into plain text for a text model.
package document

import (
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/tabular"
)

// Text extracts readable text from a PDF, a DOCX or a plain-text file, picked
// by fileName's extension. It never fails: a document that cannot be parsed
// yields whatever text a best-effort scan recovers, possibly "".
func Text(data []byte, fileName string, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		text string
		err  error
	)
	ext := constants.NormalizeExt(filepath.Ext(fileName))
	switch ext {
	case "pdf":
		text, err = pdfText(data)
		if err != nil || strings.TrimSpace(text) == "" {
			logger.Warn("document.pdf.fallback", "file_name", fileName, "error", err)
			text = cleanPDFText(extractTextFromStream(data))
		}
	case "docx":
		text, err = docxText(data)
		if err != nil {
			logger.Warn("document.docx.fallback", "file_name", fileName, "error", err)
			text = printableText(data)
		}
	default:
		text = tabular.DecodeText(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		logger.Warn("document.text.empty", "file_name", fileName, "format", ext)
	}
	logger.Info("document.text.extracted", "file_name", fileName, "format", ext, "chars", len([]rune(text)))
	return text
}

// printableText decodes raw bytes and collapses every run of non-printable
// runes into one space. Line breaks survive.
func printableText(data []byte) string {
	var b strings.Builder
	gap := false
	for _, r := range tabular.DecodeText(data) {
		if r == '\n' || (unicode.IsPrint(r) && r != unicode.ReplacementChar) {
			if gap && r != '\n' {
				b.WriteByte(' ')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}
	return b.String()
}
