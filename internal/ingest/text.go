// Package ingest turns uploaded resume files and job-posting URLs into plain
// text for analysis.
package ingest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedFormat is returned for files that are not plain text,
// markdown, PDF or DOCX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format is a supported input document format.
type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var mimeFormats = map[string]Format{
	"text/plain":      FormatText,
	"text/markdown":   FormatText,
	"text/x-markdown": FormatText,
	"application/pdf": FormatPDF,
	docxMIME:          FormatDOCX,
}

var extFormats = map[string]Format{
	".txt":      FormatText,
	".text":     FormatText,
	".md":       FormatText,
	".markdown": FormatText,
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
}

// DetectFormat picks a format from the content type, falling back to the
// file extension for generic or missing content types.
func DetectFormat(filename, contentType string) (Format, error) {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if f, ok := mimeFormats[strings.ToLower(mediaType)]; ok {
			return f, nil
		}
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(filename))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, displayType(filename, contentType))
}

func displayType(filename, contentType string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	if contentType != "" {
		return contentType
	}
	return "unknown"
}

// ExtractText returns the cleaned plain text of an uploaded document.
func ExtractText(filename, contentType string, data []byte) (string, error) {
	format, err := DetectFormat(filename, contentType)
	if err != nil {
		return "", err
	}

	var text string
	switch format {
	case FormatText:
		if !IsText(data) {
			return "", fmt.Errorf("%w: %s is not text", ErrUnsupportedFormat, displayType(filename, contentType))
		}
		text = decodeText(data)
	case FormatPDF:
		text, err = extractPDFText(data)
	case FormatDOCX:
		text, err = extractDocxText(data)
	}
	if err != nil {
		return "", err
	}

	return CleanText(strings.ToValidUTF8(text, "")), nil
}

func extractPDFText(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return documentXMLText(doc.Editable().GetContent())
}

// documentXMLText flattens WordprocessingML body XML to text: one line per
// paragraph, tabs and breaks preserved.
func documentXMLText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx content: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// CleanText normalizes line endings, collapses runs of spaces and tabs, trims
// each line and allows at most one blank line in a row.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// IsText reports whether data looks like text rather than a binary document.
// Any encoding passes as long as there are no NUL bytes.
func IsText(data []byte) bool {
	return bytes.IndexByte(data, 0) < 0
}

// decodeText returns data as UTF-8. Input that is not valid UTF-8 is read
// as Windows-1252, the usual encoding of legacy Windows text files.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(decoded)
}
