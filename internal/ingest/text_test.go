package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        Format
		wantErr     bool
	}{
		{"plain text mime", "resume", "text/plain; charset=utf-8", FormatText, false},
		{"markdown ext", "resume.MD", "", FormatText, false},
		{"pdf mime", "upload.bin", "application/pdf", FormatPDF, false},
		{"docx by ext with octet-stream", "cv.docx", "application/octet-stream", FormatDOCX, false},
		{"legacy doc", "cv.doc", "application/msword", "", true},
		{"image", "photo.png", "image/png", "", true},
		{"nothing", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.filename, tt.contentType)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnsupportedFormat), "error = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractText_Plain(t *testing.T) {
	got, err := ExtractText("resume.txt", "", []byte("Senior  Engineer\r\n\r\n\r\n\tGo,   Kubernetes  \r\n"))

	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer\n\nGo, Kubernetes", got)
}

func TestExtractText_Latin1(t *testing.T) {
	got, err := ExtractText("resume.txt", "text/plain", []byte("Caf\xe9 React developer with AWS"))

	require.NoError(t, err)
	assert.Equal(t, "Café React developer with AWS", got)
}

func TestIsText(t *testing.T) {
	assert.True(t, IsText([]byte("plain")))
	assert.True(t, IsText([]byte("caf\xe9")))
	assert.False(t, IsText([]byte{'a', 0x00, 'b'}))
}

func TestExtractText_BinaryPretendingToBeText(t *testing.T) {
	_, err := ExtractText("resume.txt", "text/plain", []byte{0x00, 0x01, 0xff})

	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestExtractText_CorruptPDF(t *testing.T) {
	_, err := ExtractText("resume.pdf", "application/pdf", []byte("definitely not a pdf"))

	assert.Error(t, err)
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractText_Docx(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">Skills: </w:t></w:r><w:r><w:t>React &amp; AWS</w:t></w:r></w:p>`)

	got, err := ExtractText("cv.docx", "", data)

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills: React & AWS", got)
}

func TestDocumentXMLText(t *testing.T) {
	xml := `<w:body xmlns:w="urn:w"><w:p><w:r><w:t>A</w:t><w:tab/><w:t>B</w:t><w:br/><w:t>C</w:t></w:r></w:p><w:p><w:r><w:t>D</w:t></w:r></w:p></w:body>`

	got, err := documentXMLText(xml)

	require.NoError(t, err)
	assert.Equal(t, "A\tB\nC\nD\n", got)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"collapse spaces", "  a \t  b  ", "a b"},
		{"one blank line max", "a\n\n\n\nb", "a\n\nb"},
		{"leading blank lines", "\n\n\na", "a"},
		{"whitespace only lines", "a\n   \n\t\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}
