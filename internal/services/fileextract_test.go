package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymate-bot/internal/models"
)

type fakeRecognizer struct {
	text     string
	err      error
	gotMIME  string
	gotBytes int
}

func (f *fakeRecognizer) RecognizeImage(_ context.Context, image []byte, mimeType string) (string, error) {
	f.gotMIME = mimeType
	f.gotBytes = len(image)
	return f.text, f.err
}

// buildPDF writes a minimal single-font PDF whose pages draw the given
// strings. An empty string produces a page without a text layer.
func buildPDF(pages ...string) []byte {
	var objects []string
	n := len(pages)
	// 1 catalog, 2 pages, 3 font, then page/content pairs
	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>one &amp; more</w:t></w:r></w:p>
<w:p><w:r><w:t>Col</w:t><w:tab/><w:t>umn</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestExtract_PDF(t *testing.T) {
	s := NewFileExtractService(nil)

	text, err := s.Extract(context.Background(), buildPDF("Hello", "", "World"), models.FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "Hello\nWorld", text, "pages joined by single newlines, empty page skipped")
}

func TestExtract_PDFGarbage(t *testing.T) {
	s := NewFileExtractService(nil)

	_, err := s.Extract(context.Background(), []byte("definitely not a pdf"), models.FormatPDF)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestExtract_DOCX(t *testing.T) {
	s := NewFileExtractService(nil)

	text, err := s.Extract(context.Background(), buildDOCX(t, docxBody), models.FormatDOCX)
	require.NoError(t, err)

	assert.Equal(t, "First paragraph\nSecond one & more\nCol\tumn", text)
}

func TestExtract_DOCXTabStopsAreNotText(t *testing.T) {
	body := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/><w:tab w:val="right" w:pos="9350"/></w:tabs></w:pPr><w:r><w:t>Heading</w:t></w:r></w:p>
<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Body</w:t></w:r></w:p>
</w:body></w:document>`

	text, err := NewFileExtractService(nil).Extract(context.Background(), buildDOCX(t, body), models.FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Heading\nBody", text)
}

func TestExtract_DOCXTextBoxKeepsEnclosingParagraph(t *testing.T) {
	body := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t xml:space="preserve">Outer start</w:t></w:r><w:r><w:pict><w:txbxContent><w:p><w:r><w:t>Box</w:t></w:r></w:p></w:txbxContent></w:pict></w:r><w:r><w:t xml:space="preserve"> outer end</w:t></w:r></w:p>
<w:p><w:r><w:t>After</w:t></w:r></w:p>
</w:body></w:document>`

	text, err := NewFileExtractService(nil).Extract(context.Background(), buildDOCX(t, body), models.FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Outer start outer end\nBox\nAfter", text)
}

func TestExtract_DOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = NewFileExtractService(nil).Extract(context.Background(), buf.Bytes(), models.FormatDOCX)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestExtract_PlainText(t *testing.T) {
	s := NewFileExtractService(nil)

	text, err := s.Extract(context.Background(), []byte("Привет, mitochondria"), models.FormatPlainText)
	require.NoError(t, err)
	assert.Equal(t, "Привет, mitochondria", text)

	_, err = s.Extract(context.Background(), []byte{0xff, 0xfe, 0xfd}, models.FormatPlainText)
	assert.ErrorIs(t, err, ErrEncoding)

	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, models.FormatPlainText, extractErr.Format)
}

func TestExtract_Image(t *testing.T) {
	ocr := &fakeRecognizer{text: "  recognized  text \n"}
	s := NewFileExtractService(ocr)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	text, err := s.Extract(context.Background(), png, models.FormatImage)
	require.NoError(t, err)

	assert.Equal(t, "  recognized  text \n", text, "OCR output is returned as-is")
	assert.Equal(t, models.MIMEPNG, ocr.gotMIME)
	assert.Equal(t, len(png), ocr.gotBytes)
}

func TestExtract_ImageRecognizerFailure(t *testing.T) {
	s := NewFileExtractService(&fakeRecognizer{err: errors.New("quota")})

	jpeg := append([]byte{0xff, 0xd8, 0xff, 0xe0}, make([]byte, 32)...)
	_, err := s.Extract(context.Background(), jpeg, models.FormatImage)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestExtract_Unsupported(t *testing.T) {
	s := NewFileExtractService(nil)

	_, err := s.Extract(context.Background(), []byte("GIF89a"), models.FormatUnknown)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "unsupported")
}
