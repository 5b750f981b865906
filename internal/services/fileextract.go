package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"studymate-bot/internal/models"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEncoding          = errors.New("invalid text encoding")
	ErrDecodeFailure     = errors.New("failed to decode document")
)

// ExtractionError carries the failing format together with one of the
// ErrUnsupportedFormat / ErrEncoding / ErrDecodeFailure kinds.
type ExtractionError struct {
	Format models.DocumentFormat
	Kind   error
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %v", e.Format, e.Kind)
	}
	return fmt.Sprintf("extract %s: %v: %v", e.Format, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ImageRecognizer runs optical character recognition on an image.
type ImageRecognizer interface {
	RecognizeImage(ctx context.Context, image []byte, mimeType string) (string, error)
}

type FileExtractService struct {
	ocr ImageRecognizer
}

func NewFileExtractService(ocr ImageRecognizer) *FileExtractService {
	return &FileExtractService{ocr: ocr}
}

// Extract turns a payload of the declared format into text. It is CPU bound
// and blocking; callers run it on the extraction worker pool.
func (s *FileExtractService) Extract(ctx context.Context, payload []byte, format models.DocumentFormat) (string, error) {
	var (
		text string
		err  error
	)

	switch format {
	case models.FormatPDF:
		text, err = s.extractPDF(payload)
	case models.FormatDOCX:
		text, err = s.extractDOCX(payload)
	case models.FormatPlainText:
		text, err = s.extractTXT(payload)
	case models.FormatImage:
		text, err = s.extractImage(ctx, payload)
	default:
		return "", &ExtractionError{Format: format, Kind: ErrUnsupportedFormat}
	}

	if err != nil {
		var extractErr *ExtractionError
		if errors.As(err, &extractErr) {
			return "", err
		}
		return "", &ExtractionError{Format: format, Kind: ErrDecodeFailure, Err: err}
	}
	return text, nil
}

func (s *FileExtractService) extractTXT(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", &ExtractionError{Format: models.FormatPlainText, Kind: ErrEncoding}
	}
	return string(payload), nil
}

func (s *FileExtractService) extractPDF(payload []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", err
	}

	var pages []string
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		// GetPlainText opens every page with a newline
		content = strings.TrimSpace(content)
		if content == "" {
			// image-only pages carry no text layer
			continue
		}
		pages = append(pages, content)
	}

	return strings.Join(pages, "\n"), nil
}

func (s *FileExtractService) extractDOCX(payload []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", err
	}

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		paragraphs, err := docxParagraphs(rc)
		if err != nil {
			return "", err
		}
		return strings.Join(paragraphs, "\n"), nil
	}

	return "", fmt.Errorf("docx document.xml not found")
}

// docxParagraphs walks WordprocessingML and returns the text of every w:p in
// document order. Paragraphs nested in text boxes come after their enclosing
// paragraph. Tabs and breaks inside a run are kept; tab stop definitions in
// w:pPr are not text.
func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	type openPara struct {
		slot int
		text strings.Builder
	}
	var (
		paragraphs []string
		stack      []*openPara
		runDepth   int
		propsDepth int
		inText     bool
	)
	top := func() *openPara {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				paragraphs = append(paragraphs, "")
				stack = append(stack, &openPara{slot: len(paragraphs) - 1})
			case "r":
				runDepth++
			case "pPr", "rPr":
				propsDepth++
			case "t":
				inText = true
			case "tab":
				if p := top(); p != nil && runDepth > 0 && propsDepth == 0 {
					p.text.WriteString("\t")
				}
			case "br", "cr":
				if p := top(); p != nil && runDepth > 0 && propsDepth == 0 {
					p.text.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if p := top(); p != nil {
					paragraphs[p.slot] = p.text.String()
					stack = stack[:len(stack)-1]
				}
			case "r":
				if runDepth > 0 {
					runDepth--
				}
			case "pPr", "rPr":
				if propsDepth > 0 {
					propsDepth--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if p := top(); p != nil && inText {
				p.text.Write(t)
			}
		}
	}

	return paragraphs, nil
}

func (s *FileExtractService) extractImage(ctx context.Context, payload []byte) (string, error) {
	if s.ocr == nil {
		return "", fmt.Errorf("no image recognizer configured")
	}

	mimeType := http.DetectContentType(payload)
	if mimeType != models.MIMEJPEG && mimeType != models.MIMEPNG {
		return "", &ExtractionError{Format: models.FormatImage, Kind: ErrUnsupportedFormat, Err: fmt.Errorf("detected %s", mimeType)}
	}

	return s.ocr.RecognizeImage(ctx, payload, mimeType)
}
