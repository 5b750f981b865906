package models

import "strings"

type DocumentFormat int

const (
	FormatUnknown DocumentFormat = iota
	FormatPDF
	FormatDOCX
	FormatPlainText
	FormatImage
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETXT  = "text/plain"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

func (f DocumentFormat) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatPlainText:
		return "txt"
	case FormatImage:
		return "image"
	default:
		return "unknown"
	}
}

// FormatFromMIME maps a declared content type to a document format.
// Parameters such as "; charset=utf-8" are ignored.
func FormatFromMIME(mime string) DocumentFormat {
	mime = strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0]))
	switch mime {
	case MIMEPDF:
		return FormatPDF
	case MIMEDOCX:
		return FormatDOCX
	case MIMETXT:
		return FormatPlainText
	case MIMEJPEG, MIMEPNG:
		return FormatImage
	default:
		return FormatUnknown
	}
}

// Upload is a document or photo received from the transport.
type Upload struct {
	UserID   int64
	ChatID   int64
	FileName string
	MIMEType string
	Payload  []byte
}

// FormatFromFileName guesses the format from a file extension. It is the
// fallback for transports that declare a generic content type.
func FormatFromFileName(name string) DocumentFormat {
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return FormatPDF
	case strings.HasSuffix(name, ".docx"):
		return FormatDOCX
	case strings.HasSuffix(name, ".txt"):
		return FormatPlainText
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"), strings.HasSuffix(name, ".png"):
		return FormatImage
	default:
		return FormatUnknown
	}
}

// Format resolves the upload's document format from its declared type,
// falling back to the file name.
func (u Upload) Format() DocumentFormat {
	if f := FormatFromMIME(u.MIMEType); f != FormatUnknown {
		return f
	}
	return FormatFromFileName(u.FileName)
}
