package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const (
	MimeText = "text/plain"
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrEmptyContent means the document decoded to nothing but whitespace.
	ErrEmptyContent = errors.New("no text content found in document")
	// ErrDecode means the bytes or the PDF structure could not be read.
	ErrDecode = errors.New("document could not be decoded")
	// ErrUnsupportedType means the media type is outside the accepted set.
	ErrUnsupportedType = errors.New("unsupported document type")
)

// ExtractText turns an uploaded resume into plain text. The declared media
// type wins unless it is missing or generic, in which case the bytes are
// sniffed and then the file extension is consulted.
func ExtractText(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	kind := DetectType(mimeType, fileName, data)
	switch kind {
	case MimeText:
		text, err = decodeText(data)
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
		if err != nil {
			text, err = lossyDecode(data), nil
		}
	case MimeDOC:
		text = lossyDecode(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

// DetectType resolves the effective media type of a document.
func DetectType(declared, fileName string, data []byte) string {
	clean := baseMime(declared)
	switch clean {
	case MimeText, MimePDF, MimeDOC, MimeDOCX:
		return clean
	case "text/markdown", "text/x-markdown":
		return MimeText
	}

	if len(data) > 0 {
		sniffed := baseMime(mimetype.Detect(data).String())
		switch sniffed {
		case MimePDF, MimeDOCX, MimeDOC, MimeText:
			return sniffed
		case "application/x-ole-storage":
			return MimeDOC
		}
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md":
		return MimeText
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".doc":
		return MimeDOC
	}
	if clean == "" {
		return "application/octet-stream"
	}
	return clean
}

func baseMime(raw string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(raw, ";")[0]))
}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("%w: binary content declared as text", ErrDecode)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("%w: pdf: %v", ErrDecode, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", ErrDecode, err)
	}
	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %v", ErrDecode, i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrDecode, err)
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("%w: docx: %v", ErrDecode, err)
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", fmt.Errorf("%w: docx: word/document.xml not found", ErrDecode)
}

func docxText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: docx xml: %v", ErrDecode, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteByte('\t')
			}
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// lossyDecode keeps runs of printable text from an opaque binary. It is not
// format parsing; legacy word-processor files come out noisy.
func lossyDecode(data []byte) string {
	const minRun = 3
	s := strings.ToValidUTF8(string(data), "")

	var (
		out strings.Builder
		run strings.Builder
	)
	flush := func() {
		if utf8.RuneCountInString(strings.TrimSpace(run.String())) >= minRun {
			if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
				out.WriteByte(' ')
			}
			out.WriteString(strings.TrimSpace(run.String()))
		}
		run.Reset()
	}
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			flush()
			if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
				out.WriteByte('\n')
			}
		case unicode.IsPrint(r) && r != utf8.RuneError:
			run.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return strings.TrimSpace(out.String())
}
