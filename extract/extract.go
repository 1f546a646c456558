// Package extract turns uploaded documents into plain text and a content fingerprint.
package extract

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// Result bundles everything derived from one document's bytes
type Result struct {
	Text        string
	Fingerprint string
	Pages       int
}

// Document extracts text and computes the fingerprint of data.
// The fingerprint never depends on whether text extraction succeeded.
func Document(data []byte) Result {
	text, pages, _ := pdfText(data)
	return Result{
		Text:        text,
		Fingerprint: Fingerprint(data),
		Pages:       pages,
	}
}

// Fingerprint returns the hex-encoded SHA-256 of the raw bytes
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Text returns the text of every page in page order, pages joined by a newline.
// Unreadable input yields an empty string rather than an error.
func Text(data []byte) string {
	text, _, _ := pdfText(data)
	return text
}

// IsPDF reports whether data starts with the PDF magic header
func IsPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

func pdfText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdf panic: %v", r)
		}
	}()

	if !IsPDF(data) {
		return "", 0, fmt.Errorf("missing %%PDF header")
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("pdf reader: %w", err)
	}

	n := r.NumPage()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			parts = append(parts, "")
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("pdf page %d: %w", i, err)
		}
		parts = append(parts, pageText)
	}

	return strings.Join(parts, "\n"), n, nil
}
