// Package pdftext turns an uploaded PDF into plain text for analysis.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"
)

var (
	// ErrNoText is returned when the document contains no extractable text,
	// typically a scanned invoice.
	ErrNoText = errors.New("no text could be extracted from the document")
	// ErrNotPDF is returned when the payload does not carry a PDF header.
	ErrNotPDF = errors.New("document is not a PDF")
)

var pdfMagic = []byte("%PDF-")

// Extract returns the trimmed plain text of a PDF document.
func Extract(data []byte) (text string, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return "", ErrNotPDF
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}

	text = strings.TrimSpace(buf.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
