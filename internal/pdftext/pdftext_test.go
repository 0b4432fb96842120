package pdftext

import (
	"errors"
	"testing"
)

func TestExtractRejectsNonPDF(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("hello world"),
		[]byte("PK\x03\x04 zip file"),
	}
	for i, data := range cases {
		if _, err := Extract(data); !errors.Is(err, ErrNotPDF) {
			t.Fatalf("case %d expected ErrNotPDF, got %v", i, err)
		}
	}
}

func TestExtractTruncatedPDF(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	if err == nil {
		t.Fatal("expected error for truncated document")
	}
	if errors.Is(err, ErrNotPDF) {
		t.Fatalf("header is valid, expected a parse error, got %v", err)
	}
}
