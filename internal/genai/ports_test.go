package genai

import (
	"context"
	"errors"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("  Analyze my monthly expenses \n", "Invoice #1\n2024-01-15  $100")
	want := "Analyze my monthly expenses\n\nInvoice Data:\nInvoice #1\n2024-01-15  $100"
	if got != want {
		t.Fatalf("BuildPrompt() = %q, want %q", got, want)
	}
}

func TestEchoAnalyzer(t *testing.T) {
	got, err := Echo{}.Analyze(context.Background(), "prompt", "  2024-01-15  $100  ")
	if err != nil || got != "2024-01-15  $100" {
		t.Fatalf("unexpected echo: %q err=%v", got, err)
	}
	if _, err := (Echo{}).Analyze(context.Background(), "prompt", " "); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
