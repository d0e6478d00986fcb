package util

import "testing"

func TestChunkText(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := ChunkText(text, 10, 2)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != "abcdefghij" {
		t.Fatalf("unexpected first chunk: %s", chunks[0])
	}
	if chunks[1] != "ijklmnopqr" {
		t.Fatalf("expected overlap of 2 runes, got second chunk %s", chunks[1])
	}
}

func TestChunkTextDeterministic(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. " +
		"Pack my box with five dozen liquor jugs. " +
		"How vexingly quick daft zebras jump."
	a := ChunkText(text, 40, 10)
	b := ChunkText(text, 40, 10)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ across runs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs across runs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestChunkTextOverlapGuard(t *testing.T) {
	text := "abcdefghij"
	// Overlap >= size falls back to no overlap instead of looping forever.
	chunks := ChunkText(text, 4, 4)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks with overlap disabled, got %d", len(chunks))
	}
}

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("hi", 400, 30)
	if len(chunks) != 1 || chunks[0] != "hi" {
		t.Fatalf("expected single chunk, got %#v", chunks)
	}
	if got := ChunkText("   ", 400, 30); len(got) != 0 {
		t.Fatalf("expected no chunks for blank input, got %#v", got)
	}
}
