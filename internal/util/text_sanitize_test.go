package util

import "testing"

func TestSanitizeText(t *testing.T) {
	in := "Hello\x00 world\x01\n\ttabbed"
	out := SanitizeText(in)
	if out != "Hello world\n\ttabbed" {
		t.Fatalf("unexpected sanitized text: %q", out)
	}
}

func TestDisplaySnippet(t *testing.T) {
	in := "  several   words \x00 spread \n over lines  "
	out := DisplaySnippet(in, 100)
	if out != "several words spread over lines" {
		t.Fatalf("unexpected snippet: %q", out)
	}
	short := DisplaySnippet("abcdefghij", 5)
	if short != "abcde..." {
		t.Fatalf("unexpected truncated snippet: %q", short)
	}
}
