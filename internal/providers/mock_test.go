package providers

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedDeterministic(t *testing.T) {
	m := NewMockProvider(8)
	a, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"hello"}, Dimension: 8})
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"hello"}, Dimension: 8})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 1 || len(a[0]) != 8 {
		t.Fatalf("unexpected vector shape: %d x %d", len(a), len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("embedding not deterministic at %d: %v vs %v", i, a[0][i], b[0][i])
		}
	}
}

func TestMockEmbedUnitNorm(t *testing.T) {
	m := NewMockProvider(16)
	vectors, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"hello"}, Dimension: 16})
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, x := range vectors[0] {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-4 {
		t.Fatalf("expected unit-length vector, got norm %f", math.Sqrt(sum))
	}
}

func TestMockGenerateModes(t *testing.T) {
	m := NewMockProvider(8)
	plain, _, err := m.Generate(context.Background(), GenerateRequest{Operation: "plain_completion", Prompt: "Question: x"})
	if err != nil {
		t.Fatal(err)
	}
	doc, _, err := m.Generate(context.Background(), GenerateRequest{Operation: "document_answer", Prompt: "Question: x", Context: []string{"a", "b"}})
	if err != nil {
		t.Fatal(err)
	}
	if plain.Text == "" || doc.Text == "" || plain.Text == doc.Text {
		t.Fatalf("expected distinct non-empty responses, got %q and %q", plain.Text, doc.Text)
	}
}

func TestMatchDimension(t *testing.T) {
	src := []float32{1, 2, 3}
	a := matchDimension(src, 2)
	if len(a) != 2 || a[0] != 1 || a[1] != 2 {
		t.Fatalf("truncate failed: %#v", a)
	}
	b := matchDimension(src, 5)
	if len(b) != 5 || b[0] != 1 || b[2] != 3 || b[3] != 0 || b[4] != 0 {
		t.Fatalf("pad failed: %#v", b)
	}
}
