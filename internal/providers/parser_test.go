package providers

import "testing"

func TestParseProviderList(t *testing.T) {
	refs := ParseProviderList("openai | groq:backup |")
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].Name != "openai" || refs[0].KeyAlias != "" {
		t.Fatalf("unexpected first ref: %#v", refs[0])
	}
	if refs[1].Name != "groq" || refs[1].KeyAlias != "backup" {
		t.Fatalf("unexpected second ref: %#v", refs[1])
	}
}

func TestParseProviderListEmptyFallsBackToMock(t *testing.T) {
	refs := ParseProviderList("")
	if len(refs) != 1 || refs[0].Name != "mock" {
		t.Fatalf("expected mock fallback, got %#v", refs)
	}
}
