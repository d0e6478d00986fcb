package session

import (
	"testing"
	"time"

	"pdfchat/internal/models"
)

func TestStoreCreateAndGet(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Create()
	if s.ID == "" {
		t.Fatal("expected session id")
	}
	got, ok := st.Get(s.ID)
	if !ok || got != s {
		t.Fatal("expected to get back the same session")
	}
	if _, ok := st.Get("missing"); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestStoreTTLExpiry(t *testing.T) {
	st := NewStore(10 * time.Millisecond)
	s := st.Create()
	time.Sleep(30 * time.Millisecond)
	if _, ok := st.Get(s.ID); ok {
		t.Fatal("expected session to expire")
	}
}

func TestSessionTranscriptOrder(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Create()
	s.AppendMessage(models.RoleUser, "first")
	s.AppendMessage(models.RoleAssistant, "second")
	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != models.RoleUser || msgs[0].Content != "first" {
		t.Fatalf("unexpected first message: %#v", msgs[0])
	}
	if msgs[1].Role != models.RoleAssistant || msgs[1].Content != "second" {
		t.Fatalf("unexpected second message: %#v", msgs[1])
	}
}

func TestSessionIndexReplaceSemantics(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Create()
	if s.IndexActive() {
		t.Fatal("new session must start without an index")
	}

	first := models.IndexHandle{IndexID: "idx-1", Filename: "a.pdf", ChunkCount: 3}
	prev, replaced := s.SetIndex(first)
	if replaced {
		t.Fatalf("first SetIndex must not report a replacement, got prev %#v", prev)
	}
	if !s.IndexActive() {
		t.Fatal("expected index to be active after SetIndex")
	}

	second := models.IndexHandle{IndexID: "idx-2", Filename: "b.pdf", ChunkCount: 5}
	prev, replaced = s.SetIndex(second)
	if !replaced || prev.IndexID != "idx-1" {
		t.Fatalf("expected replacement of idx-1, got replaced=%v prev=%#v", replaced, prev)
	}
	got, ok := s.Index()
	if !ok || got.IndexID != "idx-2" {
		t.Fatalf("expected idx-2 active, got %#v", got)
	}
}
