package memory

import (
	"context"
	"testing"
)

func TestStore_ReplaceSheet(t *testing.T) {
	s := New()
	rows := [][]any{{"a", "b"}, {}}

	ref, err := s.ReplaceSheet(context.Background(), " Tab ", rows)
	if err != nil || ref != "mem:Tab" {
		t.Fatalf("unexpected replace: ref=%q err=%v", ref, err)
	}

	rows[0][0] = "mutated"
	got, ok := s.Sheet("Tab")
	if !ok || got[0][0] != "a" {
		t.Fatalf("stored rows should be a copy, got %v", got)
	}

	if _, err := s.ReplaceSheet(context.Background(), "Tab", [][]any{{"c"}}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Sheet("Tab")
	if len(got) != 1 || got[0][0] != "c" {
		t.Fatalf("expected replaced rows, got %v", got)
	}
	if names := s.Names(); len(names) != 1 {
		t.Fatalf("names = %v", names)
	}

	if _, err := s.ReplaceSheet(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty sheet name")
	}
}
