package logbook

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestSentAndFailedEntries(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "logs", "journal.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.clock = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	book.Sent("word", "addText", "msg-1", []byte(`{"userId":"123"}`))
	book.Failed("common", "ping", errors.New("clock unavailable"))
	lines, total := book.Tail(10)
	if total != 2 {
		t.Fatalf("total = %d", total)
	}
	if lines[0] != `2024-01-01T00:00:00Z INFO  sent word.addText id=msg-1 params={"userId":"123"}` {
		t.Fatalf("unexpected sent line %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR failed common.ping: clock unavailable") {
		t.Fatalf("unexpected failed line %q", lines[1])
	}
}

func TestTailMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journal.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	if lines, total := book.Tail(5); lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v %d", lines, total)
	}
}
