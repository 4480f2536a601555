package report

import (
	"path/filepath"
	"testing"

	"github.com/wardenjs/warden/event"
)

func TestSQLiteSinkMirrorsAppends(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "report.db")

	sink, err := OpenSQLiteSink(dbPath, "run-1")
	if err != nil {
		t.Fatalf("OpenSQLiteSink: %v", err)
	}
	defer sink.Close()

	sink.Append(event.NewGet("document.title", event.LiteralValue("hi"), event.UnknownLocation))
	sink.Append(event.NewSet("document.title", event.LiteralValue("bye"), event.UnknownLocation))

	n, err := sink.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("Count() = %d, want 2", n)
	}
}

func TestSQLiteSinkSeparatesRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "report.db")

	a, err := OpenSQLiteSink(dbPath, "run-a")
	if err != nil {
		t.Fatalf("OpenSQLiteSink a: %v", err)
	}
	defer a.Close()

	b, err := OpenSQLiteSink(dbPath, "run-b")
	if err != nil {
		t.Fatalf("OpenSQLiteSink b: %v", err)
	}
	defer b.Close()

	a.Append(event.NewGet("x", event.LiteralValue(1), event.UnknownLocation))

	na, _ := a.Count()
	nb, _ := b.Count()
	if na != 1 {
		t.Fatalf("run-a Count() = %d, want 1", na)
	}
	if nb != 0 {
		t.Fatalf("run-b Count() = %d, want 0 (runs must not share events)", nb)
	}
}
