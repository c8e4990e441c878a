package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Printf("ignored %d", 1)
	if err := l.Close(); err != nil {
		t.Fatalf("Close on nil logger: %v", err)
	}
}

func TestPrintfWritesOneTimestampedLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Printf("remap plan=%d\n", 7)

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", out)
	}
	if !strings.HasPrefix(out, "[") || !strings.HasSuffix(out, "] remap plan=7\n") {
		t.Fatalf("unexpected line %q", out)
	}
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tripmate.log")
	for i := 0; i < 2; i++ {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		l.Printf("line %d", i)
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", got, data)
	}
}
