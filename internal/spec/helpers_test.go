package spec

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 10, 17, 8, 30, 15, 250_000_000, time.UTC)

func fixedClock() time.Time { return fixedNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustDoc(t *testing.T, src, location string) *Document {
	t.Helper()
	doc, err := LoadBytes([]byte(strings.TrimSpace(src)+"\n"), location)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return doc
}

func mustNode(t *testing.T, src string) *Node {
	t.Helper()
	n, err := ParseNode([]byte(strings.TrimSpace(src)))
	if err != nil {
		t.Fatalf("parse node: %v", err)
	}
	return n
}

func newTestSession(t *testing.T, root *Node) *session {
	t.Helper()
	return newSession(root, newParseConfig([]ParseOption{
		WithClock(fixedClock),
		WithLogger(discardLogger()),
	}))
}

func mustJSON(t *testing.T, n *Node) string {
	t.Helper()
	raw, err := n.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}
