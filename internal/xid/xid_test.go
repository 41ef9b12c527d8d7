package xid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("req")
	b := New("req")
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	rest, ok := strings.CutPrefix(a, "req-")
	if !ok {
		t.Fatalf("expected req- prefix, got %q", a)
	}
	if _, err := uuid.Parse(rest); err != nil {
		t.Fatalf("expected uuid suffix in %q: %v", a, err)
	}
}
