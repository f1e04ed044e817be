package tokens

import (
	"strings"
	"testing"
)

func TestCountMonotonicWithLength(t *testing.T) {
	c := NewCounter()

	short := c.Count("hello world")
	long := c.Count(strings.Repeat("hello world ", 50))
	if short <= 0 {
		t.Fatalf("expected positive count, got %d", short)
	}
	if long <= short {
		t.Errorf("expected longer text to cost more: %d vs %d", long, short)
	}
}

func TestCountEmpty(t *testing.T) {
	c := NewCounter()
	if n := c.Count(""); n != 0 {
		t.Errorf("expected 0 for empty string, got %d", n)
	}
}

func TestCountFallback(t *testing.T) {
	c := &Counter{} // no encoding, heuristic path
	if n := c.Count("abcdefgh"); n != 2 {
		t.Errorf("expected 8/4=2, got %d", n)
	}
	if n := c.Count("abc"); n != 1 {
		t.Errorf("expected rounding up, got %d", n)
	}
}
