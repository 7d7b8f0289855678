package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
}

func TestTruncate_Runes(t *testing.T) {
	if got := Truncate("Größere Lichter", 5); got != "Größe..." {
		t.Errorf("got %s", got)
	}
	if got := Truncate("Ελπίς", 5); got != "Ελπίς" {
		t.Errorf("rune count equal to maxLen should be unchanged, got %s", got)
	}
}
