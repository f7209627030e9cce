package safety

import "testing"

func TestSanitizeStripsControlCharsExceptNewlineAndTab(t *testing.T) {
	input := "hello\x00world\x07\tfoo\nbar"
	got := Sanitize(input)
	if got != "helloworld\tfoo\nbar" {
		t.Errorf("Sanitize() = %q", got)
	}
}

func TestSanitizeNormalizesWhitespace(t *testing.T) {
	got := Sanitize("hello    world  \n  foo   bar  ")
	if got != "hello world\nfoo bar" {
		t.Errorf("Sanitize() = %q", got)
	}
}

func TestSanitizeTrimsOuterWhitespace(t *testing.T) {
	got := Sanitize("   hi there   ")
	if got != "hi there" {
		t.Errorf("Sanitize() = %q", got)
	}
}
