package env

import (
	"testing"
	"time"
)

func TestStringDefaults(t *testing.T) {
	if got := String("WEATHERSTREAM_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("WEATHERSTREAM_TEST_SET", "value")
	if got := String("WEATHERSTREAM_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestTypedParsing(t *testing.T) {
	t.Setenv("WEATHERSTREAM_TEST_INT", "42")
	if got, err := Int("WEATHERSTREAM_TEST_INT", 0); err != nil || got != 42 {
		t.Fatalf("Int = %d, %v", got, err)
	}
	t.Setenv("WEATHERSTREAM_TEST_FLOAT", "2.5")
	if got, err := Float("WEATHERSTREAM_TEST_FLOAT", 0); err != nil || got != 2.5 {
		t.Fatalf("Float = %v, %v", got, err)
	}
	t.Setenv("WEATHERSTREAM_TEST_BOOL", "true")
	if got, err := Bool("WEATHERSTREAM_TEST_BOOL", false); err != nil || !got {
		t.Fatalf("Bool = %v, %v", got, err)
	}
	t.Setenv("WEATHERSTREAM_TEST_DUR", "90s")
	if got, err := Duration("WEATHERSTREAM_TEST_DUR", 0); err != nil || got != 90*time.Second {
		t.Fatalf("Duration = %v, %v", got, err)
	}
}

func TestTypedParsingRejectsGarbage(t *testing.T) {
	t.Setenv("WEATHERSTREAM_TEST_INT", "forty-two")
	if _, err := Int("WEATHERSTREAM_TEST_INT", 0); err == nil {
		t.Fatalf("expected parse error")
	}
	t.Setenv("WEATHERSTREAM_TEST_DUR", "soon")
	if _, err := Duration("WEATHERSTREAM_TEST_DUR", 0); err == nil {
		t.Fatalf("expected parse error")
	}
}
