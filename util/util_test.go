package util

import (
	"reflect"
	"testing"
)

func TestContains(t *testing.T) {
	if !Contains([]string{"a", "b", "c"}, "b") {
		t.Error("expected Contains to find 'b'")
	}
	if Contains([]string{"a", "b"}, "z") {
		t.Error("expected Contains to miss 'z'")
	}
	if Contains(nil, "a") {
		t.Error("nil slice contains nothing")
	}
	if !Contains([]int{1, 2, 3}, 2) {
		t.Error("expected Contains to work for ints")
	}
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"c": 3, "a": 1, "b": 2}
	got := SortedKeys(m)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedKeys() = %v, want %v", got, want)
	}
}

func TestSortedKeys_Empty(t *testing.T) {
	if got := SortedKeys(map[string]bool{}); got != nil {
		t.Errorf("expected nil for empty map, got %v", got)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "fallback", "last"); got != "fallback" {
		t.Errorf("Coalesce() = %q, want 'fallback'", got)
	}
	if got := Coalesce(0, 0, 7); got != 7 {
		t.Errorf("Coalesce() = %d, want 7", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("Coalesce() = %q, want zero value", got)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("supersecrettoken", 4); got != "supe***" {
		t.Errorf("MaskSecret() = %q", got)
	}
	if got := MaskSecret("ab", 4); got != "***" {
		t.Errorf("short secrets should be fully masked, got %q", got)
	}
}
