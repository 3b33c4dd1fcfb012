package macros

import (
	"reflect"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a, b", []string{"a", "b"}},
		{"f(a, b), [1, 2],", []string{"f(a, b)", "[1, 2]"}},
		{`"x, y", #{a: 1, b: 2}`, []string{`"x, y"`, "#{a: 1, b: 2}"}},
	} {
		got, err := SplitArgs(tc.in)
		if err != nil {
			t.Errorf("SplitArgs(%q): %v", tc.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitArgs(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	for _, in := range []string{"a,, b", "f(a", "a)", `"open`} {
		if _, err := SplitArgs(in); err == nil {
			t.Errorf("SplitArgs(%q): expected an error", in)
		}
	}
}

func TestAssert(t *testing.T) {
	got, err := assert("x > 1")
	if err != nil {
		t.Fatalf("assert: %v", err)
	}
	if want := `if !(x > 1) { std::panic("assertion failed: x > 1") }`; got != want {
		t.Fatalf("assert = %q, want %q", got, want)
	}

	got, err = assert(`ok, "broken"`)
	if err != nil || got != `if !(ok) { std::panic("broken") }` {
		t.Fatalf("assert with message = %q %v", got, err)
	}

	if _, err := assert(""); err == nil {
		t.Fatalf("expected an error without a condition")
	}
	if _, err := assertEq("a"); err == nil {
		t.Fatalf("expected an error with one argument")
	}
}
