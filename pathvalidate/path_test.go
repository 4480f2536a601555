package pathvalidate

import "testing"

func TestValidateAccepts(t *testing.T) {
	valid := []string{
		"fetch",
		"localStorage.getItem",
		"document.title",
		"a$_.b9",
		`a["quoted key"]`,
		"a['single']",
		"a[0]",
		"a[42].b[1]",
		"_private",
		"$jquery",
	}
	for _, p := range valid {
		if !Validate(p) {
			t.Errorf("Validate(%q) = false, want true", p)
		}
		if err := Check(p); err != nil {
			t.Errorf("Check(%q) = %v, want nil", p, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	invalid := []string{
		"",
		" ",
		".a",
		"a.",
		"a..b",
		"a[]",
		"a['']",
		`a[""]`,
		"a[",
		"a]",
		"1abc",
		"a b",
		"a.b ",
		"a[01-2]",
		"a.-b",
	}
	for _, p := range invalid {
		if Validate(p) {
			t.Errorf("Validate(%q) = true, want false", p)
		}
		if err := Check(p); err != ErrInvalidPath {
			t.Errorf("Check(%q) = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestHasWhitespace(t *testing.T) {
	if !HasWhitespace("a b") {
		t.Fatal("expected whitespace detected")
	}
	if HasWhitespace("a.b") {
		t.Fatal("expected no whitespace detected")
	}
}
