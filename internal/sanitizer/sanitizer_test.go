package sanitizer

import "testing"

func TestClean(t *testing.T) {
	s := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text unchanged", "Wooden chair", "Wooden chair"},
		{"tags stripped", "<b>Chair</b>", "Chair"},
		{"script removed entirely", "<script>alert(1)</script>Chair", "Chair"},
		{"whitespace trimmed", "  chair  ", "chair"},
		{"entities unescaped", "Tom &amp; Jerry", "Tom & Jerry"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanAll(t *testing.T) {
	s := New()

	name := "<i>Jane</i>"
	desc := "  fine  "
	s.CleanAll(&name, &desc, nil)

	if name != "Jane" {
		t.Errorf("name = %q, want Jane", name)
	}
	if desc != "fine" {
		t.Errorf("desc = %q, want fine", desc)
	}
}
