package domain

import (
	"errors"
	"testing"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "English:en", want: "English:en"},
		{in: "de", want: "German:de"},
		{in: " Spanish : es ", want: "Spanish:es"},
		{in: "wrong-name:fr", want: "French:fr"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeLanguage(tc.in)
			if err != nil {
				t.Fatalf("NormalizeLanguage(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeLanguage(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeLanguageRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "  ", "not a tag!"} {
		if _, err := NormalizeLanguage(in); !errors.Is(err, ErrInvalidLanguage) {
			t.Fatalf("NormalizeLanguage(%q) err = %v, want ErrInvalidLanguage", in, err)
		}
	}
}

func TestToolsReturnsCopy(t *testing.T) {
	tools := Tools()
	if len(tools) != 7 {
		t.Fatalf("len = %d, want 7", len(tools))
	}
	tools[0].Title = "mutated"
	if Tools()[0].Title == "mutated" {
		t.Fatal("Tools must not expose the catalog backing array")
	}
}
