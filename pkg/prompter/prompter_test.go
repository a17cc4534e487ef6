package prompter

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func withInput(t *testing.T, in string) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	SetIO(strings.NewReader(in), &out)
	t.Cleanup(func() { SetIO(os.Stdin, os.Stderr) })
	return &out
}

func TestPromptString(t *testing.T) {
	out := withInput(t, "  Summer trip  \n")

	s, err := PromptString("List name: ")
	if err != nil {
		t.Fatalf("PromptString: %v", err)
	}
	if s != "Summer trip" {
		t.Errorf("Expected trimmed input, got %q", s)
	}
	if out.String() != "List name: " {
		t.Errorf("Unexpected prompt %q", out.String())
	}
}

func TestPromptStringWithoutTrailingNewline(t *testing.T) {
	withInput(t, "ABC123")

	s, err := PromptString("Code: ")
	if err != nil || s != "ABC123" {
		t.Errorf("Expected ABC123, got %q (%v)", s, err)
	}
}

func TestPromptDefault(t *testing.T) {
	out := withInput(t, "\nSam\n")

	s, err := PromptDefault("Display name: ", "Alex")
	if err != nil || s != "Alex" {
		t.Errorf("Expected the default, got %q (%v)", s, err)
	}
	if !strings.Contains(out.String(), "[Alex]") {
		t.Errorf("Expected the default in the prompt, got %q", out.String())
	}

	s, err = PromptDefault("Display name: ", "Alex")
	if err != nil || s != "Sam" {
		t.Errorf("Expected Sam, got %q (%v)", s, err)
	}
}

func TestPromptPasswordFromPipe(t *testing.T) {
	withInput(t, "hunter2\n")

	pw, err := PromptPassword("Password: ")
	if err != nil || pw != "hunter2" {
		t.Errorf("Expected hunter2, got %q (%v)", pw, err)
	}
}

func TestPromptConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
	}
	for _, tt := range tests {
		withInput(t, tt.in)
		got, err := PromptConfirm("Delete?")
		if err != nil {
			t.Fatalf("PromptConfirm(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("PromptConfirm(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPromptSelect(t *testing.T) {
	withInput(t, "2\n")
	idx, err := PromptSelect("Category", []string{"Travel", "Food"})
	if err != nil || idx != 1 {
		t.Errorf("Expected index 1, got %d (%v)", idx, err)
	}

	for _, in := range []string{"0\n", "3\n", "food\n"} {
		withInput(t, in)
		if _, err := PromptSelect("Category", []string{"Travel", "Food"}); err == nil {
			t.Errorf("Expected an error for %q", in)
		}
	}

	if _, err := PromptSelect("Category", nil); err == nil {
		t.Error("Expected an error with no options")
	}
}

func TestPromptMultilineString(t *testing.T) {
	withInput(t, "first\nsecond\n\nignored\n")

	s, err := PromptMultilineString("Note", 10)
	if err != nil {
		t.Fatalf("PromptMultilineString: %v", err)
	}
	if s != "first\nsecond" {
		t.Errorf("Unexpected note %q", s)
	}
}
