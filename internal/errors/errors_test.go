package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		message  string
	}{
		{"E101", CategoryConfig, "Config file not found"},
		{"E105", CategoryConfig, "Unknown store driver"},
		{"E202", CategoryCLI, "Cannot connect to server"},
		{"E301", CategoryStorage, "Store open failed"},
		{"E999", "", "Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code)
			if err.Code != tt.code || err.Category != tt.category || err.Message != tt.message {
				t.Errorf("New(%q) = %+v", tt.code, err)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Code: "E1", Message: "m"}, "E1: m"},
		{&Error{Message: "m"}, "m"},
		{&Error{Code: "E1", Message: "m", Detail: "d"}, "E1: m: d"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestWrapAndHasCode(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := New("E102").Wrap(cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should see the wrapped cause")
	}

	outer := New("E201").Wrap(fmt.Errorf("serve: %w", err))
	if !HasCode(outer, "E201") || !HasCode(outer, "E102") {
		t.Error("HasCode should find both codes")
	}
	if HasCode(outer, "E999") || HasCode(cause, "E102") || HasCode(nil, "E102") {
		t.Error("HasCode false positive")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E201") != nil {
		t.Error("FromError(nil) should be nil")
	}
	orig := New("E105")
	if FromError(fmt.Errorf("open: %w", orig), "E201") != orig {
		t.Error("FromError should return an existing *Error")
	}
	wrapped := FromError(io.EOF, "E301")
	if wrapped.Code != "E301" || wrapped.Wrapped != io.EOF {
		t.Errorf("FromError() = %+v", wrapped)
	}
}

func TestWithLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optilist.yaml")
	content := "server:\n  address: \":8080\"\nstore:\n  driver: mongo\nlog:\n  level: info\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("E105").WithLocation(path, 4, 11)
	if len(err.Context) != 5 || err.Context[2] != "  driver: mongo" {
		t.Errorf("Context = %q", err.Context)
	}
	if got := err.Location.String(); got != path+":4:11" {
		t.Errorf("Location = %q", got)
	}

	DisableColors()
	defer EnableColors()
	out := err.Format()
	for _, want := range []string{"ERROR E105: Unknown store driver", "→    4 │   driver: mongo", "│           ^"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	if missing := New("E102").WithLocation("/does/not/exist", 1, 0); missing.Context != nil {
		t.Error("missing file should give no context")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E104").
		WithDetail(`server.read_timeout: "ten seconds"`).
		WithSuggestion("Use a value like 10s").
		WithExample("server:\n  read_timeout: 10s").
		Wrap(stderrors.New("time: invalid duration"))
	out := err.Format()
	for _, want := range []string{
		"ERROR E104: Invalid duration",
		`server.read_timeout: "ten seconds"`,
		"Cause: time: invalid duration",
		"Hint: Use a value like 10s",
		"    read_timeout: 10s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	if got := Newf(CategoryCLI, "bad %s", "flag").FormatCompact(); got != "bad flag" {
		t.Errorf("FormatCompact() = %q", got)
	}
	loc := &Error{Code: "E1", Message: "m", Location: &Location{File: "f", Line: 2}}
	if got := loc.FormatCompact(); got != "f:2: E1: m" {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E103").WithSuggestion("Use host:port").Wrap(io.EOF)
	err.Location = &Location{File: "optilist.json", Line: 3}

	var got map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &got); jerr != nil {
		t.Fatal(jerr)
	}
	if got["code"] != "E103" || got["category"] != "config" || got["cause"] != "EOF" {
		t.Errorf("FormatJSON() = %v", got)
	}
	if loc, _ := got["location"].(map[string]any); loc["file"] != "optilist.json" {
		t.Errorf("location = %v", got["location"])
	}
}

func TestPrint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	Print(&b, fmt.Errorf("load: %w", New("E101")))
	if !strings.Contains(b.String(), "ERROR E101: Config file not found") {
		t.Errorf("Print() = %q", b.String())
	}
	b.Reset()
	Print(&b, io.EOF)
	if !strings.Contains(b.String(), "ERROR: EOF") {
		t.Errorf("Print() = %q", b.String())
	}
}

func TestRegistry(t *testing.T) {
	codes := Codes()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("Codes() not sorted: %v", codes)
		}
	}
	for _, code := range codes {
		tmpl, ok := Lookup(code)
		if !ok || tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("template %s incomplete: %+v", code, tmpl)
		}
	}

	Register("E399", Template{Category: CategoryStorage, Message: "Test"})
	defer delete(registry, "E399")
	if New("E399").Message != "Test" {
		t.Error("Register() not applied")
	}
}

func TestWrapText(t *testing.T) {
	if wrapText("", 10) != nil {
		t.Error("empty text")
	}
	lines := wrapText("the quick brown fox jumps over the lazy dog", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q longer than 10", l)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("lines = %q", lines)
	}
}
