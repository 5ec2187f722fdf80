package sanitize

import (
	"strings"
	"testing"
)

func TestTextStripsMarkup(t *testing.T) {
	cases := map[string]string{
		"  Home & Garden ":                      "Home & Garden",
		"<b>Deep</b> Clean":                     "Deep Clean",
		"Tap <script>alert(1)</script>Fitting":  "Tap Fitting",
		"O'Brien":                               "O'Brien",
		"   ":                                   "",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Fatalf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSVGRemovesScripts(t *testing.T) {
	input := `<svg viewBox="0 0 24 24" onload="x()"><script>alert('x')</script><path d="M0 0h24v24H0z" /></svg>`
	got := SVG(input)
	if got == "" {
		t.Fatalf("expected sanitized markup, got empty string")
	}
	if strings.Contains(got, "script") || strings.Contains(got, "onload") {
		t.Fatalf("expected script and handlers removed, got %q", got)
	}
	if !strings.Contains(got, "<path") {
		t.Fatalf("expected path element to remain, got %q", got)
	}
	if SVG("<div>not an icon</div>") != "" {
		t.Fatalf("markup without svg must be rejected")
	}
}
