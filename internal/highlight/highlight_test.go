package highlight

import (
	"strings"
	"testing"
)

func brackets(s string) string { return "[[" + s + "]]" }

func TestApplyANSI_CaseInsensitive(t *testing.T) {
	in := "Permission denied\nsecond permission line\n"
	res := ApplyANSI(in, []string{"permission"}, brackets)

	if res.Count != 2 {
		t.Fatalf("expected 2 matches, got %d", res.Count)
	}
	if len(res.LineIndex) != 2 || res.LineIndex[0] != 0 || res.LineIndex[1] != 1 {
		t.Fatalf("unexpected line indexes: %#v", res.LineIndex)
	}
	if !strings.Contains(res.Text, "[[Permission]]") || !strings.Contains(res.Text, "[[permission]]") {
		t.Fatalf("highlight wrapper not applied: %q", res.Text)
	}
	if !strings.HasSuffix(res.Text, "line\n") {
		t.Fatalf("trailing newline lost: %q", res.Text)
	}
}

func TestApplyANSI_MultipleTermsLongestFirst(t *testing.T) {
	res := ApplyANSI("make maker", []string{"make", "maker", "MAKE", " "}, brackets)
	if res.Text != "[[make]] [[maker]]" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.Count != 2 {
		t.Fatalf("expected 2 matches, got %d", res.Count)
	}
}

func TestApplyANSI_PreservesEscapeSequences(t *testing.T) {
	in := "a \x1b[31mdenied\x1b[0m b"
	res := ApplyANSI(in, []string{"denied"}, func(s string) string { return "<" + s + ">" })

	if res.Count != 1 {
		t.Fatalf("expected 1 match, got %d", res.Count)
	}
	if !strings.Contains(res.Text, "\x1b[31m<denied>\x1b[0m") {
		t.Fatalf("expected escaped segment to stay intact, got %q", res.Text)
	}
}

func TestApplyANSI_DoesNotMatchAcrossANSIBoundaries(t *testing.T) {
	in := "de\x1b[31mni\x1b[0med"
	res := ApplyANSI(in, []string{"denied"}, brackets)
	if res.Count != 0 {
		t.Fatalf("expected 0 matches across ansi boundaries, got %d", res.Count)
	}
	if res.Text != in {
		t.Fatalf("text without matches must be unchanged")
	}
}

func TestApplyANSI_NoTerms(t *testing.T) {
	res := ApplyANSI("anything", nil, brackets)
	if res.Text != "anything" || res.Count != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
}
