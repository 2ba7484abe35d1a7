package highlight

import (
	"regexp"
	"sort"
	"strings"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

// ApplyANSI wraps every case-insensitive occurrence of any term in input,
// which may already contain ANSI styling from the markdown renderer. Escape
// sequences are left intact and matches never span them.
func ApplyANSI(input string, terms []string, wrap func(string) string) Result {
	terms = normalizeTerms(terms)
	if len(terms) == 0 {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	lines := strings.SplitAfter(input, "\n")
	var out strings.Builder
	lineMatches := make([]int, 0, 64)
	total := 0

	for lineNo, line := range lines {
		core := strings.TrimSuffix(line, "\n")
		rendered, count := applyToLine(core, terms, wrap)
		out.WriteString(rendered)
		if len(core) != len(line) {
			out.WriteByte('\n')
		}
		if count > 0 {
			lineMatches = append(lineMatches, lineNo)
			total += count
		}
	}

	return Result{Text: out.String(), Count: total, LineIndex: lineMatches}
}

// normalizeTerms lowercases, dedupes and orders terms longest first so a
// longer term wins over a prefix of it.
func normalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func applyToLine(s string, terms []string, wrap func(string) string) (string, int) {
	indices := ansiCSI.FindAllStringIndex(s, -1)
	if len(indices) == 0 {
		return applyToPlain(s, terms, wrap)
	}

	var out strings.Builder
	total := 0
	pos := 0
	for _, idx := range indices {
		if idx[0] > pos {
			seg, n := applyToPlain(s[pos:idx[0]], terms, wrap)
			out.WriteString(seg)
			total += n
		}
		out.WriteString(s[idx[0]:idx[1]])
		pos = idx[1]
	}
	if pos < len(s) {
		seg, n := applyToPlain(s[pos:], terms, wrap)
		out.WriteString(seg)
		total += n
	}
	return out.String(), total
}

func applyToPlain(s string, terms []string, wrap func(string) string) (string, int) {
	if s == "" {
		return s, 0
	}
	lower := strings.ToLower(s)
	if len(lower) != len(s) {
		// Case folding changed byte offsets; fall back to exact matching.
		lower = s
	}

	var out strings.Builder
	count := 0
	i := 0
	last := 0
	for i < len(s) {
		matched := ""
		for _, t := range terms {
			if strings.HasPrefix(lower[i:], t) {
				matched = t
				break
			}
		}
		if matched == "" {
			i++
			continue
		}
		out.WriteString(s[last:i])
		out.WriteString(wrap(s[i : i+len(matched)]))
		count++
		i += len(matched)
		last = i
	}
	if count == 0 {
		return s, 0
	}
	out.WriteString(s[last:])
	return out.String(), count
}
