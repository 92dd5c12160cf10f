package core

import (
	"regexp"
	"strings"
	"unicode"
)

// ExtractionSource tags how a completion was turned into data.
type ExtractionSource string

const (
	SourceStrict    ExtractionSource = "strict"
	SourceHeuristic ExtractionSource = "heuristic"
	SourceNone      ExtractionSource = "none"
)

// Section is one header-delimited block recovered from free text.
type Section struct {
	Key   string // normalized label, e.g. market_analysis
	Label string // label as the model wrote it
	Body  string
}

// Extraction is the tagged result of parsing one completion. Exactly one of
// Value (strict) or Sections (heuristic) is populated; SourceNone carries
// neither. A non-strict result is degraded content, not a failure.
type Extraction struct {
	Source   ExtractionSource
	Value    any
	Sections []Section
	Raw      string
}

func (e Extraction) Degraded() bool { return e.Source != SourceStrict }

// Payload is the JSON-encodable form of the result as the caller sees it.
func (e Extraction) Payload() any {
	switch e.Source {
	case SourceStrict:
		return e.Value
	case SourceHeuristic:
		obj := make(Object, 0, len(e.Sections))
		for _, s := range e.Sections {
			obj = append(obj, Field{Key: s.Key, Value: s.Body})
		}
		return obj
	}
	return nil
}

// Extract recovers structured data from a completion. It never fails: it
// tries a strict JSON capture, then header-based line parsing, and reports
// SourceNone when neither yields anything.
func Extract(text string) Extraction {
	if strings.TrimSpace(text) == "" {
		return Extraction{Source: SourceNone, Raw: text}
	}
	if v, ok := extractStrict(text); ok {
		return Extraction{Source: SourceStrict, Value: v, Raw: text}
	}
	if sections := extractHeuristic(text); len(sections) > 0 {
		return Extraction{Source: SourceHeuristic, Sections: sections, Raw: text}
	}
	return Extraction{Source: SourceNone, Raw: text}
}

// extractStrict captures from the first opening bracket to the last matching
// closing bracket, for arrays and objects alike, and keeps the widest capture
// that parses.
func extractStrict(text string) (any, bool) {
	var best any
	bestSpan := -1
	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(text, pair[0])
		end := strings.LastIndexByte(text, pair[1])
		if start < 0 || end <= start {
			continue
		}
		v, err := decodeOrdered([]byte(text[start : end+1]))
		if err != nil {
			continue
		}
		if span := end - start; span > bestSpan {
			best, bestSpan = v, span
		}
	}
	return best, bestSpan >= 0
}

var (
	// "1. EXECUTIVE SUMMARY", "**2) Market Analysis:** text"
	numberedHeader = regexp.MustCompile(`^(?:#{1,6}\s*)?(?:\*\*)?\d{1,2}[.)]\s+(?:\*\*)?([A-Z][^:*]{0,79}?)(?:\*\*)?\s*(?::(?:\*\*)?\s*(.*))?$`)
	// "Market Analysis:", "**Risk Analysis:** text"
	titledHeader = regexp.MustCompile(`^(?:\*\*)?([A-Z][A-Za-z0-9 &/,'()-]{0,79}?)(?:\*\*)?\s*:(?:\*\*)?\s*(.*)$`)
	// "## Market Analysis"
	markdownHeader = regexp.MustCompile(`^#{1,6}\s+(?:\*\*)?([A-Za-z0-9][^*]*?)(?:\*\*)?\s*:?\s*$`)

	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
)

var minorWords = map[string]bool{
	"a": true, "an": true, "and": true, "of": true, "the": true, "for": true,
	"to": true, "in": true, "on": true, "or": true, "vs": true, "&": true, "/": true,
}

// isCapitalizedLabel accepts Title Case or UPPER CASE labels of a few words.
func isCapitalizedLabel(label string) bool {
	words := strings.Fields(label)
	if len(words) == 0 || len(words) > 8 || strings.HasSuffix(label, ".") {
		return false
	}
	for i, w := range words {
		if i > 0 && minorWords[strings.ToLower(w)] {
			continue
		}
		r := []rune(strings.TrimLeft(w, "(\"'"))
		if len(r) == 0 {
			continue
		}
		if !unicode.IsUpper(r[0]) && !unicode.IsDigit(r[0]) {
			return false
		}
	}
	return true
}

// NormalizeLabel turns a header label into a snake_case key.
func NormalizeLabel(label string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(label), "_"), "_")
}

// matchHeader reports whether line starts a new section, returning the label
// and any text written on the same line after the colon.
func matchHeader(line string) (label, inline string, ok bool) {
	if m := markdownHeader.FindStringSubmatch(line); m != nil {
		if l := strings.TrimSpace(m[1]); l != "" && !numberedHeader.MatchString(strings.TrimLeft(line, "# ")) {
			return l, "", true
		}
	}
	if m := numberedHeader.FindStringSubmatch(line); m != nil {
		l := strings.TrimSpace(m[1])
		if isCapitalizedLabel(l) {
			return l, strings.TrimSpace(m[2]), true
		}
		return "", "", false
	}
	if m := titledHeader.FindStringSubmatch(line); m != nil {
		l := strings.TrimSpace(m[1])
		rest := strings.TrimSpace(m[2])
		if !isCapitalizedLabel(l) {
			return "", "", false
		}
		// "Year 1: $40,000" inside a body is data, not a header; inline text
		// only counts when the label names a plan section.
		if rest != "" {
			if _, known := LookupSection(l); !known {
				return "", "", false
			}
		}
		return l, rest, true
	}
	return "", "", false
}

// extractHeuristic walks the text line by line and groups body lines under
// the most recent recognized header. Text before the first header is
// dropped, as are headers that end up with an empty body.
func extractHeuristic(text string) []Section {
	var sections []Section
	index := map[string]int{}
	var cur *Section
	var body []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Body = strings.TrimSpace(strings.Join(body, "\n"))
		if cur.Body != "" {
			if i, seen := index[cur.Key]; seen {
				sections[i].Body += "\n\n" + cur.Body
			} else {
				index[cur.Key] = len(sections)
				sections = append(sections, *cur)
			}
		}
		cur, body = nil, nil
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if label, inline, ok := matchHeader(line); ok {
			key := NormalizeLabel(label)
			if key != "" {
				flush()
				cur = &Section{Key: key, Label: label}
				if inline != "" {
					body = append(body, inline)
				}
				continue
			}
		}
		if cur != nil {
			body = append(body, strings.TrimRight(raw, " \t"))
		}
	}
	flush()
	return sections
}
