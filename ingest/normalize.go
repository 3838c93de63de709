package ingest

import (
	"regexp"
	"strings"
)

var (
	citationPattern   = regexp.MustCompile(`\[\d+(?:[-,]\s*\d+)*\]`)
	multiSpacePattern = regexp.MustCompile(`[ \t]+`)
	multiLinePattern  = regexp.MustCompile(`\n{3,}`)
	nonPrintable      = regexp.MustCompile(`[^\x20-\x7E\n]`)
)

// Normalize cleans extracted text for downstream model consumption:
// citation markers like [12] and [3-5] are removed, non-printable and
// non-ASCII bytes dropped, and runs of whitespace collapsed.
func Normalize(text string) string {
	text = citationPattern.ReplaceAllString(text, "")
	text = nonPrintable.ReplaceAllString(text, " ")
	text = multiSpacePattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = multiLinePattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// sectionHeadings are the headings that carry protocol-relevant content in
// research papers. Matching is case-insensitive on the line's own text.
var sectionHeadings = []string{
	"abstract",
	"introduction",
	"methods",
	"materials and methods",
	"results",
	"discussion",
	"conclusion",
	"conclusions",
}

// Sections splits normalized paper text on academic headings. Each entry
// maps the lowercase heading to its body text. When no headings are found
// the whole document is returned under "body".
func Sections(text string) map[string]string {
	sections := make(map[string]string)
	current := "body"
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content != "" {
			if prev, ok := sections[current]; ok {
				content = prev + "\n\n" + content
			}
			sections[current] = content
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if heading, ok := matchHeading(trimmed); ok {
			flush()
			current = heading
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	if len(sections) == 0 {
		sections["body"] = ""
	}
	return sections
}

func matchHeading(line string) (string, bool) {
	if line == "" || len(line) > 60 {
		return "", false
	}
	lower := strings.ToLower(line)
	// Allow numbered headings like "2. Methods".
	lower = strings.TrimLeft(lower, "0123456789. ")
	for _, h := range sectionHeadings {
		if lower == h {
			return h, true
		}
	}
	return "", false
}
