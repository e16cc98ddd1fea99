package mail

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockTagPattern  = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/tr|/h[1-6]|/li)\s*/?>`)
	styleTagPattern  = regexp.MustCompile(`(?is)<(style|script)[^>]*>.*?</(style|script)>`)
	anyTagPattern    = regexp.MustCompile(`<[^>]*>`)
	blankLinePattern = regexp.MustCompile(`\n{3,}`)
	spacePattern     = regexp.MustCompile(`[ \t]+`)
)

// PlainText derives a plain-text fallback from an HTML body.
func PlainText(body string) string {
	s := styleTagPattern.ReplaceAllString(body, "")
	s = blockTagPattern.ReplaceAllString(s, "\n")
	s = anyTagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = blankLinePattern.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
