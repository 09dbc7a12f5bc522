package sanitize

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const maxTextLen = 2000

var strict = bluemonday.StrictPolicy()

// Text strips markup and control bytes from user-supplied text and caps its
// length. The result is plain text; escaping is left to the templates.
func Text(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(html.UnescapeString(strict.Sanitize(input)))

	if utf8.RuneCountInString(input) > maxTextLen {
		input = string([]rune(input)[:maxTextLen])
	}

	return input
}

// URL reports whether raw is an absolute http or https URL.
func URL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
