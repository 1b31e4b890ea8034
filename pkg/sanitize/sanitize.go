// Package sanitize cleans newsletter HTML before it leaves the system.
package sanitize

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup that is not safe to mail out.
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

type policySanitizer struct {
	policy *bluemonday.Policy
}

// NewNewsletterSanitizer allows basic formatting, headings, https images and
// absolute links. Scripts, styles, iframes and event attributes are dropped.
func NewNewsletterSanitizer() Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "hr", "ul", "ol", "li",
		"h1", "h2", "h3", "h4",
		"blockquote", "pre", "code",
		"strong", "em", "b", "i", "u",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.RequireNoReferrerOnLinks(true)
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemes("https", "mailto")
	p.AllowURLSchemeWithCustomPolicy("http", func(u *url.URL) bool {
		return u.Host != ""
	})
	return &policySanitizer{policy: p}
}

func (s *policySanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

var strict = bluemonday.StrictPolicy()

// PlainText drops every tag and returns the readable text of rawHTML.
func PlainText(rawHTML string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(rawHTML)))
}
