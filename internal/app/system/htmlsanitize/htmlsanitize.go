// Package htmlsanitize strips markup from free-text fields before they are
// stored. Project names, descriptions and ICP entries are plain text; any
// HTML a client sends is removed rather than escaped.
package htmlsanitize

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// PlainText removes every tag (and the content of script/style elements)
// from s. Entities produced by the sanitizer are decoded again so "a & b"
// round-trips unchanged.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(policy().Sanitize(s))
}
