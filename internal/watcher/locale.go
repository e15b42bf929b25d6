package watcher

import (
	"golang.org/x/text/language"

	"github.com/roach88/hostloop/internal/host"
)

// NewLocale watches the host locale, canonicalized as a BCP 47 tag so that
// "en-us" and "en-US" are not reported as a change.
func NewLocale(h host.Context) *Value[string] {
	return NewValue(func() string { return CanonicalLocale(h.Locale()) })
}

// CanonicalLocale returns the canonical BCP 47 form of tag, or tag unchanged
// if it does not parse.
func CanonicalLocale(tag string) string {
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return t.String()
}
