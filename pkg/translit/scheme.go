package translit

import (
	"log/slog"
	"strings"
)

// Scheme names a phonetic transliteration convention for Sanskrit text.
type Scheme string

// Supported transliteration schemes.
const (
	Devanagari Scheme = "devanagari"
	IAST       Scheme = "iast"
	ITRANS     Scheme = "itrans"
	Velthuis   Scheme = "velthuis"
	HK         Scheme = "hk"
	SLP1       Scheme = "slp1"
	WX         Scheme = "wx"
)

// Internal is the scheme in which all lexicon records are stored.
// Default is the scheme presented to users when none is configured.
const (
	Internal = SLP1
	Default  = Devanagari
)

var supported = map[Scheme]bool{
	Devanagari: true,
	IAST:       true,
	ITRANS:     true,
	Velthuis:   true,
	HK:         true,
	SLP1:       true,
	WX:         true,
}

// Schemes returns the fixed set of supported schemes.
func Schemes() []Scheme {
	return []Scheme{Devanagari, IAST, ITRANS, Velthuis, HK, SLP1, WX}
}

// Valid reports whether s is one of the supported schemes.
func (s Scheme) Valid() bool {
	return supported[s]
}

// Validate normalizes a scheme name and checks it against the supported set.
// Unknown names are reported with a warning and resolve to absent; an empty
// name is absent without a diagnostic.
func Validate(name string) (Scheme, bool) {
	if name == "" {
		return "", false
	}
	s := Scheme(strings.ToLower(name))
	if supported[s] {
		return s, true
	}
	slog.Warn("invalid transliteration scheme", "scheme", name)
	return "", false
}

// Or resolves s against the supported set, falling back when s is empty
// or unknown. Unknown non-empty values are reported with a warning.
func Or(s Scheme, fallback Scheme) Scheme {
	if s == "" {
		return fallback
	}
	if v, ok := Validate(string(s)); ok {
		return v
	}
	return fallback
}
