// Package translit defines the transliteration scheme registry and the
// span-scoped transliteration used when rendering lexicon records.
//
// The scheme conversion tables themselves are an external concern: callers
// plug in a Func (for example a binding to a sanscript-style converter) and
// this package decides where and when to apply it.
package translit

import "strings"

// Func converts text from one scheme to another. Implementations operate on
// phonetic runs and pass non-phonetic glyphs (punctuation, wildcards such as
// `*`) through verbatim.
type Func func(text string, from, to Scheme) string

// Identity is the no-op conversion. It stands in wherever a real converter
// has not been plugged, keeping canonical-scheme operation fully functional.
func Identity(text string, _, _ Scheme) string {
	return text
}

// Between transliterates only the text between paired start/end markers,
// for every non-overlapping, non-nested occurrence of the pair. The markers
// are reproduced verbatim and text outside any pair is untouched. Span
// interiors may contain newlines. A start marker without a matching end
// marker leaves the remainder of the text unchanged.
//
// When from == to the input is returned as-is without scanning and without
// invoking f; callers rely on this fast path to skip conversion cost.
func Between(text string, f Func, from, to Scheme, start, end string) string {
	if from == to || f == nil || text == "" || start == "" || end == "" {
		return text
	}

	var b strings.Builder
	rest := text
	for {
		i := strings.Index(rest, start)
		if i < 0 {
			break
		}
		j := strings.Index(rest[i+len(start):], end)
		if j < 0 {
			break
		}
		span := rest[i+len(start) : i+len(start)+j]
		b.WriteString(rest[:i+len(start)])
		b.WriteString(f(span, from, to))
		b.WriteString(end)
		rest = rest[i+len(start)+j+len(end):]
	}
	if b.Len() == 0 {
		return text
	}
	b.WriteString(rest)
	return b.String()
}
