package lexicon

import (
	"fmt"
	"strings"
	"sync"

	"github.com/k3a/html2text"

	"github.com/indology/gocdsl/pkg/translit"
)

// Span markers delimiting phonetic (transliterable) content inside a
// record's body markup.
const (
	SpanStart = "<s>"
	SpanEnd   = "</s>"
)

// Record is one raw dictionary row: a decimal identifier (kept as a string
// so fractional sub-entry numbers like "123.5" survive exactly), a lookup
// key in the internal scheme, and a marked-up body in the internal scheme.
type Record struct {
	ID   string
	Key  string
	Data string
}

// Entry is a read view over one Record rendered for an output scheme.
// Entries are immutable after construction; re-rendering into another
// scheme produces a new Entry via Transliterate.
type Entry struct {
	lexiconID string
	record    Record
	scheme    translit.Scheme
	key       string
	data      string

	tr           translit.Func
	translitKeys bool

	meaningOnce sync.Once
	meaning     string
}

// NewEntry wraps a record with an output scheme context. An empty or
// unknown scheme falls back to the internal scheme. When the scheme differs
// from the internal one the key is converted directly (unless key
// transliteration is disabled for the dictionary) and the body is converted
// span by span, leaving markup untouched.
func NewEntry(lexiconID string, rec Record, tr translit.Func, scheme translit.Scheme, translitKeys bool) *Entry {
	scheme = translit.Or(scheme, translit.Internal)

	key := rec.Key
	data := rec.Data
	if scheme != translit.Internal && tr != nil {
		if translitKeys {
			key = tr(rec.Key, translit.Internal, scheme)
		}
		data = translit.Between(rec.Data, tr, translit.Internal, scheme, SpanStart, SpanEnd)
	}

	return &Entry{
		lexiconID:    lexiconID,
		record:       rec,
		scheme:       scheme,
		key:          key,
		data:         data,
		tr:           tr,
		translitKeys: translitKeys,
	}
}

// LexiconID returns the ID of the dictionary this entry belongs to.
func (e *Entry) LexiconID() string { return e.lexiconID }

// ID returns the record identifier as an exact decimal string.
func (e *Entry) ID() string { return e.record.ID }

// Key returns the lookup key rendered in the entry's output scheme.
func (e *Entry) Key() string { return e.key }

// Data returns the body markup with span interiors rendered in the entry's
// output scheme.
func (e *Entry) Data() string { return e.data }

// Scheme returns the output scheme this entry was rendered for.
func (e *Entry) Scheme() translit.Scheme { return e.scheme }

// Meaning returns the markup-stripped, whitespace-trimmed text of the
// record's body region. It is computed on first use and cached; this is
// safe because the entry never changes after construction.
func (e *Entry) Meaning() string {
	e.meaningOnce.Do(func() {
		e.meaning = strings.TrimSpace(html2text.HTML2Text(bodyRegion(e.data)))
	})
	return e.meaning
}

// bodyRegion narrows markup to the interior of its <body> element. Records
// without a body element are used whole.
func bodyRegion(data string) string {
	i := strings.Index(data, "<body>")
	if i < 0 {
		return data
	}
	rest := data[i+len("<body>"):]
	if j := strings.Index(rest, "</body>"); j >= 0 {
		return rest[:j]
	}
	return rest
}

// Transliterate returns a new Entry over the same record rendered for
// another scheme. The receiver is left untouched, so callers may hold
// differently-rendered views of one record at the same time.
func (e *Entry) Transliterate(scheme translit.Scheme, translitKeys bool) *Entry {
	return NewEntry(e.lexiconID, e.record, e.tr, scheme, translitKeys)
}

// Snapshot is a serializable form of an Entry.
type Snapshot struct {
	Lexicon string `json:"lexicon"`
	ID      string `json:"id"`
	Key     string `json:"key"`
	Data    string `json:"data"`
	Text    string `json:"text"`
}

// Snapshot materializes the entry for serialization.
func (e *Entry) Snapshot() Snapshot {
	return Snapshot{
		Lexicon: e.lexiconID,
		ID:      e.record.ID,
		Key:     e.key,
		Data:    e.data,
		Text:    e.Meaning(),
	}
}

// String renders the short "id: key" form.
func (e *Entry) String() string {
	return fmt.Sprintf("%s: %s", e.record.ID, e.key)
}

// Describe renders the long form including the extracted meaning.
func (e *Entry) Describe() string {
	return fmt.Sprintf("%s: %s = %s", e.record.ID, e.key, e.Meaning())
}
