package lexicon

import "strings"

// Shape describes how a dictionary's records are laid out in its SQLite
// database. CDSL ships one table per dictionary; the table is named after
// the dictionary and every known dictionary uses the lnum/key/data columns.
type Shape struct {
	Table      string
	IDColumn   string
	KeyColumn  string
	DataColumn string
}

// GenericShape infers the record shape for a dictionary: the table name is
// the lower-cased dictionary ID.
func GenericShape(dictID string) Shape {
	return Shape{
		Table:      strings.ToLower(dictID),
		IDColumn:   "lnum",
		KeyColumn:  "key",
		DataColumn: "data",
	}
}

// builtinShapes pins shapes for dictionaries whose layout is known up front.
// Everything else falls back to GenericShape.
var builtinShapes = map[string]Shape{
	"MW":   {Table: "mw", IDColumn: "lnum", KeyColumn: "key", DataColumn: "data"},
	"AP90": {Table: "ap90", IDColumn: "lnum", KeyColumn: "key", DataColumn: "data"},
}

// ShapeFor resolves the record shape for a dictionary ID.
func ShapeFor(dictID string) Shape {
	id := strings.ToUpper(dictID)
	if s, ok := builtinShapes[id]; ok {
		return s
	}
	return GenericShape(id)
}
