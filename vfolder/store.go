// Package vfolder defines the virtual-folder abstraction the transaction
// engine navigates: a hierarchical namespace of phonebook objects, each
// either a listable directory of individual vCards or a whole-phonebook
// file that concatenates them. Two backends are provided: a filesystem tree
// (fsstore.go) and an in-memory fixture (memstore.go).
package vfolder

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bmwcarit/gopbap/vcard"
)

// SortOrder mirrors apparams.Order without importing it, keeping this
// package free of a dependency on the wire codec.
type SortOrder byte

const (
	SortIndexed SortOrder = iota
	SortAlphanumeric
	SortPhonetical
)

// Query narrows a ListDir call to records whose named attribute matches
// Value. An empty Attribute means "no filter" (every record matches).
type Query struct {
	Attribute string // "N", "Number", or "Sound"
	Value     string
}

// Matches reports whether card satisfies q. An empty query always matches.
func (q Query) Matches(card vcard.Card) bool {
	if q.Attribute == "" || q.Value == "" {
		return true
	}
	joined := card.JoinedValues(queryPropertyName(q.Attribute))
	if joined == "" {
		return false
	}
	return matchValue(joined, q.Value)
}

// queryPropertyName maps the PBAP search-attribute vocabulary ("Number",
// "Sound") onto vCard property type names ("TEL", "SOUND"); "N" already
// matches directly.
func queryPropertyName(attribute string) string {
	switch attribute {
	case "Number":
		return "TEL"
	case "Sound":
		return "SOUND"
	default:
		return attribute
	}
}

// matchValue compares a record's field against a search value. A value
// containing glob metacharacters is matched with doublestar's glob syntax
// (SPEC_FULL.md §11); otherwise it is a case-insensitive substring test,
// matching the source's permissive "search value in field" semantics.
func matchValue(field, value string) bool {
	if strings.ContainsAny(value, "*?[") {
		ok, err := doublestar.Match(strings.ToLower(value), strings.ToLower(field))
		return err == nil && ok
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(value))
}

// Store is the abstract collaborator the transaction engine depends on
// (§4.E). Any backend — filesystem directory tree, document store, in-memory
// fixture — must satisfy it.
type Store interface {
	// Exists reports whether path names a folder or a stored vCard.
	Exists(path string) bool
	// IsDir reports whether path is a folder.
	IsDir(path string) bool
	// IsFile reports whether path names an individual vCard or a
	// whole-phonebook file.
	IsFile(path string) bool
	// Join concatenates path elements into an absolute normalized path.
	Join(elems ...string) string
	// MakeDirs creates path, failing if it already exists.
	MakeDirs(path string) error
	// ListDir returns the cards stored under path matching query, in
	// stable storage order (the transaction engine applies sort/offset/
	// limit and assigns listing handles itself — §4.F).
	ListDir(path string, query Query) ([]vcard.Card, error)
	// Read returns the single record named by path (an "<index>.vcf"),
	// addressed by its position in the full, unfiltered storage order.
	Read(path string) (vcard.Card, error)
	// Count returns the number of records under path.
	Count(path string) (int, error)
}
