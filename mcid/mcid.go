// Package mcid interns the strings used across the registry and the A2L
// writer: free-form text (comments, units) and A2L-legal identifiers
// (segment, event, typedef, field and instance names).
//
// Every unique string is stored exactly once in a process-wide pool so that
// handles compare cheaply by value and live for the lifetime of the process,
// mirroring the leaked-&'static-str handles of the original McText/
// McIdentifier design. The pool is small and bounded by the number of
// distinct names a single application registers, never by traffic volume.
package mcid

import (
	"strings"
	"sync"
)

var (
	textPoolMu sync.Mutex
	textPool   = make(map[string]string)

	identPoolMu sync.Mutex
	identPool   = make(map[string]string)
)

func intern(mu *sync.Mutex, pool map[string]string, s string) string {
	mu.Lock()
	defer mu.Unlock()
	if canon, ok := pool[s]; ok {
		return canon
	}
	pool[s] = s
	return s
}

// Text is an interned, arbitrary user-facing string: comments, units,
// descriptions. Two Texts built from equal content always compare equal.
type Text string

// EmptyText is the canonical empty Text.
const EmptyText Text = ""

// NewText interns s and returns its stable handle.
func NewText(s string) Text {
	if s == "" {
		return EmptyText
	}
	return Text(intern(&textPoolMu, textPool, s))
}

// String implements fmt.Stringer.
func (t Text) String() string { return string(t) }

// IsEmpty reports whether the text is the empty string.
func (t Text) IsEmpty() bool { return t == "" }

// Identifier is an interned, A2L-legal name: ASCII alphanumerics plus '_'
// and '.'. Sanitize substitutes any other byte with '_' on ingestion;
// NewIdentifier panics on one. Identifiers compare by content.
type Identifier string

// EmptyIdentifier is the canonical empty Identifier.
const EmptyIdentifier Identifier = ""

// NewIdentifier interns s verbatim. It panics if s contains a byte outside
// the legal identifier alphabet; use Sanitize first to accept arbitrary
// input.
func NewIdentifier(s string) Identifier {
	if s == "" {
		return EmptyIdentifier
	}
	if !isLegal(s) {
		panic("mcid: illegal identifier: " + s)
	}
	return Identifier(intern(&identPoolMu, identPool, s))
}

// Sanitize substitutes every byte outside the legal identifier alphabet
// (ASCII alphanumerics, '_', '.') with '_', then interns the result.
func Sanitize(s string) Identifier {
	if s == "" {
		return EmptyIdentifier
	}
	if isLegal(s) {
		return Identifier(intern(&identPoolMu, identPool, s))
	}
	b := []byte(s)
	for i, c := range b {
		if !legalByte(c) {
			b[i] = '_'
		}
	}
	return Identifier(intern(&identPoolMu, identPool, string(b)))
}

func isLegal(s string) bool {
	for i := 0; i < len(s); i++ {
		if !legalByte(s[i]) {
			return false
		}
	}
	return true
}

func legalByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '.':
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (id Identifier) String() string { return string(id) }

// IsEmpty reports whether the identifier is empty.
func (id Identifier) IsEmpty() bool { return id == "" }

// Less reports whether id sorts before other, used by registry ordering
// before A2L emission.
func (id Identifier) Less(other Identifier) bool {
	return strings.Compare(string(id), string(other)) < 0
}
