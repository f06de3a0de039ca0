package macro

import (
	"github.com/fwessels/fxpp/internal/token"
)

// Definition is the replacement list of a macro plus the condition bits its
// definition depended on. An empty Tokens list means "defined with no value".
type Definition struct {
	Tokens []token.Token
	Mask   uint64
}

// Lookup is a read-only view of a macro namespace.
type Lookup interface {
	Lookup(id token.ID) (Definition, bool)
}

// Table is one mutable macro namespace.
type Table struct {
	defs map[token.ID]Definition
}

func NewTable() *Table {
	return &Table{defs: map[token.ID]Definition{}}
}

// Define inserts or overwrites the macro id.
func (t *Table) Define(id token.ID, tokens []token.Token, mask uint64) {
	if t.defs == nil {
		t.defs = map[token.ID]Definition{}
	}
	t.defs[id] = Definition{Tokens: append([]token.Token(nil), tokens...), Mask: mask}
}

// Undefine removes id and reports whether it was defined.
func (t *Table) Undefine(id token.ID) bool {
	if _, ok := t.defs[id]; !ok {
		return false
	}
	delete(t.defs, id)
	return true
}

func (t *Table) Lookup(id token.ID) (Definition, bool) {
	if t == nil {
		return Definition{}, false
	}
	d, ok := t.defs[id]
	return d, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.defs)
}

// Clone returns an independent copy of t.
func (t *Table) Clone() *Table {
	c := NewTable()
	if t == nil {
		return c
	}
	for id, d := range t.defs {
		c.defs[id] = d
	}
	return c
}

// Find returns the first definition of id along order.
func Find(id token.ID, order ...Lookup) (Definition, bool) {
	for _, l := range order {
		if l == nil {
			continue
		}
		if d, ok := l.Lookup(id); ok {
			return d, true
		}
	}
	return Definition{}, false
}

// FindMask is Find that also ORs the found definition's mask into *mask.
func FindMask(id token.ID, mask *uint64, order ...Lookup) (Definition, bool) {
	d, ok := Find(id, order...)
	if ok && mask != nil {
		*mask |= d.Mask
	}
	return d, ok
}
