package token

import (
	"errors"
	"fmt"
	"sort"
)

// ErrHashCollision reports two different spellings sharing one content hash.
var ErrHashCollision = errors.New("token hash collision")

type Entry struct {
	ID       ID
	Spelling string
}

// Table maps hashed ids to their spelling. It is kept sorted by id.
type Table []Entry

func (t Table) search(id ID) int {
	return sort.Search(len(t), func(i int) bool { return t[i].ID >= id })
}

// Insert adds (id, s) at its sorted position. Inserting an existing pair is
// a no-op; an existing id with another spelling is a collision.
func (t *Table) Insert(id ID, s string) error {
	i := t.search(id)
	if i < len(*t) && (*t)[i].ID == id {
		if (*t)[i].Spelling != s {
			return fmt.Errorf("%w: %q and %q both hash to %v", ErrHashCollision, (*t)[i].Spelling, s, id)
		}
		return nil
	}
	*t = append(*t, Entry{})
	copy((*t)[i+1:], (*t)[i:])
	(*t)[i] = Entry{ID: id, Spelling: s}
	return nil
}

// Intern returns the id of s, recording its spelling when s is not a keyword.
func (t *Table) Intern(s string) (ID, error) {
	id, reserved := Lookup(s)
	if reserved {
		return id, nil
	}
	return id, t.Insert(id, s)
}

func (t Table) Lookup(id ID) (string, bool) {
	i := t.search(id)
	if i < len(t) && t[i].ID == id {
		return t[i].Spelling, true
	}
	return "", false
}

func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	return append(Table(nil), t...)
}

// Sorted reports whether t is in strictly ascending id order.
func (t Table) Sorted() bool {
	for i := 1; i < len(t); i++ {
		if t[i-1].ID >= t[i].ID {
			return false
		}
	}
	return true
}

// Merge returns the sorted union of a and b, keeping the first entry seen for
// an id present in both.
func Merge(a, b Table) Table {
	out := make(Table, 0, len(a)+len(b))
	push := func(e Entry) {
		if n := len(out); n > 0 && out[n-1].ID == e.ID {
			return
		}
		out = append(out, e)
	}
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b):
			push(a[i])
			i++
		case i == len(a):
			push(b[j])
			j++
		case a[i].ID < b[j].ID:
			push(a[i])
			i++
		default:
			push(b[j])
			j++
		}
	}
	return out
}

// Spelling returns the text of id: keywords from the reserved set, everything
// else from t.
func Spelling(id ID, t Table) (string, bool) {
	if id.Reserved() {
		if id < numKeywords && names[id] != "" {
			return names[id], true
		}
		return "", false
	}
	return t.Lookup(id)
}
