package token

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		in       string
		id       ID
		reserved bool
	}{
		{"#include", Include, true},
		{"#define", Define, true},
		{"#if", If, true},
		{"#ifdef", Ifdef, true},
		{"(", LParen, true},
		{"1", One, true},
		{"float4", Float4, true},
		{"PCDX11", Hash("PCDX11"), false},
		{"%_RT_FOG", Hash("%_RT_FOG"), false},
	}
	for _, tt := range tests {
		id, reserved := Lookup(tt.in)
		if id != tt.id || reserved != tt.reserved {
			t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.in, id, reserved, tt.id, tt.reserved)
		}
		if !reserved && id.Reserved() {
			t.Errorf("Lookup(%q): hash %v collides with the reserved range", tt.in, id)
		}
	}
}

func TestTableInsert(t *testing.T) {
	var table Table
	for _, s := range []string{"gamma", "alpha", "beta", "alpha", "delta"} {
		if err := table.Insert(Hash(s), s); err != nil {
			t.Fatalf("Insert(%q): %v", s, err)
		}
	}
	if len(table) != 4 {
		t.Fatalf("got %d entries, want 4", len(table))
	}
	if !table.Sorted() {
		t.Errorf("table not sorted: %v", table)
	}
	for _, s := range []string{"alpha", "beta", "gamma", "delta"} {
		got, ok := table.Lookup(Hash(s))
		if !ok || got != s {
			t.Errorf("Lookup(%q) = %q, %v", s, got, ok)
		}
	}

	err := table.Insert(Hash("alpha"), "not-alpha")
	if !errors.Is(err, ErrHashCollision) {
		t.Errorf("expected hash collision, got %v", err)
	}
}

func TestIntern(t *testing.T) {
	var table Table
	id, err := table.Intern("#endif")
	if err != nil || id != Endif {
		t.Fatalf("Intern(#endif) = %v, %v", id, err)
	}
	if len(table) != 0 {
		t.Errorf("keywords must not enter the table: %v", table)
	}
	id, err = table.Intern("Diffuse")
	if err != nil || id != Hash("Diffuse") {
		t.Fatalf("Intern(Diffuse) = %v, %v", id, err)
	}
	if s, ok := Spelling(id, table); !ok || s != "Diffuse" {
		t.Errorf("Spelling = %q, %v", s, ok)
	}
	if s, ok := Spelling(Semicolon, nil); !ok || s != ";" {
		t.Errorf("Spelling(;) = %q, %v", s, ok)
	}
}

func buildTable(t *testing.T, words ...string) Table {
	t.Helper()
	var table Table
	for _, w := range words {
		if _, err := table.Intern(w); err != nil {
			t.Fatal(err)
		}
	}
	return table
}

func ids(t Table) []ID {
	out := make([]ID, len(t))
	for i, e := range t {
		out[i] = e.ID
	}
	return out
}

func TestMerge(t *testing.T) {
	a := buildTable(t, "one", "two", "three", "shared")
	b := buildTable(t, "four", "shared", "five", "two")

	ab := Merge(a, b)
	ba := Merge(b, a)
	if !ab.Sorted() || !ba.Sorted() {
		t.Fatalf("merge result not sorted")
	}
	if diff := cmp.Diff(ids(ab), ids(ba)); diff != "" {
		t.Errorf("merge not commutative (-ab +ba):\n%s", diff)
	}
	want := buildTable(t, "one", "two", "three", "shared", "four", "five")
	if diff := cmp.Diff(want, ab); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if got := Merge(nil, b); len(got) != len(b) {
		t.Errorf("Merge(nil, b) has %d entries, want %d", len(got), len(b))
	}
	if got := Merge(a, a); len(got) != len(a) {
		t.Errorf("Merge(a, a) has %d entries, want %d", len(got), len(a))
	}
}
