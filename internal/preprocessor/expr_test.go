package preprocessor

import (
	"errors"
	"strings"
	"testing"

	"github.com/fwessels/fxpp/internal/macro"
	"github.com/fwessels/fxpp/internal/token"
)

func exprTokens(t *testing.T, src string) token.Buffer {
	t.Helper()
	buf, _, err := token.Tokenize([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestEvaluate(t *testing.T) {
	defs := macro.NewTable()
	defs.Define(token.Hash("A"), nil, 0x1)
	defs.Define(token.Hash("B"), nil, 0x2)
	order := []macro.Lookup{defs}

	tests := []struct {
		expr   string
		result bool
		mask   uint64
	}{
		{"A", true, 0x1},
		{"C", false, 0},
		{"1", true, 0},
		{"0", false, 0},
		{"!C", true, 0},
		{"A && B", true, 0x3},
		{"A && C", false, 0x1},
		{"C || B", true, 0x2},
		{"1 || C && C", false, 0},
		{"C && C || 1", true, 0},
		{"!(A || B)", false, 0x3},
		{"(C || (A && B)) && !C", true, 0x3},
		// every consulted macro contributes, even when it cannot change
		// the result
		{"!A || B", true, 0x3},
		{"0 && A", false, 0x1},
		{"1 || B", true, 0x2},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			toks := exprTokens(t, tt.expr)
			result, mask, end, err := evaluate(toks, 0, order)
			if err != nil {
				t.Fatal(err)
			}
			if result != tt.result || mask != tt.mask {
				t.Errorf("got (%v, %#x), want (%v, %#x)", result, mask, tt.result, tt.mask)
			}
			if end != len(toks) {
				t.Errorf("stopped at %d of %d", end, len(toks))
			}
		})
	}
}

func TestEvaluateStops(t *testing.T) {
	toks := exprTokens(t, "A B C")
	_, _, end, err := evaluate(toks, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if end != 1 {
		t.Errorf("end %d, want 1", end)
	}
}

func TestEvaluateLookupOrder(t *testing.T) {
	first, second := macro.NewTable(), macro.NewTable()
	first.Define(token.Hash("A"), nil, 0x1)
	second.Define(token.Hash("A"), nil, 0x2)
	toks := exprTokens(t, "A")
	_, mask, _, err := evaluate(toks, 0, []macro.Lookup{first, second})
	if err != nil {
		t.Fatal(err)
	}
	if mask != 0x1 {
		t.Errorf("mask %#x: first table in order did not win", mask)
	}
}

func TestEvaluateLimits(t *testing.T) {
	terms := func(n int) string {
		return strings.TrimSuffix(strings.Repeat("A || ", n), " || ")
	}
	parens := func(n int) string {
		return strings.Repeat("(", n) + "1" + strings.Repeat(")", n)
	}
	tests := []struct {
		name string
		expr string
		err  error
	}{
		{"64 terms", terms(64), nil},
		{"65 terms", terms(65), ErrExpressionTooComplex},
		{"63 levels", parens(63), nil},
		{"64 levels", parens(64), ErrExpressionTooComplex},
		{"unbalanced", "(A || B", ErrBadExpression},
		{"empty group", "()", ErrBadExpression},
		{"empty", "", ErrBadExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := evaluate(exprTokens(t, tt.expr), 0, nil)
			if !errors.Is(err, tt.err) {
				t.Errorf("got %v, want %v", err, tt.err)
			}
		})
	}
}
