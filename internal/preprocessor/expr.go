package preprocessor

import (
	"errors"
	"fmt"

	"github.com/fwessels/fxpp/internal/macro"
	"github.com/fwessels/fxpp/internal/token"
)

// maxTerms caps both the number of terms in one expression and the
// parenthesis nesting depth.
const maxTerms = 64

var (
	ErrExpressionTooComplex = errors.New("conditional expression too complex")
	ErrBadExpression        = errors.New("malformed conditional expression")
)

type term struct {
	value bool
	or    bool
}

// evaluate reads the conditional expression starting at toks[pos] and
// returns its value, the union of the masks of every macro it consulted and
// the index just past it.
//
// Terms are combined strictly left to right: A || B && C is (A || B) && C.
// A term is an identifier, true when it names a macro along order or is the
// literal 1, or a parenthesized group; ! negates the term that follows.
func evaluate(toks []token.Token, pos int, order []macro.Lookup) (result bool, mask uint64, end int, err error) {
	return evaluateDepth(toks, pos, order, 0)
}

func evaluateDepth(toks []token.Token, pos int, order []macro.Lookup, depth int) (bool, uint64, int, error) {
	if depth >= maxTerms {
		return false, 0, pos, ErrExpressionTooComplex
	}
	var (
		terms [maxTerms]term
		n     int
		mask  uint64
		or    bool
	)
	i := pos
	for {
		if n == len(terms) {
			return false, mask, i, ErrExpressionTooComplex
		}
		neg := false
		if i < len(toks) && toks[i].Is(token.Excl) {
			neg = true
			i++
		}
		if i >= len(toks) || toks[i].Kind != token.Literal || toks[i].Is(token.RParen) || toks[i].Is(token.EOL) {
			return false, mask, i, fmt.Errorf("%w: missing term at %d", ErrBadExpression, i)
		}

		var v bool
		if toks[i].Is(token.LParen) {
			r, m, end, err := evaluateDepth(toks, i+1, order, depth+1)
			mask |= m
			if err != nil {
				return false, mask, end, err
			}
			if end >= len(toks) || !toks[end].Is(token.RParen) {
				return false, mask, end, fmt.Errorf("%w: unbalanced parenthesis at %d", ErrBadExpression, i)
			}
			v = r
			i = end + 1
		} else {
			id := toks[i].ID
			_, found := macro.FindMask(id, &mask, order...)
			v = found || id == token.One
			i++
		}
		if neg {
			v = !v
		}
		terms[n] = term{value: v, or: or}
		n++

		switch {
		case i < len(toks) && toks[i].Is(token.Or):
			or = true
			i++
			if i < len(toks) && toks[i].Is(token.Or) {
				i++
			}
		case i < len(toks) && toks[i].Is(token.And):
			or = false
			i++
			if i < len(toks) && toks[i].Is(token.And) {
				i++
			}
		default:
			res := terms[0].value
			for _, t := range terms[1:n] {
				if t.or {
					res = res || t.value
				} else {
					res = res && t.value
				}
			}
			return res, mask, i, nil
		}
	}
}
