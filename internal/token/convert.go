package token

import (
	"fmt"
	"strings"
)

// Convert reconstructs source text from buf. Hidden regions are emitted when
// withSkipped is set and dropped otherwise.
func Convert(buf []Token, table Table, withSkipped bool) (string, error) {
	var toks Buffer
	if withSkipped {
		toks = Unmarked(buf)
	} else {
		toks = Visible(buf)
	}

	var b strings.Builder
	level := 0
	cr := func(level int) {
		b.WriteByte('\n')
		for i := 0; i < level; i++ {
			b.WriteString("  ")
		}
	}
	last := func() byte {
		s := b.String()
		if s == "" {
			return ' '
		}
		return s[len(s)-1]
	}
	for i, t := range toks {
		if t.ID == EOL {
			b.WriteByte('\n')
			continue
		}
		s, ok := Spelling(t.ID, table)
		if !ok || s == "" {
			return b.String(), fmt.Errorf("no spelling for token %v at %d", t.ID, i)
		}
		hasNext := i+1 < len(toks)
		switch t.ID {
		case LBrace:
			cr(level)
			level++
			b.WriteString(s)
			if hasNext && !toks[i+1].Is(RBrace) {
				cr(level)
			}
		case Semicolon:
			b.WriteString(s)
			if hasNext && toks[i+1].Is(RBrace) {
				cr(level - 1)
			} else {
				cr(level)
			}
		default:
			if b.Len() > 0 && !IsDelimiter(last()) && !IsDelimiter(s[0]) {
				b.WriteByte(' ')
			}
			b.WriteString(s)
			if t.ID == RBrace {
				if level > 0 {
					level--
				}
				if hasNext && !toks[i+1].Is(Semicolon) {
					cr(level)
				}
			}
		}
	}
	return b.String(), nil
}

// Join renders buf as dot-separated spellings, one line per EOL. Markers are
// spelled #skip, #skip_( and #skip_) when withSkipped is set; otherwise
// hidden regions are left out. Unknown ids render as hex.
func Join(buf []Token, table Table, withSkipped bool) string {
	if !withSkipped {
		buf = Visible(buf)
	}
	var b strings.Builder
	for _, t := range buf {
		var s string
		switch {
		case t.Kind != Literal:
			s = t.Kind.String()
		case t.ID == EOL:
			s = "\n"
		default:
			var ok bool
			if s, ok = Spelling(t.ID, table); !ok {
				s = t.ID.String()
			}
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}
