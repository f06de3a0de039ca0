package token

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// SecondPassPrefix marks flags that are only resolved by the second
// preprocessing pass. A conditional mentioning one is tagged If2/Ifdef2/Ifndef2.
const SecondPassPrefix = "%_"

var (
	ErrBadInclude = errors.New("bad #include syntax")
	ErrBadDefine  = errors.New("bad #define")
)

// Tokenize converts one source file into its token buffer and private
// spelling table. Comments and whitespace are dropped; #include names become
// a single token without extension; #define bodies end with EOL.
func Tokenize(src []byte) (Buffer, Table, error) {
	src = bytes.ReplaceAll(src, []byte("\r"), nil)
	var (
		buf   Buffer
		table Table
	)
	s := NewScanner(src)
	for {
		s.SkipBlank()
		spelling, id, reserved, ok := s.Next()
		if !ok {
			break
		}
		if !reserved {
			if err := table.Insert(id, spelling); err != nil {
				return nil, nil, err
			}
		}
		switch id {
		case Include:
			buf = append(buf, Lit(id))
			name, err := s.includeName()
			if err != nil {
				return nil, nil, err
			}
			nid, err := table.Intern(name)
			if err != nil {
				return nil, nil, err
			}
			buf = append(buf, Lit(nid))

		case If, Ifdef, Ifndef:
			buf = append(buf, Lit(passVariant(id, s.restOfLine())))

		case Define:
			name := s.word()
			if name == "" {
				return nil, nil, fmt.Errorf("%w: missing name at offset %d", ErrBadDefine, s.Pos())
			}
			if name[0] == '%' {
				id = Define2
			}
			nid, err := table.Intern(name)
			if err != nil {
				return nil, nil, err
			}
			buf = append(buf, Lit(id), Lit(nid))
			if buf, err = tokenizeBody(buf, &table, s.lineBody()); err != nil {
				return nil, nil, err
			}
			buf = append(buf, Lit(EOL))

		default:
			buf = append(buf, Lit(id))
		}
	}
	return buf, table, nil
}

func tokenizeBody(buf Buffer, table *Table, body string) (Buffer, error) {
	s := NewScanner([]byte(body))
	for {
		s.SkipBlank()
		spelling, id, reserved, ok := s.Next()
		if !ok {
			return buf, nil
		}
		if !reserved {
			if err := table.Insert(id, spelling); err != nil {
				return nil, err
			}
		}
		switch id {
		case If, Ifdef, Ifndef:
			id = passVariant(id, s.restOfLine())
		}
		buf = append(buf, Lit(id))
	}
}

// passVariant returns the second-pass form of a conditional when its line
// mentions a second-pass flag.
func passVariant(id ID, line string) ID {
	s := NewScanner([]byte(line))
	for {
		spelling, _, _, ok := s.Next()
		if !ok {
			return id
		}
		if strings.HasPrefix(spelling, SecondPassPrefix) {
			break
		}
	}
	switch id {
	case If:
		return If2
	case Ifdef:
		return Ifdef2
	case Ifndef:
		return Ifndef2
	}
	return id
}

func (s *Scanner) includeName() (string, error) {
	s.skipSpaceTab()
	if s.EOF() {
		return "", fmt.Errorf("%w: missing name", ErrBadInclude)
	}
	open := s.src[s.pos]
	var closer byte
	switch open {
	case '"':
		closer = '"'
	case '<':
		closer = '>'
	default:
		return "", fmt.Errorf("%w: expected \" or < at offset %d", ErrBadInclude, s.pos)
	}
	s.pos++
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] != closer {
		if s.src[s.pos] <= 0x20 {
			return "", fmt.Errorf("%w: invalid character inside include brackets at offset %d", ErrBadInclude, s.pos)
		}
		s.pos++
	}
	if s.EOF() {
		return "", fmt.Errorf("%w: unterminated name", ErrBadInclude)
	}
	name := string(s.src[start:s.pos])
	s.pos++
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrBadInclude)
	}
	return StripExt(name), nil
}

// StripExt removes the file extension from an include name.
func StripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
