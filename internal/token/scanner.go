package token

import (
	"bytes"
	"strings"
)

// IsDelimiter reports whether c ends a token: whitespace and control bytes,
// plus the punctuation ! " & ' ( ) * + , - . / : ; < = > ? [ ] { | }.
func IsDelimiter(c byte) bool {
	switch {
	case c <= 0x20:
		return true
	case c == '!' || c == '"':
		return true
	case c >= '&' && c <= '/':
		return true
	case c >= ':' && c <= '?':
		return true
	case c == '[' || c == ']':
		return true
	case c >= '{' && c <= '}':
		return true
	}
	return false
}

type Scanner struct {
	src []byte
	pos int
}

func NewScanner(src []byte) *Scanner {
	return &Scanner{src: src}
}

// Pos returns the byte offset of the cursor.
func (s *Scanner) Pos() int { return s.pos }

func (s *Scanner) EOF() bool { return s.pos >= len(s.src) }

// Next returns the next token. Leading whitespace is skipped; a delimiter at
// token start forms a one-character token; '/' ends a token as soon as it is
// consumed. ok is false once the input is exhausted.
func (s *Scanner) Next() (spelling string, id ID, reserved bool, ok bool) {
	for s.pos < len(s.src) && s.src[s.pos] <= 0x20 {
		s.pos++
	}
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if IsDelimiter(c) {
			break
		}
		s.pos++
		if c == '/' {
			break
		}
	}
	if s.pos == start {
		if s.pos >= len(s.src) {
			return "", EOL, false, false
		}
		s.pos++
	}
	spelling = string(s.src[start:s.pos])
	id, reserved = Lookup(spelling)
	return spelling, id, reserved, true
}

// SkipBlank skips whitespace and comments.
func (s *Scanner) SkipBlank() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c <= 0x20:
			s.pos++
		case c == '/' && s.peek(1) == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		case c == '/' && s.peek(1) == '*':
			end := bytes.Index(s.src[s.pos+2:], []byte("*/"))
			if end < 0 {
				s.pos = len(s.src)
			} else {
				s.pos += 2 + end + 2
			}
		default:
			return
		}
	}
}

func (s *Scanner) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *Scanner) skipSpaceTab() {
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

// restOfLine returns the text up to the next newline without consuming it.
func (s *Scanner) restOfLine() string {
	end := s.pos
	for end < len(s.src) && s.src[end] != '\n' {
		end++
	}
	line := string(s.src[s.pos:end])
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	return line
}

// word reads a run of non-blank bytes.
func (s *Scanner) word() string {
	s.skipSpaceTab()
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] > 0x20 {
		s.pos++
	}
	return string(s.src[start:s.pos])
}

// lineBody reads the rest of a directive line. A backslash continues the
// body on the next line, recorded as a newline.
func (s *Scanner) lineBody() string {
	s.skipSpaceTab()
	var b strings.Builder
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		c := s.src[s.pos]
		if c == '\\' {
			b.WriteByte('\n')
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			if s.pos < len(s.src) {
				s.pos++
			}
			continue
		}
		b.WriteByte(c)
		s.pos++
	}
	return strings.TrimRight(b.String(), " \t\n")
}
