// Package slicer cuts a preprocessed token buffer into declarations. Every
// piece it hands out is a Frame, an index range into the buffer; token data
// is never copied unless CopyTokens is asked to.
package slicer

import (
	"fmt"
	"log"
	"reflect"
	"strconv"
	"strings"

	"modernc.org/mathutil"
	"modernc.org/strutil"

	"github.com/fwessels/fxpp/internal/token"
)

// StorageClass is the qualifier in front of a declaration.
type StorageClass int

const (
	StorageInvalid StorageClass = iota - 1
	StorageDefault
	StorageConst
	StorageStatic
	StorageShared
	StorageGroupshared
)

var storageNames = [...]string{"invalid", "default", "const", "static", "shared", "groupshared"}

func (s StorageClass) String() string {
	if i := int(s) + 1; i >= 0 && i < len(storageNames) {
		return storageNames[i]
	}
	return fmt.Sprintf("StorageClass(%d)", int(s))
}

func storageClass(t token.Token) StorageClass {
	if t.Kind != token.Literal {
		return StorageDefault
	}
	switch t.ID {
	case token.Const:
		return StorageConst
	case token.Static:
		return StorageStatic
	case token.Shared:
		return StorageShared
	case token.Groupshared:
		return StorageGroupshared
	}
	return StorageDefault
}

// Frame is the inclusive token range [First, Last] with a cursor Cur.
type Frame struct {
	First, Last, Cur int
}

// NewFrame returns the frame [first, last] with its cursor on first.
func NewFrame(first, last int) Frame {
	return Frame{First: first, Last: last, Cur: first}
}

func (f Frame) Empty() bool { return f.First > f.Last }

func (f Frame) Len() int {
	if f.Empty() {
		return 0
	}
	return f.Last - f.First + 1
}

var emptyFrame = Frame{First: 0, Last: -1}

type FragmentType int

const (
	FragmentStorageClass FragmentType = iota
	FragmentDirective
	FragmentFunction
)

func (t FragmentType) String() string {
	switch t {
	case FragmentStorageClass:
		return "StorageClass"
	case FragmentDirective:
		return "Directive"
	case FragmentFunction:
		return "Function"
	}
	return fmt.Sprintf("FragmentType(%d)", int(t))
}

// Fragment is a piece of code NextToken stepped over: a qualified global, a
// leftover preprocessor directive or a function definition.
type Fragment struct {
	Type  FragmentType
	Frame Frame
	Name  token.ID
}

type Logger interface {
	Printf(format string, v ...any)
}

// Parser walks one token buffer.
type Parser struct {
	tokens    token.Buffer
	table     token.Table
	logger    Logger
	cur       Frame
	tok       token.ID
	first     int
	fragments []Fragment

	// Pieces of the declaration read by the last ParseObject call.
	Name, Assign, Value, Data, Annotations Frame
}

// New returns a parser whose current frame spans all of buf. A nil logger
// logs to the standard logger.
func New(buf token.Buffer, table token.Table, logger Logger) *Parser {
	if logger == nil {
		logger = log.Default()
	}
	p := &Parser{
		tokens: buf,
		table:  table,
		logger: logger,
		cur:    NewFrame(0, len(buf)-1),
	}
	p.resetObject()
	return p
}

func (p *Parser) resetObject() {
	p.Name, p.Assign, p.Value, p.Data, p.Annotations = emptyFrame, emptyFrame, emptyFrame, emptyFrame, emptyFrame
}

// Tokens returns the underlying buffer.
func (p *Parser) Tokens() token.Buffer { return p.tokens }

// Frame returns the current frame.
func (p *Parser) Frame() Frame { return p.cur }

// Token returns the token last returned by NextToken and its index.
func (p *Parser) Token() (token.ID, int) { return p.tok, p.first }

func (p *Parser) Fragments() []Fragment { return p.fragments }

// BeginFrame makes f current and returns the frame it replaces, to be
// restored with EndFrame.
func (p *Parser) BeginFrame(f Frame) Frame {
	prev := p.cur
	if f.First < 0 {
		p.logger.Printf("validation error: frame [%d, %d] starts before the first token", f.First, f.Last)
		f.First = 0
	}
	if f.Last >= len(p.tokens) {
		p.logger.Printf("validation error: frame [%d, %d] exceeds %d tokens", f.First, f.Last, len(p.tokens))
		f.Last = len(p.tokens) - 1
	}
	f.Cur = f.First
	p.cur = f
	p.tok = token.EOL
	return prev
}

func (p *Parser) EndFrame(prev Frame) {
	p.cur = prev
}

func (p *Parser) at(i int) token.Token {
	if i < 0 || i >= len(p.tokens) {
		return token.Token{}
	}
	return p.tokens[i]
}

// visible returns the first index at or after i that is not part of a
// hidden unit.
func (p *Parser) visible(i int) int {
	for n := token.SkipLen(p.tokens, i); n > 0; n = token.SkipLen(p.tokens, i) {
		i += n
	}
	return i
}

func (p *Parser) skipHidden() {
	p.cur.Cur = p.visible(p.cur.Cur)
}

// closingQuote returns the index of the quote that closes the one at i, or
// the frame end when it is unterminated.
func (p *Parser) closingQuote(i int) int {
	for i++; i <= p.cur.Last; i++ {
		if n := token.SkipLen(p.tokens, i); n > 0 {
			i += n - 1
			continue
		}
		if p.at(i).Is(token.Quote) {
			return i
		}
	}
	return p.cur.Last
}

func (p *Parser) inBounds(op string) bool {
	if p.cur.Cur < 0 || p.cur.Cur >= len(p.tokens) {
		p.logger.Printf("validation error: out-of-bounds access in %s at %d of %d tokens", op, p.cur.Cur, len(p.tokens))
		return false
	}
	return true
}

// NextToken returns the next declaration-leading token of the current frame.
// Hidden tokens and quotes are stepped over; qualified globals, directives
// and function definitions are recorded as fragments and stepped over too.
// The storage class of the last qualifier seen is returned along with the
// token. ok is false at the end of the frame.
func (p *Parser) NextToken() (id token.ID, sc StorageClass, ok bool) {
	sc = StorageDefault
	for {
		i := p.cur.Cur
		if i < 0 {
			p.logger.Printf("validation error: cursor %d before the first token", i)
			return token.EOL, sc, false
		}
		if i > p.cur.Last || i >= len(p.tokens) {
			return token.EOL, sc, false
		}
		if n := token.SkipLen(p.tokens, i); n > 0 {
			p.cur.Cur += n
			continue
		}
		t := p.tokens[i]
		if t.Is(token.Quote) {
			p.cur.Cur++
			continue
		}

		if s := storageClass(t); s != StorageDefault {
			sc = s
			end := p.indexOf(i, p.cur.Last, token.Semicolon)
			if end < 0 {
				end = p.cur.Last
			}
			p.fragments = append(p.fragments, Fragment{
				Type:  FragmentStorageClass,
				Frame: NewFrame(i, end),
				Name:  p.at(end - 1).ID,
			})
			p.cur.Cur = end + 1
			continue
		}

		if isDirective(t.ID) {
			end := p.directiveEnd(i)
			p.fragments = append(p.fragments, Fragment{Type: FragmentDirective, Frame: NewFrame(i, end), Name: t.ID})
			p.cur.Cur = end + 1
			continue
		}

		if name, end, ok := p.function(i); ok {
			p.fragments = append(p.fragments, Fragment{Type: FragmentFunction, Frame: NewFrame(i, end), Name: name})
			p.cur.Cur = end + 1
			continue
		}

		p.tok, p.first = t.ID, i
		p.cur.Cur++
		return t.ID, sc, true
	}
}

func isDirective(id token.ID) bool {
	return id >= token.Include && id <= token.Elifcvar
}

// directiveEnd returns the index of the last token of the directive at i.
func (p *Parser) directiveEnd(i int) int {
	last := p.cur.Last
	end := i
	switch p.tokens[i].ID {
	case token.Define, token.Define2:
		end = i + 1
		for end < last && !p.at(end).Is(token.EOL) {
			end++
		}
	case token.If, token.Ifdef, token.Ifndef, token.If2, token.Ifdef2, token.Ifndef2, token.Elif:
		end = p.exprEnd(i+1) - 1
	case token.Else, token.Endif:
	case token.Warning, token.RegisterEnv:
		end = i + 1
		if p.at(end).Is(token.Quote) {
			if q := p.indexOf(end+1, last, token.Quote); q >= 0 {
				end = q
			}
		}
	default:
		end = i + 1
	}
	return mathutil.Min(end, last)
}

// exprEnd returns the index just past the conditional expression at i.
func (p *Parser) exprEnd(i int) int {
	for i <= p.cur.Last {
		if p.at(i).Is(token.Excl) {
			i++
		}
		if p.at(i).Is(token.LParen) {
			depth := 0
			for ; i <= p.cur.Last; i++ {
				if p.at(i).Is(token.LParen) {
					depth++
				} else if p.at(i).Is(token.RParen) {
					depth--
					if depth == 0 {
						break
					}
				}
			}
		}
		i++
		op := p.at(i)
		if !op.Is(token.Or) && !op.Is(token.And) {
			return i
		}
		i++
		if p.at(i).Is(op.ID) {
			i++
		}
	}
	return i
}

// function recognizes "[attr]... type name ( ... ) ... { ... }" at start and
// returns the name and the index of the closing brace.
func (p *Parser) function(start int) (name token.ID, end int, ok bool) {
	last := p.cur.Last
	if start+4 >= last {
		return 0, 0, false
	}
	i := start
	for p.at(i).Is(token.LBracket) {
		j := p.indexOf(i+1, last, token.RBracket)
		if j < 0 {
			return 0, 0, false
		}
		i = p.visible(j + 1)
	}
	if !p.at(i+2).Is(token.LParen) || p.at(i+1).Kind != token.Literal {
		return 0, 0, false
	}
	name = p.at(i + 1).ID

	brace := p.indexOf(i+3, last, token.LBrace, token.Semicolon)
	if brace < 0 || !p.at(brace).Is(token.LBrace) {
		return 0, 0, false
	}
	depth := 0
	for j := brace; j <= last; j++ {
		if n := token.SkipLen(p.tokens, j); n > 0 {
			j += n - 1
			continue
		}
		switch {
		case p.at(j).Is(token.LBrace):
			depth++
		case p.at(j).Is(token.RBrace):
			depth--
			if depth == 0 {
				return name, j, true
			}
		}
	}
	return 0, 0, false
}

// indexOf returns the first index in [first, last] holding one of ids, or
// -1.
func (p *Parser) indexOf(first, last int, ids ...token.ID) int {
	last = mathutil.Min(last, len(p.tokens)-1)
	for i := mathutil.Max(first, 0); i <= last; i++ {
		if n := token.SkipLen(p.tokens, i); n > 0 {
			i += n - 1
			continue
		}
		t := p.tokens[i]
		if t.Kind != token.Literal {
			continue
		}
		for _, id := range ids {
			if t.ID == id {
				return i
			}
		}
	}
	return -1
}

// FindToken returns the index of the first id in [first, last], or -1.
func (p *Parser) FindToken(first, last int, id token.ID) int {
	return p.FindAnyToken(first, last, id)
}

// FindAnyToken returns the index of the first token in [first, last] that is
// one of ids, or -1.
func (p *Parser) FindAnyToken(first, last int, ids ...token.ID) int {
	if first < 0 || last >= len(p.tokens) {
		p.logger.Printf("validation error: out-of-bounds search [%d, %d] of %d tokens", first, last, len(p.tokens))
		return -1
	}
	return p.indexOf(first, last, ids...)
}

// JumpSemicolon returns the index just past the next semicolon in
// [start, end].
func (p *Parser) JumpSemicolon(start, end int) (int, bool) {
	if i := p.indexOf(start, end, token.Semicolon); i >= 0 {
		return i + 1, true
	}
	return mathutil.Max(start, end+1), false
}

// ParseObject reads one declaration
//
//	keyword [<annotations>] name[...] [: assign] [<annotations>] [= value] [{ data }] [;]
//
// into Name, Assign, Annotations, Value and Data. A leading keyword that is
// not in whitelist is logged and yields StorageInvalid.
func (p *Parser) ParseObject(whitelist []token.ID) StorageClass {
	if p.cur.Cur+1 >= p.cur.Last {
		return StorageInvalid
	}
	if !p.inBounds("ParseObject") {
		return StorageInvalid
	}
	id, sc, ok := p.NextToken()
	if !ok {
		return StorageInvalid
	}
	p.resetObject()
	if !p.allowed(id, whitelist) {
		return StorageInvalid
	}

	annotated := false
	p.skipHidden()
	if p.at(p.cur.Cur).Is(token.Less) {
		p.Annotations, _ = p.SubData(token.Less, token.Greater)
		annotated = true
	}
	p.Name = p.AssignmentData()
	p.skipHidden()
	if p.at(p.cur.Cur).Is(token.Colon) {
		p.cur.Cur++
		p.Assign = p.AssignmentData()
	}
	if !annotated {
		p.Annotations, _ = p.SubData(token.Less, token.Greater)
	}
	p.skipHidden()
	if p.cur.Cur <= p.cur.Last {
		if p.at(p.cur.Cur).Is(token.Eq) {
			p.cur.Cur++
			p.Value = p.FXAssignmentData2()
		}
		p.Data, _ = p.SubData(token.LBrace, token.RBrace)
	}
	p.skipHidden()
	if p.cur.Cur <= p.cur.Last && p.at(p.cur.Cur).Is(token.Semicolon) {
		p.cur.Cur++
	}
	return sc
}

// ParseIndexedObject reads one state assignment
//
//	keyword [[index]] ['name'|name] (= value; | { data })
//
// The value or body lands in Data and the index, -1 when absent, is returned.
func (p *Parser) ParseIndexedObject(whitelist []token.ID) (StorageClass, int) {
	index := -1
	if !p.inBounds("ParseIndexedObject") {
		return StorageInvalid, index
	}
	if p.cur.Cur+1 >= p.cur.Last {
		return StorageInvalid, index
	}
	id, sc, ok := p.NextToken()
	if !ok {
		return StorageInvalid, index
	}
	p.resetObject()
	if !p.allowed(id, whitelist) {
		return StorageInvalid, index
	}

	p.skipHidden()
	if p.at(p.cur.Cur).Is(token.LBracket) {
		p.cur.Cur = p.visible(p.cur.Cur + 1)
		index = p.Int(NewFrame(p.cur.Cur, p.cur.Cur))
		p.cur.Cur = p.visible(p.cur.Cur + 1)
		if p.at(p.cur.Cur).Is(token.RBracket) {
			p.cur.Cur = p.visible(p.cur.Cur + 1)
		}
	}
	switch {
	case p.at(p.cur.Cur).Is(token.SingleQuote):
		p.Name, _ = p.SubData(token.SingleQuote, token.SingleQuote)
	case !p.at(p.cur.Cur).Is(token.Eq):
		p.Name = NewFrame(p.cur.Cur, p.cur.Cur)
		p.cur.Cur++
	}
	p.skipHidden()
	if p.at(p.cur.Cur).Is(token.Eq) {
		p.cur.Cur++
		p.Data = p.FXAssignmentData()
	} else {
		p.Data, _ = p.SubData(token.LBrace, token.RBrace)
	}
	p.skipHidden()
	if t := p.at(p.cur.Cur); t.Is(token.Semicolon) || t.Is(token.Quote) {
		p.cur.Cur++
	}
	return sc, index
}

func (p *Parser) allowed(id token.ID, whitelist []token.ID) bool {
	for _, w := range whitelist {
		if w == id {
			return true
		}
	}
	expected := make([]string, len(whitelist))
	for i, w := range whitelist {
		expected[i] = p.spelling(w)
	}
	context := NewFrame(mathutil.Max(p.cur.First, p.first-5), mathutil.Min(p.cur.Last, p.first+5))
	p.logger.Printf("warning: found token %q which was not one of the list (skipping): expected one of %s near %q",
		p.spelling(id), strings.Join(expected, ", "), p.String(context))
	return false
}

// AssignmentData reads a name at the cursor, including a following [..] or
// (..) group.
func (p *Parser) AssignmentData() Frame {
	p.skipHidden()
	if !p.inBounds("AssignmentData") {
		return emptyFrame
	}
	first := p.cur.Cur
	last := first
	if open := p.visible(last + 1); p.at(open).Is(token.LBracket) || p.at(open).Is(token.LParen) {
		closer := token.RBracket
		if p.at(open).Is(token.LParen) {
			closer = token.RParen
		}
		for last = open + 1; last <= p.cur.Last; last++ {
			if n := token.SkipLen(p.tokens, last); n > 0 {
				last += n - 1
				continue
			}
			t := p.at(last)
			if t.Is(closer) {
				break
			}
			if t.Is(token.Semicolon) {
				last--
				break
			}
		}
		last = mathutil.Min(last, p.cur.Last)
	}
	f := NewFrame(first, last)
	p.skipPastSemicolon(last + 1)
	return f
}

// FXAssignmentData reads up to the next semicolon. Quoted runs are opaque,
// so a semicolon between quotes does not end the value.
func (p *Parser) FXAssignmentData() Frame {
	p.skipHidden()
	if !p.inBounds("FXAssignmentData") {
		return emptyFrame
	}
	first := p.cur.Cur
	i := first
	found := false
	for i <= p.cur.Last && !found {
		if n := token.SkipLen(p.tokens, i); n > 0 {
			i += n
			continue
		}
		t := p.at(i)
		switch {
		case t.Is(token.Quote):
			i = p.closingQuote(i)
		case t.Is(token.Semicolon):
			found = true
		}
		i++
	}
	last := i - 1
	if found {
		last--
	}
	p.cur.Cur = i
	return NewFrame(first, last)
}

// FXAssignmentData2 reads an initializer: a brace list up to its semicolon,
// a parenthesized expression, or a plain run of tokens.
func (p *Parser) FXAssignmentData2() Frame {
	p.skipHidden()
	if !p.inBounds("FXAssignmentData2") {
		return emptyFrame
	}
	first := p.cur.Cur
	i := first
	switch {
	case p.at(i).Is(token.LBrace):
		for i++; i+1 <= p.cur.Last; i++ {
			if n := token.SkipLen(p.tokens, i); n > 0 {
				i += n - 1
				continue
			}
			if p.at(i).Is(token.Semicolon) {
				break
			}
		}
	case p.at(i).Is(token.LParen):
		depth := 1
		for i++; i+1 <= p.cur.Last; i++ {
			if n := token.SkipLen(p.tokens, i); n > 0 {
				i += n - 1
				continue
			}
			t := p.at(i)
			if depth == 0 && (t.Is(token.Semicolon) || t.Is(token.Less) || t.Is(token.Eq)) {
				break
			}
			if t.Is(token.LParen) {
				depth++
			} else if t.Is(token.RParen) {
				depth--
			}
		}
	default:
		for ; i <= p.cur.Last; i++ {
			if n := token.SkipLen(p.tokens, i); n > 0 {
				i += n - 1
				continue
			}
			t := p.at(i)
			if t.Is(token.Quote) {
				i = p.closingQuote(i)
				continue
			}
			if t.Is(token.Semicolon) || t.Is(token.LParen) || t.Is(token.LBrace) || t.Is(token.Less) {
				break
			}
		}
	}
	f := NewFrame(first, i-1)
	p.skipPastSemicolon(i)
	return f
}

// SubData reads the balanced open..close group at the cursor and returns
// its interior. Quoted runs inside the group are opaque. ok is false when
// the cursor is not on open or the group is empty.
func (p *Parser) SubData(open, closer token.ID) (Frame, bool) {
	p.skipHidden()
	if p.cur.Cur > p.cur.Last || !p.at(p.cur.Cur).Is(open) {
		return emptyFrame, false
	}
	p.cur.Cur++
	first := p.cur.Cur
	f := emptyFrame
	depth := 1
	i := first
	for ; i <= p.cur.Last; i++ {
		if n := token.SkipLen(p.tokens, i); n > 0 {
			i += n - 1
			continue
		}
		t := p.at(i)
		if t.Is(token.Quote) && open != token.Quote {
			i = p.closingQuote(i)
			continue
		}
		if t.Is(closer) {
			depth--
			if depth == 0 {
				f = NewFrame(first, i-1)
				i++
				break
			}
		} else if t.Is(open) {
			depth++
		}
	}
	if f.Empty() {
		f = emptyFrame
	}
	p.skipPastSemicolon(i)
	return f, !f.Empty()
}

func (p *Parser) skipPastSemicolon(i int) {
	i = p.visible(i)
	if i <= p.cur.Last && p.at(i).Is(token.Semicolon) {
		i++
	}
	p.cur.Cur = i
}

func (p *Parser) spelling(id token.ID) string {
	if s, ok := token.Spelling(id, p.table); ok {
		return s
	}
	return id.String()
}

// String renders f as text, a space between two adjacent words.
func (p *Parser) String(f Frame) string {
	return p.join(f, false)
}

// NameString is String with quote tokens left out.
func (p *Parser) NameString(f Frame) string {
	return p.join(f, true)
}

func (p *Parser) join(f Frame, dropQuotes bool) string {
	var b strings.Builder
	last := mathutil.Min(f.Last, len(p.tokens)-1)
	for i := mathutil.Max(f.First, 0); i <= last; i++ {
		if n := token.SkipLen(p.tokens, i); n > 0 {
			i += n - 1
			continue
		}
		t := p.tokens[i]
		if t.Kind != token.Literal || dropQuotes && (t.Is(token.Quote) || t.Is(token.SingleQuote)) {
			continue
		}
		s := p.spelling(t.ID)
		if b.Len() > 0 && s != "" {
			prev := b.String()[b.Len()-1]
			if !token.IsDelimiter(prev) && !token.IsDelimiter(s[0]) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(s)
	}
	return b.String()
}

// Bool reads a boolean state value; an empty frame means true.
func (p *Parser) Bool(f Frame) bool {
	if f.Empty() {
		return true
	}
	t := p.at(f.First)
	switch {
	case t.Is(token.True), t.Is(token.One):
		return true
	case t.Is(token.False), t.Is(token.Zero):
		return false
	}
	p.logger.Printf("warning: %q is not a boolean", p.spelling(t.ID))
	return false
}

// Int reads the integer at the start of f; 0 if there is none.
func (p *Parser) Int(f Frame) int {
	if f.Empty() {
		return 0
	}
	n, err := strconv.ParseInt(p.spelling(p.at(f.First).ID), 0, 64)
	if err != nil {
		return 0
	}
	return int(n)
}

// CopyTokens appends the tokens of f to dst.
func (p *Parser) CopyTokens(f Frame, dst token.Buffer) token.Buffer {
	if f.Empty() {
		return dst
	}
	if f.First < 0 || f.Last >= len(p.tokens) {
		p.logger.Printf("validation error: out-of-bounds copy [%d, %d] of %d tokens", f.First, f.Last, len(p.tokens))
		return dst
	}
	return append(dst, p.tokens[f.First:f.Last+1]...)
}

// Dump renders the recorded fragments for diagnostics.
func (p *Parser) Dump() string {
	hooks := strutil.PrettyPrintHooks{
		reflect.TypeOf(Fragment{}): func(f strutil.Formatter, v interface{}, prefix, suffix string) {
			fr := v.(Fragment)
			f.Format(prefix)
			f.Format("%s %s [%d, %d] %s", fr.Type, p.spelling(fr.Name), fr.Frame.First, fr.Frame.Last, strconv.Quote(p.String(fr.Frame)))
			f.Format(suffix)
		},
	}
	return strutil.PrettyString(p.fragments, "", "", hooks)
}
