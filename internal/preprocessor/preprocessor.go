package preprocessor

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/fwessels/fxpp/internal/macro"
	"github.com/fwessels/fxpp/internal/token"
)

// NumPasses is the number of preprocessing passes. Pass 0 resolves ordinary
// conditionals against the runtime defines, pass 1 resolves the conditionals
// on %_ flags against the static defines.
const NumPasses = 2

var (
	ErrNoMatchingIf  = errors.New("directive without matching #if")
	ErrMissingEndif  = errors.New("couldn't find #endif")
	ErrElseAfterElse = errors.New("#else or #elif after #else")
	ErrIncludeCycle  = errors.New("include cycle")
	ErrNoResolver    = errors.New("no include resolver")
	ErrTruncated     = errors.New("truncated directive")
	ErrBadPass       = errors.New("invalid pass")
)

// ---------------- Preprocessor ----------------

// Preprocessor rewrites token buffers. Consumed directives and false
// branches are not deleted but hidden behind skip markers, so the output
// still reconstructs the input text. A Preprocessor is not safe for
// concurrent use; the Platform it reads may be shared.
type Preprocessor struct {
	platform *macro.Platform
	resolver IncludeResolver
	env      EnvRegistrar
	vars     VarSource
	logger   Logger
	defines  []seedDefine

	seeds     [NumPasses]*macro.Table
	seedTable token.Table

	pass      int
	macros    [NumPasses]*macro.Table
	table     token.Table
	cond      condStack
	out       token.Buffer
	including map[string]bool
}

func New(platform *macro.Platform, opts ...Option) (*Preprocessor, error) {
	p := &Preprocessor{
		platform: platform,
		logger:   log.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	for i := range p.seeds {
		p.seeds[i] = macro.NewTable()
		p.macros[i] = macro.NewTable()
	}
	for _, d := range p.defines {
		if d.pass < 0 || d.pass >= NumPasses {
			return nil, fmt.Errorf("%w %d for %s", ErrBadPass, d.pass, d.name)
		}
		body, table, err := token.Tokenize([]byte(d.value))
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", d.name, err)
		}
		id, err := p.seedTable.Intern(d.name)
		if err != nil {
			return nil, err
		}
		p.seedTable = token.Merge(p.seedTable, table)
		p.seeds[d.pass].Define(id, body, 0)
	}
	return p, nil
}

// Preprocess runs one pass over in. table holds the spellings of in; the
// returned table adds those of every included bin.
func (p *Preprocessor) Preprocess(pass int, in token.Buffer, table token.Table) (token.Buffer, token.Table, error) {
	if pass < 0 || pass >= NumPasses {
		return nil, table, fmt.Errorf("%w %d", ErrBadPass, pass)
	}
	p.pass = pass
	p.macros[pass] = p.seeds[pass].Clone()
	if pass == 0 {
		p.macros[1] = p.seeds[1].Clone()
	}
	p.cond = condStack{}
	p.table = token.Merge(table, p.seedTable)
	p.out = make(token.Buffer, 0, len(in))
	p.including = map[string]bool{}

	if err := p.process("", in); err != nil {
		p.logger.Printf("%v", err)
		return nil, p.table, err
	}
	return p.out, p.table, nil
}

// Depth returns the number of open conditionals.
func (p *Preprocessor) Depth() int { return p.cond.Depth() }

// Macro looks name up in the macro table of pass as left by the last call.
func (p *Preprocessor) Macro(pass int, name string) (macro.Definition, bool) {
	if pass < 0 || pass >= NumPasses {
		return macro.Definition{}, false
	}
	id, _ := token.Lookup(name)
	return p.macros[pass].Lookup(id)
}

func (p *Preprocessor) order() []macro.Lookup {
	if p.pass == 0 {
		return []macro.Lookup{p.macros[0], p.platform, p.macros[1]}
	}
	return []macro.Lookup{p.macros[1], p.platform}
}

func (p *Preprocessor) process(name string, in token.Buffer) error {
	base := p.cond.Depth()
	for i := 0; i < len(in); {
		if n := token.SkipLen(in, i); n > 0 {
			unit := in[i : i+n]
			if p.pass == 1 {
				p.reapply(unit)
			}
			p.out = append(p.out, unit...)
			i += n
			continue
		}
		next, err := p.directive(in, i, base)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", displayName(name), i, err)
		}
		i = next
	}
	if f, ok := p.cond.Truncate(base); ok {
		return fmt.Errorf("%s:%d: %w", displayName(name), f.start, ErrMissingEndif)
	}
	return nil
}

func displayName(name string) string {
	if name == "" {
		return "<input>"
	}
	return name
}

// directive handles the visible token in[i] and returns the index of the
// next unhandled token.
func (p *Preprocessor) directive(in token.Buffer, i, base int) (int, error) {
	t := in[i]
	switch t.ID {
	case token.Include:
		return p.include(in, i)

	case token.Define, token.Define2:
		return p.define(in, i)

	case token.Undefine:
		if i+1 >= len(in) {
			return i, ErrTruncated
		}
		id := in[i+1].ID
		if !p.macros[p.pass].Undefine(id) && !(p.pass == 0 && p.macros[1].Undefine(id)) {
			p.warnf("couldn't find macro %q", p.spelling(id))
		}
		p.out = token.Mark(p.out, in[i:i+2])
		return i + 2, nil

	case token.If, token.Ifdef, token.Ifndef, token.If2, token.Ifdef2, token.Ifndef2:
		res, mask, end, err := evaluate(in, i+1, p.order())
		if err != nil {
			return i, err
		}
		if p.pass == 0 && (t.ID == token.If2 || t.ID == token.Ifdef2 || t.ID == token.Ifndef2) {
			p.cond.Push(condFrame{ignore: true, mask: mask, start: i})
			p.out = append(p.out, in[i:end]...)
			return end, nil
		}
		if t.ID == token.Ifndef || t.ID == token.Ifndef2 {
			res = !res
		}
		p.cond.Push(condFrame{taken: res, mask: mask, start: i})
		return p.branch(in, i, end, res)

	case token.Elif:
		f, err := p.frame(base, "#elif")
		if err != nil {
			return i, err
		}
		res, mask, end, err := evaluate(in, i+1, p.order())
		if err != nil {
			return i, err
		}
		switch {
		case f.ignore:
			p.out = append(p.out, in[i:end]...)
			return end, nil
		case f.closed:
			return i, ErrElseAfterElse
		case f.taken:
			return p.branch(in, i, end, false)
		}
		f.mask = mask
		f.taken = res
		return p.branch(in, i, end, res)

	case token.Else:
		f, err := p.frame(base, "#else")
		if err != nil {
			return i, err
		}
		switch {
		case f.ignore:
			p.out = append(p.out, t)
			return i + 1, nil
		case f.closed:
			return i, ErrElseAfterElse
		}
		f.closed = f.taken
		live := !f.taken
		f.taken = true
		return p.branch(in, i, i+1, live)

	case token.Endif:
		f, err := p.frame(base, "#endif")
		if err != nil {
			return i, err
		}
		if f.ignore {
			p.out = append(p.out, t)
		} else {
			p.out = token.Mark(p.out, in[i:i+1])
		}
		p.cond.Pop()
		return i + 1, nil

	case token.Ifcvar, token.Ifncvar:
		if i+1 >= len(in) {
			return i, ErrTruncated
		}
		v := p.cvar(in[i+1].ID)
		if t.ID == token.Ifncvar {
			v = !v
		}
		p.cond.Push(condFrame{taken: v, start: i})
		return p.branch(in, i, i+2, v)

	case token.Elifcvar:
		f, err := p.frame(base, "#elifcvar")
		if err != nil {
			return i, err
		}
		if i+1 >= len(in) {
			return i, ErrTruncated
		}
		switch {
		case f.ignore:
			p.out = append(p.out, in[i:i+2]...)
			return i + 2, nil
		case f.closed:
			return i, ErrElseAfterElse
		case f.taken:
			return p.branch(in, i, i+2, false)
		}
		v := p.cvar(in[i+1].ID)
		f.taken = v
		return p.branch(in, i, i+2, v)

	case token.Warning, token.RegisterEnv:
		text, end := p.quoted(in, i+1)
		p.out = token.Mark(p.out, in[i:end])
		if t.ID == token.Warning {
			p.warnf("%s", text)
		} else if p.env != nil {
			p.env.RegisterEnv(text)
		}
		return end, nil

	case token.EOL:
		return i + 1, nil
	}

	if d, ok := p.macros[p.pass].Lookup(t.ID); ok {
		p.out = append(p.out, d.Tokens...)
	} else {
		p.out = append(p.out, t)
	}
	return i + 1, nil
}

func (p *Preprocessor) frame(base int, directive string) (*condFrame, error) {
	if p.cond.Depth() <= base {
		return nil, fmt.Errorf("%s: %w", directive, ErrNoMatchingIf)
	}
	return p.cond.Top(), nil
}

// branch hides the directive in[i:end]. When live is false the block that
// follows, up to the next #else, #elif or #endif of the same level, is
// hidden along with it.
func (p *Preprocessor) branch(in token.Buffer, i, end int, live bool) (int, error) {
	if live {
		p.out = token.Mark(p.out, in[i:end])
		return end, nil
	}
	stop, err := skipBlock(in, end)
	if err != nil {
		return i, err
	}
	p.out = token.Mark(p.out, in[i:stop])
	return stop, nil
}

func skipBlock(in token.Buffer, from int) (int, error) {
	level := 0
	for j := from; j < len(in); {
		if n := token.SkipLen(in, j); n > 0 {
			j += n
			continue
		}
		switch in[j].ID {
		case token.If, token.Ifdef, token.Ifndef, token.If2, token.Ifdef2, token.Ifndef2, token.Ifcvar, token.Ifncvar:
			level++
		case token.Endif:
			if level == 0 {
				return j, nil
			}
			level--
		case token.Else, token.Elif, token.Elifcvar:
			if level == 0 {
				return j, nil
			}
		}
		j++
	}
	return len(in), ErrMissingEndif
}

func (p *Preprocessor) include(in token.Buffer, i int) (int, error) {
	if i+1 >= len(in) {
		return i, ErrTruncated
	}
	name, ok := token.Spelling(in[i+1].ID, p.table)
	if !ok {
		return i, fmt.Errorf("#include: no spelling for %v", in[i+1].ID)
	}
	if p.resolver == nil {
		return i, fmt.Errorf("#include %q: %w", name, ErrNoResolver)
	}
	if p.including[name] {
		return i, fmt.Errorf("%w at %q", ErrIncludeCycle, name)
	}
	b, err := p.resolver.Resolve(name)
	if err != nil {
		return i, fmt.Errorf("#include %q: %w", name, err)
	}
	p.table = token.Merge(p.table, b.Table)
	p.out = token.Mark(p.out, in[i:i+2])

	p.including[name] = true
	defer delete(p.including, name)
	if err := p.process(name, b.Tokens()); err != nil {
		return i, err
	}
	return i + 2, nil
}

func (p *Preprocessor) define(in token.Buffer, i int) (int, error) {
	if i+1 >= len(in) || in[i+1].Kind != token.Literal {
		return i, ErrTruncated
	}
	id := in[i+1].ID
	end := bodyEnd(in, i+2)
	body := in[i+2 : end]
	stop := end
	if stop < len(in) {
		stop++
	}

	n, mask := p.pass, p.cond.Mask()
	if in[i].ID == token.Define2 {
		n, mask = 1, p.firstInt(body)
	}
	p.macros[n].Define(id, body, mask)

	if p.pass != 0 {
		p.out = token.Mark(p.out, in[i:stop])
		return stop, nil
	}
	if p.cond.Depth() > 0 {
		p.macros[1].Define(id, body, mask)
	}
	echo := append(token.Literals(token.Define2, id), body...)
	echo = append(echo, token.Lit(token.EOL))
	p.out = token.Mark(p.out, echo)
	return stop, nil
}

// reapply replays a define echoed by pass 0 into the pass 1 table.
func (p *Preprocessor) reapply(unit token.Buffer) {
	if len(unit) < 4 || unit[0].Kind != token.SkipBegin || !unit[1].Is(token.Define2) || unit[2].Kind != token.Literal {
		return
	}
	inner := unit[3 : len(unit)-1]
	body := inner[:bodyEnd(inner, 0)]
	p.macros[1].Define(unit[2].ID, body, p.firstInt(body))
}

func bodyEnd(buf token.Buffer, from int) int {
	for j := from; j < len(buf); j++ {
		if buf[j].Is(token.EOL) {
			return j
		}
	}
	return len(buf)
}

// firstInt parses the first body token as an integer mask; 0 if it is not one.
func (p *Preprocessor) firstInt(body token.Buffer) uint64 {
	if len(body) == 0 {
		return 0
	}
	s, ok := token.Spelling(body[0].ID, p.table)
	if !ok {
		return 0
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0
	}
	return v
}

// quoted reads the argument of #warning and #register_env: either a quoted
// run of tokens, joined with single spaces, or one bare token.
func (p *Preprocessor) quoted(in token.Buffer, from int) (string, int) {
	if from >= len(in) {
		return "", from
	}
	if !in[from].Is(token.Quote) {
		return p.spelling(in[from].ID), from + 1
	}
	var words []string
	j := from + 1
	for ; j < len(in) && !in[j].Is(token.Quote); j++ {
		words = append(words, p.spelling(in[j].ID))
	}
	if j < len(in) {
		j++
	}
	return strings.Join(words, " "), j
}

func (p *Preprocessor) cvar(id token.ID) bool {
	name := p.spelling(id)
	var (
		v  int
		ok bool
	)
	if p.vars != nil {
		v, ok = p.vars.Var(name)
	}
	if !ok {
		p.warnf("couldn't find variable %q", name)
	}
	return v != 0
}

func (p *Preprocessor) spelling(id token.ID) string {
	if s, ok := token.Spelling(id, p.table); ok {
		return s
	}
	return id.String()
}

func (p *Preprocessor) warnf(format string, v ...any) {
	p.logger.Printf("warning: "+format, v...)
}
