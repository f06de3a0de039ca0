package preprocessor

import (
	"github.com/fwessels/fxpp/internal/bin"
)

// IncludeResolver loads the bin named by an #include directive.
type IncludeResolver interface {
	Resolve(name string) (*bin.Bin, error)
}

// EnvRegistrar receives the text of #register_env directives.
type EnvRegistrar interface {
	RegisterEnv(text string)
}

// EnvFunc adapts a function to EnvRegistrar.
type EnvFunc func(text string)

func (f EnvFunc) RegisterEnv(text string) { f(text) }

// VarSource supplies the runtime variables tested by #ifcvar, #ifncvar and
// #elifcvar.
type VarSource interface {
	Var(name string) (int, bool)
}

// Vars is a VarSource backed by a map.
type Vars map[string]int

func (v Vars) Var(name string) (int, bool) {
	n, ok := v[name]
	return n, ok
}

type Logger interface {
	Printf(format string, v ...any)
}

type Option func(*Preprocessor)

func WithIncludeResolver(r IncludeResolver) Option {
	return func(p *Preprocessor) { p.resolver = r }
}

func WithEnvRegistrar(e EnvRegistrar) Option {
	return func(p *Preprocessor) { p.env = e }
}

func WithVars(v VarSource) Option {
	return func(p *Preprocessor) { p.vars = v }
}

func WithLogger(l Logger) Option {
	return func(p *Preprocessor) { p.logger = l }
}

// WithDefine seeds the macro table of pass with NAME=VALUE. The table is
// reset to its seeds at the start of every Preprocess call for that pass.
func WithDefine(pass int, name, value string) Option {
	return func(p *Preprocessor) {
		p.defines = append(p.defines, seedDefine{pass: pass, name: name, value: value})
	}
}

type seedDefine struct {
	pass        int
	name, value string
}
