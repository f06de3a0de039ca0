package macro

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fwessels/fxpp/internal/token"
)

// Kind selects a render platform.
type Kind int

const (
	D3D11 Kind = iota
	GL4
	GLES3
	METAL
	ORBIS
	JASPER
)

var kindNames = [...]string{
	D3D11:  "D3D11",
	GL4:    "GL4",
	GLES3:  "GLES3",
	METAL:  "METAL",
	ORBIS:  "ORBIS",
	JASPER: "JASPER",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown platform %q", s)
}

// Target distinguishes the operating systems sharing the METAL backend.
type Target int

const (
	TargetDefault Target = iota
	TargetOSX
	TargetIOS
)

// Optional features, enabled with WithFeature where the platform supports them.
const (
	FeatureMeshTessellation      = "FEATURE_MESH_TESSELLATION"
	FeatureSelfShadows           = "FEATURE_SELF_SHADOWS"
	FeatureParticlesTessellation = "FEATURE_PARTICLES_TESSELLATION"
	FeatureSPIIndexedCB          = "FEATURE_SPI_INDEXED_CB"
	FeatureSVOGI                 = "FEATURE_SVO_GI"
)

const (
	featureSPIConstantBuffers = "FEATURE_SPI_CONSTANT_BUFFERS"
	featureGeometryShaders    = "FEATURE_GEOMETRY_SHADERS"
	featureDualSourceBlending = "FEATURE_DUAL_SOURCE_BLENDING"
)

var featurePlatforms = map[string][]Kind{
	FeatureMeshTessellation:      {D3D11, GL4},
	FeatureSelfShadows:           {D3D11, GL4, GLES3, METAL},
	FeatureParticlesTessellation: {D3D11, JASPER, ORBIS, GL4},
	FeatureSPIIndexedCB:          {D3D11, GL4, GLES3, METAL},
	FeatureSVOGI:                 {D3D11, GL4, GLES3, METAL, ORBIS, JASPER},
	featureSPIConstantBuffers:    {D3D11, GL4, GLES3, METAL, ORBIS, JASPER},
	featureGeometryShaders:       {D3D11, ORBIS, JASPER, GL4},
	featureDualSourceBlending:    {D3D11, ORBIS, JASPER, GL4},
}

// alwaysOn features are set on every platform that supports them.
var alwaysOn = []string{featureSPIConstantBuffers, featureGeometryShaders, featureDualSourceBlending}

var ErrMetalTarget = errors.New("METAL requires an OSX or IOS target")

type config struct {
	target   Target
	features []string
	defines  [][2]string
}

type Option func(*config)

func WithTarget(t Target) Option {
	return func(c *config) { c.target = t }
}

func WithFeature(name string) Option {
	return func(c *config) { c.features = append(c.features, name) }
}

// WithDefine adds a static macro; value is tokenized, an empty value means
// "1".
func WithDefine(name, value string) Option {
	return func(c *config) { c.defines = append(c.defines, [2]string{name, value}) }
}

// Platform is the static macro namespace of one render platform. It is built
// once by NewPlatform and never modified afterwards, so one Platform may be
// shared by concurrent preprocessing calls.
type Platform struct {
	kind   Kind
	target Target
	macros *Table
	table  token.Table
}

func NewPlatform(kind Kind, opts ...Option) (*Platform, error) {
	var c config
	for _, o := range opts {
		o(&c)
	}
	p := &Platform{kind: kind, target: c.target, macros: NewTable()}

	var names []string
	switch kind {
	case D3D11:
		names = []string{"PCDX11"}
	case GL4:
		names = []string{"GL4"}
	case GLES3:
		// OpenGL ES only guarantees 16k of uniform block space.
		names = []string{"GLES3", "SMALL_UNIFORM_BUFFERS"}
	case METAL:
		switch c.target {
		case TargetOSX:
			names = []string{"METAL", "OSXMETAL"}
		case TargetIOS:
			names = []string{"METAL", "IOSMETAL"}
		default:
			return nil, ErrMetalTarget
		}
	case ORBIS:
		names = []string{"ORBIS"}
	case JASPER:
		names = []string{"JASPER"}
	default:
		return nil, fmt.Errorf("unknown platform %v", kind)
	}
	for _, f := range append(append([]string(nil), alwaysOn...), c.features...) {
		if supports(f, kind) {
			names = append(names, f)
		}
	}

	one := []token.Token{token.Lit(token.One)}
	for _, name := range names {
		if err := p.define(name, one); err != nil {
			return nil, err
		}
	}
	for _, d := range c.defines {
		value := d[1]
		if value == "" {
			value = "1"
		}
		buf, table, err := token.Tokenize([]byte(value))
		if err != nil {
			return nil, fmt.Errorf("define %s: %w", d[0], err)
		}
		p.table = token.Merge(p.table, table)
		if err := p.define(d[0], buf); err != nil {
			return nil, fmt.Errorf("define %s: %w", d[0], err)
		}
	}
	return p, nil
}

func supports(feature string, kind Kind) bool {
	for _, k := range featurePlatforms[feature] {
		if k == kind {
			return true
		}
	}
	return false
}

func (p *Platform) define(name string, tokens []token.Token) error {
	id, err := p.table.Intern(name)
	if err != nil {
		return err
	}
	p.macros.Define(id, tokens, 0)
	return nil
}

func (p *Platform) Lookup(id token.ID) (Definition, bool) {
	if p == nil {
		return Definition{}, false
	}
	return p.macros.Lookup(id)
}

// Defined reports whether the static macro name is set.
func (p *Platform) Defined(name string) bool {
	id, _ := token.Lookup(name)
	_, ok := p.Lookup(id)
	return ok
}

func (p *Platform) Kind() Kind { return p.kind }

func (p *Platform) Target() Target { return p.target }

// Table returns a copy of the spellings of the static macro names.
func (p *Platform) Table() token.Table { return p.table.Clone() }

// LanguageName names the shader language, used as shader cache directory.
func (p *Platform) LanguageName() string { return p.kind.String() }

// SpecName offsets a shader name CRC so each platform gets its own cache key.
func (p *Platform) SpecName(crc uint32) uint32 {
	switch p.kind {
	case D3D11:
		return crc + 0x200
	case GL4:
		return crc + 0x300
	case GLES3:
		return crc + 0x800
	case METAL:
		return crc + 0x900
	}
	return crc
}
