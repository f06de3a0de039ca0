package token

import (
	"fmt"
	"hash/crc32"
)

// ID identifies a lexical unit. Reserved keywords use small fixed ids below
// UserFirst; every other identifier is the CRC32 of its spelling.
type ID uint32

const (
	// EOL terminates the body of a #define line.
	EOL ID = iota

	Include
	Define
	Undefine
	Define2
	Fetchinst
	If
	Ifdef
	Ifndef
	If2
	Ifdef2
	Ifndef2
	Endif
	Else
	Elif
	Warning
	RegisterEnv
	Ifcvar
	Ifncvar
	Elifcvar

	Or
	And
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Less
	Greater
	Comma
	Dot
	Colon
	Semicolon
	Excl
	Quote
	SingleQuote
	Comment
	Question
	Eq
	Plus
	Minus
	Div
	Mul

	Zero
	One
	True
	False

	Const
	Static
	Shared
	Groupshared

	Struct
	Cbuffer
	Register
	Packoffset
	Inout
	In
	Out
	Return
	String
	Sampler
	SamplerState
	SamplerComparisonState
	Texture2D
	Texture2DArray
	Texture2DMS
	TextureCube
	TextureCubeArray
	Texture3D
	RWTexture2D
	Float
	Float2
	Float3
	Float4
	Float3x3
	Float3x4
	Float4x4
	Half
	Half2
	Half3
	Half4
	Bool
	Int
	Int2
	Int4
	Uint
	Uint2
	Uint4

	Technique
	Pass
	VertexShader
	PixelShader
	GeometryShader
	HullShader
	DomainShader
	ComputeShader
	ZEnable
	ZWriteEnable
	CullMode
	AlphaBlendEnable
	SrcBlend
	DestBlend
	ShaderType
	ShaderDrawType
	Public
	NoPreview
	LocalConstants

	numKeywords
)

// UserFirst is the lowest id a hashed identifier may take.
const UserFirst ID = 0x400

var names = [numKeywords]string{
	Include:     "#include",
	Define:      "#define",
	Undefine:    "#undefine",
	Define2:     "#define",
	Fetchinst:   "#fetchinst",
	If:          "#if",
	Ifdef:       "#ifdef",
	Ifndef:      "#ifndef",
	If2:         "#if",
	Ifdef2:      "#ifdef",
	Ifndef2:     "#ifndef",
	Endif:       "#endif",
	Else:        "#else",
	Elif:        "#elif",
	Warning:     "#warning",
	RegisterEnv: "#register_env",
	Ifcvar:      "#ifcvar",
	Ifncvar:     "#ifncvar",
	Elifcvar:    "#elifcvar",

	Or:          "|",
	And:         "&",
	LParen:      "(",
	RParen:      ")",
	LBracket:    "[",
	RBracket:    "]",
	LBrace:      "{",
	RBrace:      "}",
	Less:        "<",
	Greater:     ">",
	Comma:       ",",
	Dot:         ".",
	Colon:       ":",
	Semicolon:   ";",
	Excl:        "!",
	Quote:       "\"",
	SingleQuote: "'",
	Comment:     "//",
	Question:    "?",
	Eq:          "=",
	Plus:        "+",
	Minus:       "-",
	Div:         "/",
	Mul:         "*",

	Zero:  "0",
	One:   "1",
	True:  "true",
	False: "false",

	Const:       "const",
	Static:      "static",
	Shared:      "shared",
	Groupshared: "groupshared",

	Struct:                 "struct",
	Cbuffer:                "cbuffer",
	Register:               "register",
	Packoffset:             "packoffset",
	Inout:                  "inout",
	In:                     "in",
	Out:                    "out",
	Return:                 "return",
	String:                 "string",
	Sampler:                "sampler",
	SamplerState:           "SamplerState",
	SamplerComparisonState: "SamplerComparisonState",
	Texture2D:              "Texture2D",
	Texture2DArray:         "Texture2DArray",
	Texture2DMS:            "Texture2DMS",
	TextureCube:            "TextureCube",
	TextureCubeArray:       "TextureCubeArray",
	Texture3D:              "Texture3D",
	RWTexture2D:            "RWTexture2D",
	Float:                  "float",
	Float2:                 "float2",
	Float3:                 "float3",
	Float4:                 "float4",
	Float3x3:               "float3x3",
	Float3x4:               "float3x4",
	Float4x4:               "float4x4",
	Half:                   "half",
	Half2:                  "half2",
	Half3:                  "half3",
	Half4:                  "half4",
	Bool:                   "bool",
	Int:                    "int",
	Int2:                   "int2",
	Int4:                   "int4",
	Uint:                   "uint",
	Uint2:                  "uint2",
	Uint4:                  "uint4",

	Technique:        "technique",
	Pass:             "pass",
	VertexShader:     "VertexShader",
	PixelShader:      "PixelShader",
	GeometryShader:   "GeometryShader",
	HullShader:       "HullShader",
	DomainShader:     "DomainShader",
	ComputeShader:    "ComputeShader",
	ZEnable:          "ZEnable",
	ZWriteEnable:     "ZWriteEnable",
	CullMode:         "CullMode",
	AlphaBlendEnable: "AlphaBlendEnable",
	SrcBlend:         "SrcBlend",
	DestBlend:        "DestBlend",
	ShaderType:       "ShaderType",
	ShaderDrawType:   "ShaderDrawType",
	Public:           "Public",
	NoPreview:        "NoPreview",
	LocalConstants:   "LocalConstants",
}

var byName = map[string]ID{}

func init() {
	for id := ID(1); id < numKeywords; id++ {
		register(names[id], id)
	}
}

// register installs a reserved spelling. The first id registered for a
// spelling is the one Keyword returns.
func register(s string, id ID) {
	if s == "" {
		return
	}
	if _, ok := byName[s]; !ok {
		byName[s] = id
	}
}

// Reserved reports whether id is a keyword id.
func (id ID) Reserved() bool { return id < UserFirst }

func (id ID) String() string {
	if id < numKeywords {
		if id == EOL {
			return "EOL"
		}
		return names[id]
	}
	return fmt.Sprintf("%#08x", uint32(id))
}

// Keyword returns the reserved id of s, if any.
func Keyword(s string) (ID, bool) {
	id, ok := byName[s]
	return id, ok
}

// Hash returns the content hash used as id of a non-reserved spelling.
func Hash(s string) ID {
	h := ID(crc32.ChecksumIEEE([]byte(s)))
	if h < UserFirst {
		h |= 0x80000000
	}
	return h
}

// Lookup returns the keyword id of s, or its content hash when s is not
// reserved.
func Lookup(s string) (id ID, reserved bool) {
	if id, ok := byName[s]; ok {
		return id, true
	}
	return Hash(s), false
}

// ---------------- Tokens ----------------

// Kind tags a Token as a literal id or as one of the skip markers.
type Kind uint8

const (
	Literal Kind = iota
	// SkipOne hides the single token following it.
	SkipOne
	// SkipBegin opens a hidden region closed by the matching SkipEnd.
	// Regions nest.
	SkipBegin
	SkipEnd
)

var kindNames = [...]string{
	Literal:   "literal",
	SkipOne:   "#skip",
	SkipBegin: "#skip_(",
	SkipEnd:   "#skip_)",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

type Token struct {
	Kind Kind
	ID   ID
}

// Lit returns the literal token for id.
func Lit(id ID) Token { return Token{Kind: Literal, ID: id} }

// Is reports whether t is the literal id.
func (t Token) Is(id ID) bool { return t.Kind == Literal && t.ID == id }

func (t Token) String() string {
	if t.Kind == Literal {
		return t.ID.String()
	}
	return t.Kind.String()
}

// Buffer is a flat token stream.
type Buffer []Token

// Literals builds a buffer of literal tokens.
func Literals(ids ...ID) Buffer {
	buf := make(Buffer, len(ids))
	for i, id := range ids {
		buf[i] = Lit(id)
	}
	return buf
}

// Mark appends toks to dst hidden behind skip markers: a single token gets a
// SkipOne, longer runs a SkipBegin/SkipEnd pair. An empty run appends nothing.
func Mark(dst Buffer, toks []Token) Buffer {
	switch len(toks) {
	case 0:
		return dst
	case 1:
		if toks[0].Kind == Literal {
			return append(dst, Token{Kind: SkipOne}, toks[0])
		}
	}
	dst = append(dst, Token{Kind: SkipBegin})
	dst = append(dst, toks...)
	return append(dst, Token{Kind: SkipEnd})
}

// SkipLen returns how many tokens the hidden unit starting at buf[i] spans,
// markers included, or 0 when buf[i] is visible. An unterminated region runs
// to the end of buf.
func SkipLen(buf []Token, i int) int {
	if i < 0 || i >= len(buf) {
		return 0
	}
	switch buf[i].Kind {
	case SkipOne:
		if i+1 < len(buf) {
			return 2
		}
		return 1
	case SkipBegin:
		depth := 0
		for j := i; j < len(buf); j++ {
			switch buf[j].Kind {
			case SkipOne:
				j++
			case SkipBegin:
				depth++
			case SkipEnd:
				depth--
				if depth == 0 {
					return j - i + 1
				}
			}
		}
		return len(buf) - i
	case SkipEnd:
		// stray terminator
		return 1
	}
	return 0
}

// Visible returns the literal tokens of buf with every hidden unit removed.
func Visible(buf []Token) Buffer {
	out := make(Buffer, 0, len(buf))
	for i := 0; i < len(buf); {
		if n := SkipLen(buf, i); n > 0 {
			i += n
			continue
		}
		out = append(out, buf[i])
		i++
	}
	return out
}

// Unmarked returns every literal token of buf, hidden or not, with the
// markers themselves dropped.
func Unmarked(buf []Token) Buffer {
	out := make(Buffer, 0, len(buf))
	for _, t := range buf {
		if t.Kind == Literal {
			out = append(out, t)
		}
	}
	return out
}
