package token

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
	}{
		{"declaration", "float4 a = b;", "float4 a=b;\n"},
		{"struct", "struct S { float a; };", "struct S\n{\n  float a;\n};\n"},
		{"call", "half3 c = lerp(x, y, 0.5);", "half3 c=lerp(x,y,0.5);\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, table, err := Tokenize([]byte(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			got, err := Convert(buf, table, false)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.output, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConvertSkipped(t *testing.T) {
	table := buildTable(t, "A", "B", "C", "D")
	a, b, c, d := Lit(Hash("A")), Lit(Hash("B")), Lit(Hash("C")), Lit(Hash("D"))

	buf := Buffer{a}
	buf = Mark(buf, []Token{b})
	buf = Mark(buf, []Token{c, d})

	got, err := Convert(buf, table, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != "A B C D" {
		t.Errorf("with skipped: got %q", got)
	}
	got, err = Convert(buf, table, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != "A" {
		t.Errorf("without skipped: got %q", got)
	}
	if s := Join(buf, table, true); s != "A.#skip.B.#skip_(.C.D.#skip_)" {
		t.Errorf("Join: got %q", s)
	}
}

func TestConvertUnknownToken(t *testing.T) {
	if _, err := Convert(Buffer{Lit(Hash("nowhere"))}, nil, true); err == nil {
		t.Errorf("expected an error for a token without spelling")
	}
}

func TestSkipLenNested(t *testing.T) {
	a, b := Lit(Hash("A")), Lit(Hash("B"))
	inner := Mark(nil, []Token{a, b})
	outer := Mark(nil, append(Buffer{a}, inner...))
	outer = append(outer, b)

	if n := SkipLen(outer, 0); n != len(outer)-1 {
		t.Errorf("SkipLen = %d, want %d", n, len(outer)-1)
	}
	if diff := cmp.Diff(Buffer{b}, Visible(outer)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Buffer{a, a, b, b}, Unmarked(outer)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
