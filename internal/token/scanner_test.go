package token

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func scanAll(input string) string {
	s := NewScanner([]byte(input))
	var toks []string
	for {
		spelling, _, _, ok := s.Next()
		if !ok {
			break
		}
		toks = append(toks, spelling)
	}
	return strings.Join(toks, ".")
}

func TestScanner(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
	}{
		{"empty", "", ""},
		{"blank", " \t\n ", ""},
		{"declaration", "float4 a = b.x;", "float4.a.=.b...x.;"},
		{"directive", "#if !%_RT_FOG||A", "#if.!.%_RT_FOG.|.|.A"},
		{"slash", "a//b", "a././.b"},
		{"number", "1.0", "1...0"},
		{"annotation", "<string UIName = \"Gloss\";>", "<.string.UIName.=.\".Gloss.\".;.>"},
		{"brackets", "f(x)[2]{}", "f.(.x.).[.2.].{.}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.output, scanAll(tt.input)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScannerReserved(t *testing.T) {
	s := NewScanner([]byte("#ifdef FOO"))
	_, id, reserved, ok := s.Next()
	if !ok || !reserved || id != Ifdef {
		t.Fatalf("got %v %v %v", id, reserved, ok)
	}
	spelling, id, reserved, ok := s.Next()
	if !ok || reserved || id != Hash("FOO") || spelling != "FOO" {
		t.Fatalf("got %q %v %v %v", spelling, id, reserved, ok)
	}
	if _, _, _, ok := s.Next(); ok {
		t.Fatalf("expected end of input")
	}
}
