package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDefine(t *testing.T) {
	tests := []struct {
		in          string
		name, value string
		err         bool
	}{
		{"FOG", "FOG", "1", false},
		{"QUALITY=2", "QUALITY", "2", false},
		{"%_RT_SKIN=", "%_RT_SKIN", "", false},
		{"A=b=c", "A", "b=c", false},
		{"=1", "", "", true},
	}
	for _, tt := range tests {
		name, value, err := ParseDefine(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("%q: error %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff([]string{tt.name, tt.value}, []string{name, value}); diff != "" {
			t.Errorf("%q mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

const (
	mainSrc = `#include "common.cfi"
#if FOG
float4 fog;
#endif
#ifdef %_RT_SKIN
float4 skin;
#endif
float4 Main() { return fog; }
`
	commonSrc = "#define LIGHTS 4\n"
)

func writeEffect(t *testing.T) (dir, incDir string) {
	t.Helper()
	dir, incDir = t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.cfx"), []byte(mainSrc), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(incDir, "common.cfi"), []byte(commonSrc), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, incDir
}

func TestRun(t *testing.T) {
	dir, incDir := writeEffect(t)
	effect := filepath.Join(dir, "main.cfx")
	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{"plain", []string{"-I", incDir, effect}, []string{"Main"}, []string{"float4 fog", "skin"}},
		{"pass 0 define", []string{"-I", incDir, "-D", "FOG", effect}, []string{"float4 fog;"}, []string{"skin"}},
		{"pass 1 define", []string{"-I", incDir, "-S", "%_RT_SKIN", effect}, []string{"float4 skin;"}, []string{"float4 fog"}},
		{"skipped", []string{"-I", incDir, "-skipped", effect}, []string{"#define LIGHTS 4", "fog;", "skin"}, nil},
		{"dump", []string{"-I", incDir, "-dump", effect}, []string{"Function Main"}, nil},
		{"metal", []string{"-I", incDir, "-platform", "metal", "-target", "ios", effect}, []string{"Main"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(tt.args, &stdout, &stderr); err != nil {
				t.Fatalf("%v (stderr %q)", err, stderr.String())
			}
			got := stdout.String()
			for _, s := range tt.want {
				if !strings.Contains(got, s) {
					t.Errorf("output lacks %q:\n%s", s, got)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(got, s) {
					t.Errorf("output contains %q:\n%s", s, got)
				}
			}
		})
	}
}

func TestRunCache(t *testing.T) {
	dir, incDir := writeEffect(t)
	cache := t.TempDir()
	args := []string{"-I", incDir, "-cache", cache, filepath.Join(dir, "main.cfx")}
	var first, second, stderr bytes.Buffer
	if err := run(args, &first, &stderr); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(cache)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("no cached bins written")
	}
	if err := run(args, &second, &stderr); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first.String(), second.String()); diff != "" {
		t.Errorf("cached run mismatch (-first +second):\n%s", diff)
	}
}

func TestRunErrors(t *testing.T) {
	dir, _ := writeEffect(t)
	effect := filepath.Join(dir, "main.cfx")
	tests := []struct {
		name string
		args []string
	}{
		{"no file", nil},
		{"missing include", []string{effect}},
		{"bad platform", []string{"-platform", "vulkan", effect}},
		{"metal without target", []string{"-platform", "metal", effect}},
		{"bad target", []string{"-target", "android", effect}},
		{"bad define", []string{"-D", "=1", effect}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(tt.args, &stdout, &stderr); err == nil {
				t.Errorf("expected an error, output %q", stdout.String())
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	dir, _ := writeEffect(t)
	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(dir, "main.cfx")}, &stdout, &stderr)
	stderr.Reset()
	if code := exitCode(err, &stderr); code != 1 {
		t.Errorf("exit code %d", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("error written to stdout: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "common") {
		t.Errorf("stderr %q does not name the missing include", stderr.String())
	}

	stderr.Reset()
	if code := exitCode(flag.ErrHelp, &stderr); code != 2 || stderr.Len() != 0 {
		t.Errorf("help: exit code %d, stderr %q", code, stderr.String())
	}
	if code := exitCode(nil, &stderr); code != 0 {
		t.Errorf("success: exit code %d", code)
	}
}
