package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwessels/fxpp"
	"github.com/fwessels/fxpp/internal/bin"
	"github.com/fwessels/fxpp/internal/macro"
	"github.com/fwessels/fxpp/internal/token"
)

// ParseDefine splits NAME=VALUE. A bare NAME defines it as 1.
func ParseDefine(s string) (name, value string, err error) {
	name, value, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("bad define %q: missing name", s)
	}
	if !found {
		value = "1"
	}
	return name, value, nil
}

type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(s string) error {
	*l = append(*l, s)
	return nil
}

func parseTarget(s string) (macro.Target, error) {
	switch strings.ToLower(s) {
	case "":
		return macro.TargetDefault, nil
	case "osx":
		return macro.TargetOSX, nil
	case "ios":
		return macro.TargetIOS, nil
	}
	return macro.TargetDefault, fmt.Errorf("unknown target %q", s)
}

var errUsage = errors.New("usage: fxpp [flags] <file.cfx>")

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fxpp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var includes, defines, statics, features listFlag
	fs.Var(&includes, "I", "include directory (repeatable)")
	fs.Var(&defines, "D", "pass 0 define NAME[=VALUE] (repeatable)")
	fs.Var(&statics, "S", "pass 1 define NAME[=VALUE] (repeatable)")
	fs.Var(&features, "feature", "optional platform feature define (repeatable)")
	platformName := fs.String("platform", "d3d11", "target platform: d3d11, gl4, gles3, metal, orbis, jasper")
	targetName := fs.String("target", "", "metal target: osx or ios")
	cacheDir := fs.String("cache", "", "directory for cached token bins")
	skipped := fs.Bool("skipped", false, "keep hidden tokens in the output")
	dump := fs.Bool("dump", false, "print the declaration fragments instead of the source")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	fname := fs.Arg(0)

	kind, err := macro.ParseKind(*platformName)
	if err != nil {
		return err
	}
	target, err := parseTarget(*targetName)
	if err != nil {
		return err
	}
	popts := []macro.Option{macro.WithTarget(target)}
	for _, f := range features {
		popts = append(popts, macro.WithFeature(f))
	}
	platform, err := macro.NewPlatform(kind, popts...)
	if err != nil {
		return err
	}

	logger := log.New(stderr, "", 0)
	dirs := append([]string{filepath.Dir(fname)}, includes...)
	ropts := []bin.Option{bin.WithIncludeDirs(dirs...), bin.WithLogger(logger)}
	if *cacheDir != "" {
		ropts = append(ropts, bin.WithCacheDir(*cacheDir))
	}
	repo := bin.NewRepository(ropts...)

	copts := []fxpp.Option{fxpp.WithLogger(logger)}
	for pass, list := range []listFlag{defines, statics} {
		for _, d := range list {
			name, value, err := ParseDefine(d)
			if err != nil {
				return err
			}
			copts = append(copts, fxpp.WithDefine(pass, name, value))
		}
	}

	r, err := fxpp.Compile(repo, platform, token.StripExt(filepath.Base(fname)), copts...)
	if err != nil {
		return err
	}
	if *dump {
		_, err = io.WriteString(stdout, r.Slice().Dump())
		return err
	}
	src, err := r.Source(*skipped)
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, src)
	return err
}

// exitCode prints err, if any, to stderr and returns the process exit code.
func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 2
	}
	fmt.Fprintln(stderr, err)
	return 1
}

func main() {
	os.Exit(exitCode(run(os.Args[1:], os.Stdout, os.Stderr), os.Stderr))
}
