/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package fxpp runs shader effect scripts through the two preprocessing
// passes for one target platform.
package fxpp

import (
	"fmt"

	"github.com/fwessels/fxpp/internal/bin"
	"github.com/fwessels/fxpp/internal/macro"
	"github.com/fwessels/fxpp/internal/preprocessor"
	"github.com/fwessels/fxpp/internal/slicer"
	"github.com/fwessels/fxpp/internal/token"
)

type Option func(*config)

type config struct {
	pp     []preprocessor.Option
	logger preprocessor.Logger
}

// WithDefine seeds the macro table of pass with NAME=VALUE.
func WithDefine(pass int, name, value string) Option {
	return func(c *config) { c.pp = append(c.pp, preprocessor.WithDefine(pass, name, value)) }
}

func WithVars(v preprocessor.VarSource) Option {
	return func(c *config) { c.pp = append(c.pp, preprocessor.WithVars(v)) }
}

func WithEnvRegistrar(e preprocessor.EnvRegistrar) Option {
	return func(c *config) { c.pp = append(c.pp, preprocessor.WithEnvRegistrar(e)) }
}

func WithLogger(l preprocessor.Logger) Option {
	return func(c *config) {
		c.logger = l
		c.pp = append(c.pp, preprocessor.WithLogger(l))
	}
}

// Result holds the output of both passes over one effect.
type Result struct {
	Name  string
	Pass0 token.Buffer
	Pass1 token.Buffer
	// Table spells every id of Pass0 and Pass1.
	Table token.Table

	logger preprocessor.Logger
}

// Compile resolves name from repo and runs pass 0, then pass 1 over the
// pass 0 output. Includes are resolved from repo as well.
func Compile(repo *bin.Repository, platform *macro.Platform, name string, opts ...Option) (*Result, error) {
	var c config
	for _, o := range opts {
		o(&c)
	}
	b, err := repo.Resolve(name)
	if err != nil {
		return nil, err
	}
	pp, err := preprocessor.New(platform, append([]preprocessor.Option{preprocessor.WithIncludeResolver(repo)}, c.pp...)...)
	if err != nil {
		return nil, err
	}

	r := &Result{Name: b.Name, logger: c.logger}
	if r.Pass0, r.Table, err = pp.Preprocess(0, b.Tokens(), b.Table); err != nil {
		return nil, fmt.Errorf("%s: pass 0: %w", name, err)
	}
	if r.Pass1, r.Table, err = pp.Preprocess(1, r.Pass0, r.Table); err != nil {
		return nil, fmt.Errorf("%s: pass 1: %w", name, err)
	}
	return r, nil
}

// Source reconstructs the text of the pass 1 output.
func (r *Result) Source(withSkipped bool) (string, error) {
	return token.Convert(r.Pass1, r.Table, withSkipped)
}

// Slice walks the pass 1 output once and returns the slicer holding the
// fragments found on the way.
func (r *Result) Slice() *slicer.Parser {
	p := slicer.New(r.Pass1, r.Table, r.logger)
	for {
		if _, _, ok := p.NextToken(); !ok {
			break
		}
	}
	return p
}
