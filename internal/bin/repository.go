package bin

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"log"
	"os"
	"path/filepath"
	"sync"

	"modernc.org/mathutil"

	"github.com/fwessels/fxpp/internal/token"
)

// Extensions tried, in order, when resolving a bin name.
var Extensions = []string{"", ".cfi", ".cfx"}

// CacheExt is the file extension of encoded bins in the cache directory.
const CacheExt = ".fxb"

var ErrNotFound = errors.New("shader bin not found")

type Logger interface {
	Printf(format string, v ...any)
}

// Repository resolves bin names to tokenized bins. Bins are searched in the
// include directories, kept in memory once loaded and, when a cache
// directory is set, stored there in encoded form. A Repository is safe for
// concurrent use.
type Repository struct {
	dirs     []string
	cacheDir string
	order    binary.ByteOrder
	logger   Logger

	mu   sync.Mutex
	bins map[string]*Bin
}

type Option func(*Repository)

func WithIncludeDirs(dirs ...string) Option {
	return func(r *Repository) { r.dirs = append(r.dirs, dirs...) }
}

// WithCacheDir stores encoded bins under dir and reuses them while their
// source CRC matches.
func WithCacheDir(dir string) Option {
	return func(r *Repository) { r.cacheDir = dir }
}

func WithByteOrder(order binary.ByteOrder) Option {
	return func(r *Repository) { r.order = order }
}

func WithLogger(l Logger) Option {
	return func(r *Repository) { r.logger = l }
}

func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		order:  binary.LittleEndian,
		logger: log.Default(),
		bins:   map[string]*Bin{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Add tokenizes src and registers it under name, replacing any earlier bin.
func (r *Repository) Add(name string, src []byte) (*Bin, error) {
	b, err := New(name, src)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.bins[name] = b
	r.mu.Unlock()
	return b, nil
}

// Resolve returns the bin called name. Names carry no extension.
func (r *Repository) Resolve(name string) (*Bin, error) {
	r.mu.Lock()
	b, ok := r.bins[name]
	r.mu.Unlock()
	if ok {
		return b, nil
	}

	path, err := r.resolveAsFile(name)
	if err != nil {
		return nil, err
	}
	src, err := readSource(path)
	if err != nil {
		return nil, err
	}

	b = r.loadCached(name, src)
	if b == nil {
		if b, err = New(name, src); err != nil {
			return nil, err
		}
		r.storeCached(b)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another goroutine may have won the race
	if prev, ok := r.bins[name]; ok {
		return prev, nil
	}
	r.bins[name] = b
	return b, nil
}

func (r *Repository) resolveAsFile(name string) (string, error) {
	if filepath.IsAbs(name) {
		for _, ext := range Extensions {
			if fileExists(name + ext) {
				return filepath.Clean(name + ext), nil
			}
		}
		return "", fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	for _, dir := range r.dirs {
		for _, ext := range Extensions {
			cand := filepath.Join(dir, name+ext)
			if fileExists(cand) {
				return filepath.Clean(cand), nil
			}
		}
	}
	return "", fmt.Errorf("%q: %w", name, ErrNotFound)
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func readSource(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	if fi.Size() > mathutil.MaxInt {
		return nil, fmt.Errorf("%s: file too big", path)
	}
	return os.ReadFile(path)
}

func (r *Repository) cachePath(name string) string {
	return filepath.Join(r.cacheDir, filepath.Base(name)+CacheExt)
}

// loadCached returns the cached bin for name when it was built from src.
func (r *Repository) loadCached(name string, src []byte) *Bin {
	if r.cacheDir == "" {
		return nil
	}
	data, err := os.ReadFile(r.cachePath(name))
	if err != nil {
		return nil
	}
	b, err := Decode(name, data)
	if err != nil {
		r.logger.Printf("warning: %v", err)
		return nil
	}
	if b.SourceCRC32 != crc32.ChecksumIEEE(src) {
		return nil
	}
	return b
}

func (r *Repository) storeCached(b *Bin) {
	if r.cacheDir == "" {
		return
	}
	var buf bytes.Buffer
	if err := b.Encode(&buf, r.order); err != nil {
		r.logger.Printf("warning: %v", err)
		return
	}
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		r.logger.Printf("warning: %v", err)
		return
	}
	if err := os.WriteFile(r.cachePath(b.Name), buf.Bytes(), 0o644); err != nil {
		r.logger.Printf("warning: %v", err)
	}
}

// Merged returns the union of the spelling tables of every loaded bin.
func (r *Repository) Merged() token.Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	var t token.Table
	for _, b := range r.bins {
		t = token.Merge(t, b.Table)
	}
	return t
}
