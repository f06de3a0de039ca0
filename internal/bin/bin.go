package bin

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"
	"sync"

	"github.com/fwessels/fxpp/internal/token"
)

const (
	VersionHigh = 1
	VersionLow  = 4
)

// magic spells "FXSB" when written little endian and "BSXF" when written
// big endian.
const magic uint32 = 'F' | 'X'<<8 | 'S'<<16 | 'B'<<24

var (
	ErrBadMagic   = errors.New("not a shader bin")
	ErrBadVersion = errors.New("shader bin version mismatch")
	ErrCorrupt    = errors.New("corrupt shader bin")
)

// Header is the fixed-size prefix of an encoded bin.
type Header struct {
	Magic             uint32
	VersionHigh       uint16
	VersionLow        uint16
	CRC32             uint32
	SourceCRC32       uint32
	NumTokens         uint32
	OffsetStringTable uint32
	OffsetParamsLocal uint32
}

var headerSize = binary.Size(Header{})

// Bin is the tokenized form of one source file. Its token buffer may be
// shared by concurrent compilations; Tokens hands out a private copy.
type Bin struct {
	Name        string
	CRC32       uint32
	SourceCRC32 uint32
	Table       token.Table

	mu     sync.Mutex
	tokens token.Buffer
}

// NameCRC is the CRC of a lower-cased bin name.
func NameCRC(name string) uint32 {
	return crc32.ChecksumIEEE([]byte(strings.ToLower(name)))
}

// New tokenizes src into a bin called name.
func New(name string, src []byte) (*Bin, error) {
	buf, table, err := token.Tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Bin{
		Name:        name,
		CRC32:       NameCRC(name),
		SourceCRC32: crc32.ChecksumIEEE(src),
		Table:       table,
		tokens:      buf,
	}, nil
}

// Tokens returns a copy of the token buffer taken under the bin's lock.
func (b *Bin) Tokens() token.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append(token.Buffer(nil), b.tokens...)
}

// SetTokens replaces the token buffer.
func (b *Bin) SetTokens(buf token.Buffer) {
	b.mu.Lock()
	b.tokens = append(token.Buffer(nil), buf...)
	b.mu.Unlock()
}

func (b *Bin) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tokens)
}

// Encode writes b in the shader-bin cache format. Only literal tokens can be
// stored; a bin is cached straight after tokenization.
func (b *Bin) Encode(w io.Writer, order binary.ByteOrder) error {
	toks := b.Tokens()
	ids := make([]uint32, len(toks))
	for i, t := range toks {
		if t.Kind != token.Literal {
			return fmt.Errorf("%s: token %d: cannot encode %v", b.Name, i, t.Kind)
		}
		ids[i] = uint32(t.ID)
	}

	var strs bytes.Buffer
	var id [4]byte
	for _, e := range b.Table {
		order.PutUint32(id[:], uint32(e.ID))
		strs.Write(id[:])
		strs.WriteString(e.Spelling)
		strs.WriteByte(0)
	}

	h := Header{
		Magic:             magic,
		VersionHigh:       VersionHigh,
		VersionLow:        VersionLow,
		CRC32:             b.CRC32,
		SourceCRC32:       b.SourceCRC32,
		NumTokens:         uint32(len(ids)),
		OffsetStringTable: uint32(headerSize + 4*len(ids)),
	}
	h.OffsetParamsLocal = h.OffsetStringTable + uint32(strs.Len())

	if err := binary.Write(w, order, &h); err != nil {
		return err
	}
	if err := binary.Write(w, order, ids); err != nil {
		return err
	}
	_, err := w.Write(strs.Bytes())
	return err
}

// Decode reads a bin written by Encode in either byte order.
func Decode(name string, data []byte) (*Bin, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%s: %w", name, ErrBadMagic)
	}
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(data) == magic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(data) == magic:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrBadMagic)
	}

	var h Header
	if err := binary.Read(bytes.NewReader(data[:headerSize]), order, &h); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if h.VersionHigh != VersionHigh || h.VersionLow != VersionLow {
		return nil, fmt.Errorf("%s: %w: have %d.%d, want %d.%d", name, ErrBadVersion,
			h.VersionHigh, h.VersionLow, VersionHigh, VersionLow)
	}
	end := uint64(headerSize) + 4*uint64(h.NumTokens)
	if uint64(h.OffsetStringTable) != end || uint64(h.OffsetParamsLocal) > uint64(len(data)) ||
		h.OffsetParamsLocal < h.OffsetStringTable {
		return nil, fmt.Errorf("%s: %w: bad offsets", name, ErrCorrupt)
	}

	b := &Bin{Name: name, CRC32: h.CRC32, SourceCRC32: h.SourceCRC32}
	b.tokens = make(token.Buffer, h.NumTokens)
	for i := range b.tokens {
		off := headerSize + 4*i
		b.tokens[i] = token.Lit(token.ID(order.Uint32(data[off:])))
	}

	strs := data[h.OffsetStringTable:h.OffsetParamsLocal]
	for len(strs) > 0 {
		if len(strs) < 5 {
			return nil, fmt.Errorf("%s: %w: truncated string table", name, ErrCorrupt)
		}
		id := token.ID(order.Uint32(strs))
		strs = strs[4:]
		n := bytes.IndexByte(strs, 0)
		if n < 0 {
			return nil, fmt.Errorf("%s: %w: unterminated string", name, ErrCorrupt)
		}
		if err := b.Table.Insert(id, string(strs[:n])); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		strs = strs[n+1:]
	}
	return b, nil
}
