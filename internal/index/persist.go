package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

const (
	magic         = "MGIX"
	formatVersion = 1
	maxModelName  = 1 << 10
)

// ErrFormat is returned for files that are not a readable index.
var ErrFormat = errors.New("index: invalid index file")

type header struct {
	Version  uint32
	Dim      uint32
	Count    uint64
	ModelLen uint16
}

// Save writes the index as: magic, header, model name, then Count*Dim
// little-endian float32 values.
func (f *Flat) Save(w io.Writer) error {
	if len(f.model) > maxModelName {
		return fmt.Errorf("index: model name too long")
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	h := header{
		Version:  formatVersion,
		Dim:      uint32(f.dim),
		Count:    uint64(f.Len()),
		ModelLen: uint16(len(f.model)),
	}
	if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("failed to write index header: %w", err)
	}
	if _, err := bw.WriteString(f.model); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for _, v := range f.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("failed to write vectors: %w", err)
		}
	}
	return bw.Flush()
}

// Load reads an index written by Save.
func Load(r io.Reader) (*Flat, error) {
	br := bufio.NewReader(r)

	m := make([]byte, len(magic))
	if _, err := io.ReadFull(br, m); err != nil || string(m) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}
	var h header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, h.Version)
	}
	if h.Dim == 0 || h.ModelLen > maxModelName {
		return nil, fmt.Errorf("%w: corrupt header", ErrFormat)
	}

	model := make([]byte, h.ModelLen)
	if _, err := io.ReadFull(br, model); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	f := &Flat{dim: int(h.Dim), model: string(model)}
	total := h.Count * uint64(h.Dim)
	f.data = make([]float32, 0, min(total, 1<<20))
	buf := make([]byte, 4)
	for i := uint64(0); i < total; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: truncated vectors: %v", ErrFormat, err)
		}
		f.data = append(f.data, math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	}
	return f, nil
}

// SaveFile atomically writes the index to path.
func (f *Flat) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := f.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFile reads an index from path.
func LoadFile(path string) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer file.Close()
	return Load(file)
}
