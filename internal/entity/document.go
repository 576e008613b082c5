package entity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/docextract/constants"
)

// RawDocument is an uploaded file held in memory. The bytes are copied on
// construction and never handed out mutably.
type RawDocument struct {
	filename string
	data     []byte

	hashOnce sync.Once
	hash     string
}

// NewRawDocument copies data so later mutation by the caller has no effect.
func NewRawDocument(filename string, data []byte) *RawDocument {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &RawDocument{filename: filename, data: buf}
}

// LoadRawDocument reads a document from disk.
func LoadRawDocument(path string) (*RawDocument, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &RawDocument{filename: filepath.Base(path), data: b}, nil
}

func (d *RawDocument) Filename() string { return d.filename }

// Ext is the normalized extension (lowercase, no dot).
func (d *RawDocument) Ext() string { return constants.NormalizeExt(filepath.Ext(d.filename)) }

func (d *RawDocument) Size() int64 { return int64(len(d.data)) }

// Reader returns a fresh reader over the document bytes.
func (d *RawDocument) Reader() *bytes.Reader { return bytes.NewReader(d.data) }

// WriteFile materializes the document at path.
func (d *RawDocument) WriteFile(path string) error {
	return os.WriteFile(path, d.data, 0o600)
}

// Fingerprint is the hex SHA-256 of the content, computed once.
func (d *RawDocument) Fingerprint() string {
	d.hashOnce.Do(func() {
		sum := sha256.Sum256(d.data)
		d.hash = hex.EncodeToString(sum[:])
	})
	return d.hash
}
