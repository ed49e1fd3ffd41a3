// Package staticcontent serves the fixed non-gameplay content the client
// pulls by name: the coalesced client configuration blob, legal document
// HTML, and talk files. Grounded on the teacher's internal/html cache:
// prefer an on-disk file by name, fall back to an embedded default.
package staticcontent

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zlib"
)

//go:embed defaults/*
var defaultsFS embed.FS

const chunkSize = 1024

// Store resolves named static content, preferring an on-disk override in
// dir (when non-empty) over the embedded defaults.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string][]byte
}

// New builds a Store. dir is an optional on-disk override directory; pass
// "" to serve only the embedded defaults.
func New(dir string) *Store {
	return &Store{dir: dir, cache: make(map[string][]byte)}
}

// read loads name (relative path, no "..") preferring dir over the
// embedded defaults/ tree, caching the result.
func (s *Store) read(name string) ([]byte, error) {
	if strings.Contains(name, "..") {
		return nil, fmt.Errorf("static content: path traversal denied: %s", name)
	}

	s.mu.RLock()
	if data, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return data, nil
	}
	s.mu.RUnlock()

	var data []byte
	if s.dir != "" {
		if b, err := os.ReadFile(filepath.Join(s.dir, name)); err == nil {
			data = b
		}
	}
	if data == nil {
		b, err := defaultsFS.ReadFile("defaults/" + name)
		if err != nil {
			return nil, fmt.Errorf("static content %q not found: %w", name, err)
		}
		data = b
	}

	s.mu.Lock()
	s.cache[name] = data
	s.mu.Unlock()
	return data, nil
}

// mustRead returns the content, or an empty string if the name is missing
// from both the override directory and the embedded defaults — legal
// documents are advisory text, not a protocol-critical path.
func (s *Store) mustRead(name string) string {
	data, err := s.read(name)
	if err != nil {
		return ""
	}
	return string(data)
}

// TermsOfService returns the terms-of-service HTML content.
func (s *Store) TermsOfService() string {
	return s.mustRead("terms_of_service.html")
}

// PrivacyPolicy returns the privacy-policy HTML content.
func (s *Store) PrivacyPolicy() string {
	return s.mustRead("privacy_policy.html")
}

// Talk returns a named talk file's content, or ("", false) if absent.
func (s *Store) Talk(name string) (string, bool) {
	data, err := s.read(filepath.Join("talk", name))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// CoalescedChunks compresses the coalesced config blob with zlib, wraps it
// in a NIBC header (original length, compressed length), and splits the
// base64 of header+payload into fixed-size CHUNK_n entries, per §6's
// NIBC/CHUNK_n contract. Returns the chunk map plus the declared chunk size
// and total (pre-base64) data size.
func (s *Store) CoalescedChunks() (chunks map[string]string, chunkSz, dataSize int) {
	raw := s.mustRead("coalesced.bin")

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	_, _ = w.Write([]byte(raw))
	_ = w.Close()

	var nibc bytes.Buffer
	nibc.WriteString("NIBC")
	_ = binary.Write(&nibc, binary.BigEndian, uint32(len(raw)))
	_ = binary.Write(&nibc, binary.BigEndian, uint32(compressed.Len()))
	nibc.Write(compressed.Bytes())

	encoded := base64.StdEncoding.EncodeToString(nibc.Bytes())

	chunks = make(map[string]string)
	for i := 0; i*chunkSize < len(encoded); i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		chunks[fmt.Sprintf("CHUNK_%d", i)] = encoded[start:end]
	}
	return chunks, chunkSize, nibc.Len()
}
