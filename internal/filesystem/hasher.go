package filesystem

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"
)

// DefaultChunkSize is the read size used when hashing files
const DefaultChunkSize = 64 * 1024

// Algorithm names a fingerprint digest
type Algorithm string

const (
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA256 Algorithm = "sha256"
)

// ReadError reports a file that could not be hashed
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Hasher computes streaming content fingerprints
type Hasher struct {
	algorithm Algorithm
	newHash   func() hash.Hash
	bufPool   sync.Pool
}

// NewHasher creates a hasher for the given algorithm.
// chunkSize <= 0 selects DefaultChunkSize.
func NewHasher(algorithm Algorithm, chunkSize int) (*Hasher, error) {
	var newHash func() hash.Hash
	switch algorithm {
	case AlgorithmMD5, "":
		algorithm = AlgorithmMD5
		newHash = md5.New
	case AlgorithmSHA256:
		newHash = sha256.New
	default:
		return nil, fmt.Errorf("unsupported fingerprint algorithm: %s", algorithm)
	}

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	h := &Hasher{
		algorithm: algorithm,
		newHash:   newHash,
	}
	h.bufPool.New = func() any {
		buf := make([]byte, chunkSize)
		return &buf
	}
	return h, nil
}

// Algorithm returns the digest name
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Fingerprint hashes the file at path and returns the hex digest and the
// number of bytes read. Any failure is returned as a *ReadError.
func (h *Hasher) Fingerprint(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	sum, n, err := h.FingerprintReader(f)
	if err != nil {
		return "", n, &ReadError{Path: path, Err: err}
	}
	return sum, n, nil
}

// FingerprintReader hashes r in bounded chunks
func (h *Hasher) FingerprintReader(r io.Reader) (string, int64, error) {
	bufp := h.bufPool.Get().(*[]byte)
	defer h.bufPool.Put(bufp)
	buf := *bufp

	digest := h.newHash()
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", total, err
		}
	}

	return hex.EncodeToString(digest.Sum(nil)), total, nil
}

// IsFingerprint reports whether s is a lowercase or uppercase hex string
// of the digest length for the algorithm
func (h *Hasher) IsFingerprint(s string) bool {
	if len(s) != hex.EncodedLen(h.newHash().Size()) {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
