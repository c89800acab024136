package sysfswatch

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the digest length in bytes used for file content.
const HashSize = 16

// Fingerprint describes the observable state of one entry. Two fingerprints are
// equal iff the entry did not change between the scans that produced them.
//
// Files carry size, mtime and a content digest. Directories only carry their
// identity (inode, device, mode); children are fingerprinted separately.
type Fingerprint struct {
	Dir     bool
	Size    uint64
	ModTime int64 // nanoseconds since the epoch
	Hash    [HashSize]byte
	Ino     uint64
	Dev     uint64
	Mode    uint32
}

// statInfo is the subset of stat(2) the fingerprint needs.
type statInfo struct {
	dir     bool
	size    uint64
	modTime int64
	ino     uint64
	dev     uint64
	mode    uint32
}

// ComputeFingerprint stats and, for regular files, hashes the entry at path.
// The content is read in full on every call; nothing is cached between polls.
// Errors wrap fs.ErrNotExist when the entry vanished and fs.ErrPermission when
// it cannot be read.
func ComputeFingerprint(path string) (Fingerprint, error) {
	st, err := statPath(path)
	if err != nil {
		return Fingerprint{}, err
	}

	if st.dir {
		return Fingerprint{
			Dir:  true,
			Ino:  st.ino,
			Dev:  st.dev,
			Mode: st.mode,
		}, nil
	}

	sum, err := hashFile(path)
	if err != nil {
		return Fingerprint{}, err
	}

	return Fingerprint{
		Size:    st.size,
		ModTime: st.modTime,
		Hash:    sum,
	}, nil
}

func hashFile(path string) ([HashSize]byte, error) {
	var sum [HashSize]byte

	f, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer f.Close()

	h, err := blake2b.New(HashSize, nil)
	if err != nil {
		return sum, fmt.Errorf("failed to create hasher: %w", err)
	}

	if _, err := io.Copy(h, f); err != nil {
		return sum, fmt.Errorf("failed to read %s: %w", path, err)
	}

	copy(sum[:], h.Sum(nil))
	return sum, nil
}
