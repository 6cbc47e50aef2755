package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"go.trai.ch/zerr"
)

// DigestLen is the size of a digest in bytes.
const DigestLen = sha256.Size

// Digest is the content identifier of a Source, derived from its canonical
// encoding. It is comparable and totally ordered as a byte string, so
// digest-keyed serializations are stable across runs.
type Digest [DigestLen]byte

func digestOf(canonical []byte) Digest {
	return sha256.Sum256(canonical)
}

// Hex returns the lowercase hex rendering used as the cache-map key and as
// the on-disk entry directory name.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) String() string { return d.Hex() }

// Compare orders digests byte-wise.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

// ParseDigest decodes the hex rendering produced by Hex.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, zerr.Wrap(err, "invalid digest")
	}
	if len(raw) != DigestLen {
		return d, zerr.With(zerr.New("invalid digest length"), "length", len(raw))
	}
	copy(d[:], raw)
	return d, nil
}
