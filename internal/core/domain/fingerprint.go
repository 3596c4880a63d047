package domain

import (
	"bytes"
	"encoding/hex"
	"strings"
)

// Fingerprint is a cache key component. A nil Fingerprint means the key could not be
// computed and the node is not cacheable.
type Fingerprint []byte

// Hex returns the fingerprint as lowercase hex.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f)
}

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	return f.Hex()
}

// Equal reports whether both fingerprints hold the same bytes.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return bytes.Equal(f, other)
}

// Selector distinguishes path-set variants stored under one weak fingerprint.
type Selector struct {
	// PathSetHash addresses the serialized PathSet in the blob store.
	PathSetHash ContentHash `json:"pathSetHash" cbor:"1,keyasint"`
	// Output is the strong fingerprint payload computed from the path set.
	Output []byte `json:"output" cbor:"2,keyasint"`
}

// EmptySelector is used for nodes that have no extra-input path set. It always matches.
var EmptySelector = Selector{PathSetHash: ZeroHash, Output: []byte{0}}

// IsEmpty reports whether s is the reserved empty selector.
func (s Selector) IsEmpty() bool {
	return s.Equal(EmptySelector)
}

// Equal reports exact selector equality.
func (s Selector) Equal(other Selector) bool {
	return s.PathSetHash == other.PathSetHash && bytes.Equal(s.Output, other.Output)
}

// Key returns a blob-store key segment that is unique per selector.
func (s Selector) Key() string {
	var b strings.Builder
	b.WriteString(string(s.PathSetHash.Algorithm()))
	b.WriteByte('-')
	b.WriteString(s.PathSetHash.Hex())
	b.WriteByte('-')
	b.WriteString(hex.EncodeToString(s.Output))
	return b.String()
}

// StrongFingerprint is the lookup key of a content hash list record.
type StrongFingerprint struct {
	Weak     Fingerprint
	Selector Selector
}

// SelectorBucket is the persisted list of selectors known for one weak fingerprint,
// most recently added first.
type SelectorBucket struct {
	Selectors []Selector `json:"selectors" cbor:"1,keyasint"`
}

// Contains reports whether the bucket already holds s.
func (b *SelectorBucket) Contains(s Selector) bool {
	for _, existing := range b.Selectors {
		if existing.Equal(s) {
			return true
		}
	}
	return false
}

// ContentHashList is the stored record for one strong fingerprint. Entry 0 addresses the
// serialized NodeBuildResult; the remaining entries are output content hashes in the order
// given by NodeBuildResult.OutputPaths.
type ContentHashList struct {
	Hashes []ContentHash `json:"hashes" cbor:"1,keyasint"`
}
