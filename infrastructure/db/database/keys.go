package database

import (
	"bytes"
	"encoding/hex"
)

var separator = []byte("/")

// Key is a full database key made of a bucket path prefix and a suffix.
type Key struct {
	prefix []byte
	suffix []byte
}

// Bytes returns the full key.
func (k *Key) Bytes() []byte {
	keyBytes := make([]byte, len(k.prefix)+len(k.suffix))
	copy(keyBytes, k.prefix)
	copy(keyBytes[len(k.prefix):], k.suffix)
	return keyBytes
}

func (k *Key) String() string {
	return string(k.prefix) + hex.EncodeToString(k.suffix)
}

// Bucket returns the bucket the key belongs to.
func (k *Key) Bucket() *Bucket {
	return &Bucket{prefix: k.prefix}
}

// Suffix returns the part of the key following its bucket path.
func (k *Key) Suffix() []byte {
	return k.suffix
}

func newKey(prefix []byte, suffix []byte) *Key {
	return &Key{prefix: prefix, suffix: suffix}
}

// Bucket groups keys under a common path. Cursors iterate a single bucket.
type Bucket struct {
	prefix []byte
}

// MakeBucket creates a bucket from the given path elements.
func MakeBucket(path ...[]byte) *Bucket {
	if len(path) == 0 {
		return &Bucket{}
	}
	joined := bytes.Join(path, separator)
	prefix := make([]byte, len(joined)+len(separator))
	copy(prefix, joined)
	copy(prefix[len(joined):], separator)
	return &Bucket{prefix: prefix}
}

// Bucket returns the sub-bucket named by bucketBytes.
func (b *Bucket) Bucket(bucketBytes []byte) *Bucket {
	prefix := make([]byte, 0, len(b.prefix)+len(bucketBytes)+len(separator))
	prefix = append(prefix, b.prefix...)
	prefix = append(prefix, bucketBytes...)
	prefix = append(prefix, separator...)
	return &Bucket{prefix: prefix}
}

// Key returns the key named by suffix inside the bucket.
func (b *Bucket) Key(suffix []byte) *Key {
	return newKey(b.prefix, suffix)
}

// Path returns the bucket prefix, including the trailing separator.
func (b *Bucket) Path() []byte {
	return b.prefix
}

// KeyFromBytes splits a full key read back from the backend into the given
// bucket and its suffix.
func (b *Bucket) KeyFromBytes(fullKey []byte) *Key {
	suffix := make([]byte, len(fullKey)-len(b.prefix))
	copy(suffix, fullKey[len(b.prefix):])
	return newKey(b.prefix, suffix)
}
