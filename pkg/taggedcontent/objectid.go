package taggedcontent

import (
	"crypto/sha1"
	"hash"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// objectNamespace seeds content-derived object identities so they cannot
// collide with identities minted for other purposes.
var objectNamespace = uuid.MustParse("a1a693d8-63a0-4aa4-a15f-37f3c9f44faf")

// ObjectID derives the identity of a blob from its content. Adding the same
// bytes to any store always yields the same identity.
func ObjectID(data []byte) uuid.UUID {
	h := NewObjectDigest()
	h.Write(data)
	return ObjectIDFromDigest(h)
}

// NewObjectDigest returns a digest pre-seeded with the object namespace.
// Stores that cannot buffer a whole stream feed it incrementally and
// finish with ObjectIDFromDigest.
func NewObjectDigest() hash.Hash {
	h := sha1.New()
	h.Write(objectNamespace[:])
	return h
}

// ObjectIDFromDigest converts a finished object digest into an identity.
// The result matches uuid.NewSHA1 over the same namespace and content.
func ObjectIDFromDigest(h hash.Hash) uuid.UUID {
	var id uuid.UUID
	copy(id[:], h.Sum(nil))
	id[6] = (id[6] & 0x0f) | 0x50 // version 5
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant
	return id
}

// DetectMediaType sniffs a blob's media type from its leading bytes,
// falling back to application/octet-stream.
func DetectMediaType(data []byte) string {
	mediaType, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return mediaType
}
