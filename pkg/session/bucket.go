// Package session maps high-cardinality conversation identifiers onto a
// small fixed set of history slots, bounding per-conversation state
// growth in the layer above this client.
package session

import (
	"crypto/md5"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// BoundedID maps a conversation identifier to one of buckets stable
// slots, producing "{id}_b{bucket}". The mapping is a pure function of
// (id, buckets): the same identifier always lands in the same bucket, so
// a conversation keeps finding its own history while many logical
// conversations alias onto a few underlying session slots.
//
// An empty identifier gets a freshly generated unique ID instead — each
// call a different one, deliberately, so anonymous sessions never pile
// into (or collide with) a shared bucket.
func BoundedID(conversationID string, buckets int) string {
	if buckets <= 0 {
		buckets = 1
	}
	if conversationID == "" {
		return uuid.NewString()
	}

	sum := md5.Sum([]byte(conversationID))
	bucket := new(big.Int).Mod(
		new(big.Int).SetBytes(sum[:]),
		big.NewInt(int64(buckets)),
	).Int64()

	return fmt.Sprintf("%s_b%d", conversationID, bucket)
}
