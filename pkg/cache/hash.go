package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/stemma/pkg/witness"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashWitnesses hashes the sigils and tokens of the witnesses in order.
// Raw content and normalized text both count, so a change of normalizer
// changes the hash.
func HashWitnesses(ws []*witness.Witness) string {
	type tok struct{ C, N string }
	type wit struct {
		S string
		T []tok
	}
	in := make([]wit, len(ws))
	for i, w := range ws {
		in[i].S = w.Sigil
		for _, t := range w.Tokens() {
			in[i].T = append(in[i].T, tok{t.Content, t.Normalized})
		}
	}
	data, _ := json.Marshal(in)
	return Hash(data)
}
