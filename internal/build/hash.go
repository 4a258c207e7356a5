package build

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"pixibuild/internal/conda"
)

// HashInfo identifies a build variant inside the build string.
type HashInfo struct {
	// Hash is the truncated digest of the canonical variant encoding
	Hash string

	// Prefix tags noarch python builds with "py"
	Prefix string
}

// NewHashInfo computes the variant hash. The variant map is encoded as
// canonical JSON (sorted keys) and digested with SHA-1, truncated to
// seven hex characters, matching the conda build string convention.
func NewHashInfo(variant map[string]string, noarch conda.NoArch) HashInfo {
	if variant == nil {
		variant = map[string]string{}
	}
	// json.Marshal sorts map keys, which makes the encoding canonical.
	encoded, err := json.Marshal(variant)
	if err != nil {
		// A map[string]string cannot fail to encode.
		panic(err)
	}
	digest := sha1.Sum(encoded)
	hash := hex.EncodeToString(digest[:])[:7]

	prefix := ""
	if noarch == conda.NoArchPython {
		prefix = "py"
	}
	return HashInfo{Hash: hash, Prefix: prefix}
}

// String renders the hash as it appears in build strings: the prefix,
// an "h", and the digest.
func (h HashInfo) String() string {
	return h.Prefix + "h" + h.Hash
}
