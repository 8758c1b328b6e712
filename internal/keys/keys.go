// Package keys builds skucache storage keys.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// maxRaw is the longest sku kept verbatim in a key; longer ones are hashed.
const maxRaw = 128

// Entry returns the storage key of one sku within a namespace:
//
//	sku:<ns>:<sku>
//	sku:<ns>:#<sha256 prefix>   (long or ':'-bearing skus)
func Entry(ns, sku string) string {
	return "sku:" + ns + ":" + component(sku)
}

// Scope is the generation scope shared by every entry of ns.
func Scope(ns string) string {
	return "skus:" + ns
}

func component(s string) string {
	if len(s) <= maxRaw && !strings.ContainsRune(s, ':') && !strings.HasPrefix(s, "#") {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	return "#" + hex.EncodeToString(sum[:8])
}
