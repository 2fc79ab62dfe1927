package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// ContentKey hashes data together with any qualifiers that change how the
// data is rendered, so equal uploads under different settings do not collide.
func ContentKey(data []byte, qualifiers ...string) string {
	hash := md5.New()
	hash.Write(data)
	for _, q := range qualifiers {
		hash.Write([]byte{0})
		hash.Write([]byte(q))
	}
	return hex.EncodeToString(hash.Sum(nil))
}
