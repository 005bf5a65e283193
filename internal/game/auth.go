package game

import "crypto/subtle"

// SameHost compares host ids in constant time. An empty id never matches.
func SameHost(want, got string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
