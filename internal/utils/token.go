package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomToken returns n bytes of cryptographically secure random data
// encoded as unpadded base64url.  Used for invite tokens.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// shortAlphabet excludes look-alike characters (0/O, 1/l/I).
const shortAlphabet = "23456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// ShortCode returns a random URL-safe string of length n drawn from
// shortAlphabet.  Rejection sampling keeps the distribution uniform.
func ShortCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("short code length must be positive")
	}
	const limit = 256 - 256%len(shortAlphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, shortAlphabet[int(b)%len(shortAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
