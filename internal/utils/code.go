package utils

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet is the 32-symbol set used for access codes. It
// excludes 0/O and 1/I so codes survive being read over the phone
// or typed from a printed invitation.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// AccessCodeLength is the fixed length of a guest pass access code.
const AccessCodeLength = 4

// GenerateAccessCode returns a random 4-character access code drawn
// uniformly from codeAlphabet using crypto/rand. Uniqueness is not
// guaranteed here; the guest pass repository checks the code against
// the unique index inside the creation transaction and retries.
func GenerateAccessCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, AccessCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// IsValidAccessCode reports whether s has the exact shape of a
// generated access code (length and alphabet). Handlers use it to
// reject malformed codes before touching the database.
func IsValidAccessCode(s string) bool {
	if len(s) != AccessCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		found := false
		for j := 0; j < len(codeAlphabet); j++ {
			if s[i] == codeAlphabet[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
