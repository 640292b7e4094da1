package keypass

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// codeAlphabet omits 0/O/1/I/L so codes survive being read aloud or typed
// from a printed voucher.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	codeLength = 10
	codePrefix = "KP-"
)

var errCodeSpaceExhausted = errors.New("could not mint unique keypass code")

// newCode mints a candidate access code. Uniqueness is the caller's problem;
// this only guarantees uniform randomness over the alphabet.
func newCode() (string, error) {
	var b strings.Builder
	b.Grow(len(codePrefix) + codeLength)
	b.WriteString(codePrefix)

	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
