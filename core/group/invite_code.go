package group

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

// inviteAlphabet leaves out characters that are easily confused when read aloud or typed (0/O, 1/I/L).
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

var alphabetLen = big.NewInt(int64(len(inviteAlphabet)))

func generateInviteCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", errors.Wrap(err, "reading random bytes")
		}
		code[i] = inviteAlphabet[n.Int64()]
	}
	return string(code), nil
}
