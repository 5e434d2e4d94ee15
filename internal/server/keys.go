package server

import (
	"crypto/rand"
	"math/big"
)

const (
	keyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	keyLength   = 11
)

func generateKey() (string, error) {
	n := big.NewInt(int64(len(keyAlphabet)))
	b := make([]byte, keyLength)
	for i := range b {
		c, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		b[i] = keyAlphabet[c.Int64()]
	}
	return string(b), nil
}
