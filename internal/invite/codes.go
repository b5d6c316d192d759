// Package invite covers the activation-code lifecycle: local issuance of
// opaque codes and the one-shot verification call against the backend.
package invite

import (
	"crypto/rand"
	"math/big"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// CodeLength is the default activation code length.
const CodeLength = 10

// NewCode issues a fresh activation code. Generation is purely local; no
// server round-trip happens. Issuing again produces a new code, which by
// intent invalidates the previous one.
func NewCode() string {
	return NewCodeN(CodeLength)
}

// NewCodeN issues a code of n symbols from the 62-symbol alphanumeric
// alphabet.
func NewCodeN(n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is
			// broken; there is no useful recovery.
			panic(err)
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf)
}
