package app

import "crypto/rand"

const receiptCodeLen = 15

// newReceiptCode returns an opaque numeric receipt code printed on the
// booking confirmation. Not an identifier; collisions are tolerable.
func newReceiptCode() string {
	b := make([]byte, receiptCodeLen)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	for i := range b {
		b[i] = '0' + b[i]%10
	}
	return string(b)
}
