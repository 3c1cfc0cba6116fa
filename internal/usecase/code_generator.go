package usecase

import (
	"fmt"
	"io"
	"regexp"
)

// codeAlphabet avoids ambiguous characters like O/0 and I/1. Its length is a power of two,
// so reducing a random byte modulo len(codeAlphabet) keeps every symbol equally likely.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9]*$`)

// generateCandidate draws a random suffix of the given length from src and
// prepends prefix. It does not check uniqueness.
func generateCandidate(src io.Reader, prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}

	buffer := make([]byte, length)
	if _, err := io.ReadFull(src, buffer); err != nil {
		return "", err
	}
	for i := range buffer {
		buffer[i] = codeAlphabet[int(buffer[i])%len(codeAlphabet)]
	}
	return prefix + string(buffer), nil
}
