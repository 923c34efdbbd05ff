package tracking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// CodeBytes is the number of random bytes in a tracking code (8 hex chars).
const CodeBytes = 4

// NewTrackingCode returns CodeBytes of r as uppercase hex. A nil r uses
// crypto/rand. Uniqueness is not checked here.
func NewTrackingCode(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, CodeBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate tracking code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
