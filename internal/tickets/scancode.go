package tickets

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
)

const scanCodeBytes = 10

var scanCodeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// newScanCode returns a 16-character base32 code from a crypto/rand source.
// 80 bits of entropy makes accidental collision negligible; the unique index
// on scan_code is the backstop.
func newScanCode() (string, error) {
	buf := make([]byte, scanCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random scan code: %w", err)
	}
	return scanCodeEncoding.EncodeToString(buf), nil
}
