package service

import (
	"encoding/hex"
	"fmt"
	"io"
)

// tokenBytes is the token entropy; the hex form is twice as long.
const tokenBytes = 32

func newToken(random io.Reader) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// TxtRecordValue is the value a customer publishes to prove control of a domain.
func TxtRecordValue(txtKey, token string) string {
	return txtKey + "=" + token
}
