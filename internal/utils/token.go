package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// downloadTokenBytes is the entropy of a download token. 8 random bytes
// hex-encode to 16 characters; the token is the sole public identifier of
// an artifact and must not be derivable from anything else.
const downloadTokenBytes = 8

// GenerateDownloadToken returns a random opaque token for public URLs
func GenerateDownloadToken() (string, error) {
	buf := make([]byte, downloadTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate download token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
