package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Of is the hex SHA-256 of data.
func Of(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// OfJSON hashes the JSON encoding of v.
func OfJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Of(raw), nil
}

// ChecksumMatcher compares documents against a known checksum, such as the
// ETag a client sent back.
type ChecksumMatcher struct {
	expectedChecksum string
}

func NewChecksumMatcher(expectedChecksum string) *ChecksumMatcher {
	return &ChecksumMatcher{expectedChecksum: expectedChecksum}
}

// Match reports whether v hashes to the expected checksum.
func (cm *ChecksumMatcher) Match(v interface{}) (bool, error) {
	if cm.expectedChecksum == "" {
		return false, errors.New("expected checksum is not set")
	}
	sum, err := OfJSON(v)
	if err != nil {
		return false, err
	}
	return sum == cm.expectedChecksum, nil
}
