package testutil

import (
	"obslog/internal/encryption"
	"obslog/internal/logbook"
)

// NewTestEncryptor creates a deterministic encryptor that needs no keys.
func NewTestEncryptor() logbook.Encryptor {
	return encryption.NewTestEncryptor()
}
