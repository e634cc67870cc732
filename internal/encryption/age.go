package encryption

import (
	"fmt"
	"io"

	"filippo.io/age"

	"obslog/internal/config"
	"obslog/internal/logbook"
)

// AgeEncryptor seals archived import documents with an age X25519 key pair.
// The public key is stored in plaintext so documents can be submitted
// unattended; the private key is protected by the user's passphrase.
type AgeEncryptor struct {
	keys keyPair
}

var _ logbook.Encryptor = (*AgeEncryptor)(nil)

func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{keys: keyPair{
		publicPath:  cfg.PublicKeyPath,
		privatePath: cfg.PrivateKeyPath,
	}}
}

// Setup generates the key pair. It fails with ErrKeysExist rather than
// replacing keys that archived documents may depend on.
func (e *AgeEncryptor) Setup(passphrase string) error {
	return e.keys.generate(passphrase)
}

func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	recipient, err := e.keys.recipient()
	if err != nil {
		return err
	}
	sealed, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(sealed, r); err != nil {
		return fmt.Errorf("encrypting document: %w", err)
	}
	if err := sealed.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Unlock returns a context holding the decrypted identity. A wrong
// passphrase yields ErrWrongPassphrase.
func (e *AgeEncryptor) Unlock(passphrase string) (logbook.DecryptionContext, error) {
	identity, err := e.keys.identity(passphrase)
	if err != nil {
		return nil, err
	}
	return &AgeDecryptionContext{identity: identity}, nil
}

func (e *AgeEncryptor) IsConfigured() bool {
	return exists(e.keys.publicPath) && exists(e.keys.privatePath)
}

// AgeDecryptionContext holds an unlocked age identity.
type AgeDecryptionContext struct {
	identity age.Identity
}

var _ logbook.DecryptionContext = (*AgeDecryptionContext)(nil)

func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	plain, err := age.Decrypt(r, c.identity)
	if err != nil {
		return fmt.Errorf("opening encrypted document: %w", err)
	}
	if _, err := io.Copy(w, plain); err != nil {
		return fmt.Errorf("decrypting document: %w", err)
	}
	return nil
}
