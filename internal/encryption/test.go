package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"obslog/internal/logbook"
)

// testMagic marks documents sealed by TestEncryptor.
var testMagic = []byte("OBSLOG-TEST\x00")

// TestEncryptor is a deterministic, reversible stand-in for tests and the
// "test" config type. It frames the document with a fixed marker so sealed
// output never equals the plaintext.
type TestEncryptor struct {
	passphrase string
}

var _ logbook.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

// Setup remembers the passphrase so Unlock can reject a wrong one.
func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testMagic); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying document: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (logbook.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext removes the marker written by TestEncryptor.
type TestDecryptionContext struct{}

var _ logbook.DecryptionContext = TestDecryptionContext{}

func (TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	marker := make([]byte, len(testMagic))
	if _, err := io.ReadFull(r, marker); err != nil {
		return fmt.Errorf("reading marker: %w", err)
	}
	if !bytes.Equal(marker, testMagic) {
		return errors.New("document was not sealed by the test encryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying document: %w", err)
	}
	return nil
}
