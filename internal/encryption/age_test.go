package encryption

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"obslog/internal/config"
)

const samplePlan = `<?xml version="1.0"?><observations><site id="s1"><name>Backyard</name></site></observations>`

func newTestAgeEncryptor(t *testing.T) (*AgeEncryptor, config.EncryptionConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "obslog.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "obslog.key"),
	}
	return NewAgeEncryptor(cfg), cfg
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()

	t.Run("configures key pair", func(t *testing.T) {
		t.Parallel()
		e, cfg := newTestAgeEncryptor(t)
		if e.IsConfigured() {
			t.Fatal("IsConfigured() = true before Setup, want false")
		}
		if err := e.Setup("clear skies"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if !e.IsConfigured() {
			t.Error("IsConfigured() = false after Setup, want true")
		}
		info, err := os.Stat(cfg.PrivateKeyPath)
		if err != nil {
			t.Fatalf("Stat(private key) error = %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("private key mode = %o, want 600", perm)
		}
		pub, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			t.Fatalf("ReadFile(public key) error = %v", err)
		}
		if !strings.HasPrefix(string(pub), "age1") {
			t.Errorf("public key = %q, want age1 recipient", pub)
		}
	})

	t.Run("refuses to replace existing keys", func(t *testing.T) {
		t.Parallel()
		e, _ := newTestAgeEncryptor(t)
		if err := e.Setup("first"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if err := e.Setup("second"); !errors.Is(err, ErrKeysExist) {
			t.Errorf("second Setup() error = %v, want ErrKeysExist", err)
		}
		if _, err := e.Unlock("first"); err != nil {
			t.Errorf("Unlock(first) after refused Setup error = %v", err)
		}
	})

	t.Run("rejects empty passphrase", func(t *testing.T) {
		t.Parallel()
		e, _ := newTestAgeEncryptor(t)
		if err := e.Setup(""); err == nil {
			t.Error("Setup(\"\") expected error")
		}
	})
}

func TestAgeEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "plan document", input: []byte(samplePlan)},
		{name: "empty", input: []byte{}},
		{name: "large document", input: bytes.Repeat([]byte(samplePlan), 2000)},
	}

	e, _ := newTestAgeEncryptor(t)
	if err := e.Setup("clear skies"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	dctx, err := e.Unlock("clear skies")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sealed bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &sealed); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Contains(sealed.Bytes(), tt.input[:10]) {
				t.Error("sealed output contains plaintext")
			}

			var plain bytes.Buffer
			if err := dctx.Decrypt(&sealed, &plain); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(plain.Bytes(), tt.input) {
				t.Errorf("round trip = %d bytes, want %d", plain.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_Unlock(t *testing.T) {
	t.Parallel()

	t.Run("wrong passphrase", func(t *testing.T) {
		t.Parallel()
		e, _ := newTestAgeEncryptor(t)
		if err := e.Setup("correct"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if _, err := e.Unlock("wrong"); !errors.Is(err, ErrWrongPassphrase) {
			t.Errorf("Unlock() error = %v, want ErrWrongPassphrase", err)
		}
	})

	t.Run("before setup", func(t *testing.T) {
		t.Parallel()
		e, _ := newTestAgeEncryptor(t)
		if _, err := e.Unlock("any"); err == nil {
			t.Error("Unlock() before Setup expected error")
		}
		if err := e.Encrypt(strings.NewReader("x"), &bytes.Buffer{}); err == nil {
			t.Error("Encrypt() before Setup expected error")
		}
	})
}

func TestTestEncryptor(t *testing.T) {
	t.Parallel()

	e := NewTestEncryptor()
	if err := e.Setup("pass"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	var sealed bytes.Buffer
	if err := e.Encrypt(strings.NewReader(samplePlan), &sealed); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if sealed.String() == samplePlan {
		t.Error("sealed output equals plaintext")
	}

	if _, err := e.Unlock("nope"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Unlock(wrong) error = %v, want ErrWrongPassphrase", err)
	}
	dctx, err := e.Unlock("pass")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var plain bytes.Buffer
	if err := dctx.Decrypt(&sealed, &plain); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if plain.String() != samplePlan {
		t.Errorf("Decrypt() = %q, want %q", plain.String(), samplePlan)
	}

	if err := dctx.Decrypt(strings.NewReader(samplePlan), &bytes.Buffer{}); err == nil {
		t.Error("Decrypt() of unsealed input expected error")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	t.Parallel()

	_, cfg := newTestAgeEncryptor(t)
	if e, err := NewEncryptorFromConfig(cfg); err != nil {
		t.Errorf("age: error = %v", err)
	} else if _, ok := e.(*AgeEncryptor); !ok {
		t.Errorf("age: got %T, want *AgeEncryptor", e)
	}
	if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "test"}); err != nil {
		t.Errorf("test: error = %v", err)
	}
	if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "age"}); err == nil {
		t.Error("age without paths: expected error")
	}
	if _, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: "rot13"}); err == nil {
		t.Error("unknown type: expected error")
	}
}
